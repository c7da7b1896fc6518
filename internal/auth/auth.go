package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/profile"
	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/router"
	"github.com/roach88/storefront/internal/state"
	"github.com/roach88/storefront/internal/upload"
)

const tracerName = "github.com/roach88/storefront/internal/auth"

// DefaultAvatarURL is the avatar written for new accounts.
const DefaultAvatarURL = "/static/avatar.jpg"

// User-facing messages.
const (
	MsgLoggedInSuffix = " logado com sucesso!"
	MsgLoggedOut      = "Deslogado com sucesso!"
	MsgLogoutFailed   = "Erro ao deslogar: "
	MsgAvatarFailed   = "Erro ao fazer upload de avatar: "
	MsgProfileEdited  = "Perfil editado com sucesso!"
)

// Workflow names used in metrics and spans.
const (
	wfSignUp        = "signup"
	wfLogin         = "login"
	wfAfterLogin    = "after_login"
	wfLogout        = "logout"
	wfEditProfile   = "edit_profile"
	wfResetPassword = "reset_password"
)

// ErrBindingReleased is returned by AfterLogin when the profile binding is
// released, by a concurrent logout or Close, before the first snapshot.
var ErrBindingReleased = errors.New("auth: profile binding released before the first snapshot")

// Notifier shows notifications. *notify.Queue satisfies it.
type Notifier interface {
	Success(message string) bool
	Error(message string) bool
}

// AvatarUploader uploads the avatar of the signed-in account.
// *upload.Uploader satisfies it.
type AvatarUploader interface {
	Upload(ctx context.Context, a upload.Asset) (string, error)
}

// Deps are the collaborators of a Workflow. All fields are required.
type Deps struct {
	Store    *state.Store
	Notifier Notifier
	Identity identity.Service
	Profiles profile.Store
	Uploader AvatarUploader
	Router   router.Router
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithMetrics records workflow outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) {
		w.metrics = m
	}
}

// WithTracer sets the tracer (default: the global provider's).
func WithTracer(t trace.Tracer) Option {
	return func(w *Workflow) {
		if t != nil {
			w.tracer = t
		}
	}
}

// WithDefaultAvatar sets the avatar URL written at sign-up.
func WithDefaultAvatar(url string) Option {
	return func(w *Workflow) {
		w.defaultAvatar = url
	}
}

// Workflow runs the account workflows of one session.
type Workflow struct {
	Deps

	metrics       *metrics.Metrics
	tracer        trace.Tracer
	defaultAvatar string

	mu   sync.Mutex
	bind *binding // live profile binding, nil when logged out
}

// New creates a Workflow.
func New(deps Deps, opts ...Option) *Workflow {
	w := &Workflow{
		Deps:          deps,
		tracer:        otel.Tracer(tracerName),
		defaultAvatar: DefaultAvatarURL,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SignUpInput is the sign-up form.
type SignUpInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// EditInput is the profile form. Avatar is optional.
type EditInput struct {
	Name   string
	Phone  string
	Avatar *upload.Asset
}

// start opens a span for a workflow run. The returned finish records the
// outcome of *errp.
func (w *Workflow) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(errp *error)) {
	ctx, span := w.tracer.Start(ctx, "auth."+name, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, remote.Describe(*errp))
			w.metrics.Workflow(name, metrics.OutcomeFailed)
		} else {
			w.metrics.Workflow(name, metrics.OutcomeOK)
		}
		span.End()
	}
}

// SignUp creates an account and writes its initial profile record.
// Failures of either step are returned.
func (w *Workflow) SignUp(ctx context.Context, in SignUpInput) (err error) {
	ctx, finish := w.start(ctx, wfSignUp)
	defer finish(&err)

	acct, err := w.Identity.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		return err
	}
	_, err = w.Profiles.Set(ctx, acct.UID, profile.Record{
		Name:      in.Name,
		Phone:     in.Phone,
		AvatarURL: w.defaultAvatar,
	})
	if err != nil {
		return err
	}
	slog.Info("signed up", "uid", acct.UID)
	return nil
}

// Login checks credentials. It does not touch the session; callers follow
// a successful login with AfterLogin.
func (w *Workflow) Login(ctx context.Context, email, password string) (acct identity.Account, err error) {
	ctx, finish := w.start(ctx, wfLogin)
	defer finish(&err)
	return w.Identity.SignIn(ctx, email, password)
}

// AfterLogin binds the session to acct's profile record. When the first
// snapshot arrives the user is committed, a success notification is shown,
// the client is redirected and loading ends. AfterLogin returns after
// those steps, or with ctx's error if the first snapshot does not arrive
// in time, in which case nothing stays committed.
func (w *Workflow) AfterLogin(ctx context.Context, acct identity.Account) (err error) {
	ctx, finish := w.start(ctx, wfAfterLogin, attribute.String("storefront.uid", acct.UID))
	defer finish(&err)

	w.release()

	var (
		b     = newBinding(acct.UID)
		once  sync.Once
		first = make(chan struct{})
		name  string
	)
	sub, err := w.Profiles.Subscribe(ctx, acct.UID, func(snap profile.Snapshot) {
		u := userFrom(acct, snap)
		w.Store.SetUser(&u)
		b.delivered(snap.Version)
		once.Do(func() {
			name = u.Name
			close(first)
		})
	})
	if err != nil {
		return err
	}
	b.sub = sub

	w.mu.Lock()
	w.bind = b
	w.mu.Unlock()

	select {
	case <-first:
	case <-sub.Done():
		return ErrBindingReleased
	case <-ctx.Done():
		select {
		case <-first:
		default:
			w.unbind(b)
			// The callback may have committed the user while the
			// binding was closing.
			select {
			case <-first:
				w.Store.SetUser(nil)
			default:
			}
			return ctx.Err()
		}
	}

	w.Notifier.Success(name + MsgLoggedInSuffix)
	router.Redirect(w.Router)
	w.Store.ClearLoading()
	slog.Info("logged in", "uid", acct.UID)
	return nil
}

// userFrom merges an account with its profile snapshot. A missing record
// or empty name falls back to the email as display name.
func userFrom(acct identity.Account, snap profile.Snapshot) state.User {
	u := state.User{
		UID:       acct.UID,
		Email:     acct.Email,
		Name:      snap.Record.Name,
		AvatarURL: snap.Record.AvatarURL,
		Phone:     snap.Record.Phone,
	}
	if u.Name == "" {
		u.Name = acct.Email
	}
	return u
}

// Logout signs out. On success the profile binding is released, the user
// cleared, a success notification shown and the client redirected. On
// failure one error notification is shown and nothing else changes.
func (w *Workflow) Logout(ctx context.Context) {
	var err error
	ctx, finish := w.start(ctx, wfLogout)
	defer finish(&err)

	if err = w.Identity.SignOut(ctx); err != nil {
		slog.Error("logout failed", "error", err)
		w.Notifier.Error(MsgLogoutFailed + remote.Describe(err))
		return
	}

	w.release()
	w.Store.SetUser(nil)
	w.Notifier.Success(MsgLoggedOut)
	router.Redirect(w.Router)
	slog.Info("logged out")
}

// EditProfile updates the signed-in account's profile. With an avatar, the
// upload runs first; an upload failure is shown as an error notification
// and the edit continues without it. A failed profile write is returned.
func (w *Workflow) EditProfile(ctx context.Context, in EditInput) (err error) {
	ctx, finish := w.start(ctx, wfEditProfile, attribute.Bool("storefront.avatar", in.Avatar != nil))
	defer finish(&err)

	acct, ok := w.Identity.Current()
	if !ok {
		return remote.New(remote.ServiceIdentity, identity.CodeNoCurrentUser, "no signed-in user")
	}

	patch := profile.Patch{Name: &in.Name, Phone: &in.Phone}
	if in.Avatar != nil {
		url, uerr := w.Uploader.Upload(ctx, *in.Avatar)
		if uerr != nil {
			w.Notifier.Error(MsgAvatarFailed + remote.Describe(uerr))
		} else {
			patch.AvatarURL = &url
		}
	}

	version, err := w.Profiles.Update(ctx, acct.UID, patch)
	if err != nil {
		return err
	}
	w.awaitDelivery(ctx, acct.UID, version)
	w.Notifier.Success(MsgProfileEdited)
	router.Redirect(w.Router)
	return nil
}

// ResetPassword asks the identity service to send a reset email.
func (w *Workflow) ResetPassword(ctx context.Context, email string) (err error) {
	ctx, finish := w.start(ctx, wfResetPassword)
	defer finish(&err)
	return w.Identity.SendPasswordReset(ctx, email)
}

// awaitDelivery blocks until the profile binding of uid has committed
// version, so that notifications follow the user change. It returns at
// once when uid is not bound.
func (w *Workflow) awaitDelivery(ctx context.Context, uid string, version int64) {
	w.mu.Lock()
	b := w.bind
	w.mu.Unlock()
	if b == nil || b.uid != uid {
		return
	}
	if err := b.await(ctx, version); err != nil {
		slog.Warn("profile change not delivered", "uid", uid, "version", version, "error", err)
	}
}

// Bound reports whether a profile binding is live.
func (w *Workflow) Bound() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bind != nil
}

// Close releases the profile binding. Safe to call more than once.
func (w *Workflow) Close() {
	w.release()
}

func (w *Workflow) release() {
	w.mu.Lock()
	b := w.bind
	w.bind = nil
	w.mu.Unlock()
	if b != nil {
		b.close()
	}
}

// unbind releases b if it is still the live binding, and closes it either
// way.
func (w *Workflow) unbind(b *binding) {
	w.mu.Lock()
	if w.bind == b {
		w.bind = nil
	}
	w.mu.Unlock()
	b.close()
}
