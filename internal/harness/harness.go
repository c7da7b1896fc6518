package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/storefront/internal/auth"
	"github.com/roach88/storefront/internal/blob"
	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/profile"
	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/router"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/state"
	"github.com/roach88/storefront/internal/store"
	"github.com/roach88/storefront/internal/testutil"
	"github.com/roach88/storefront/internal/upload"
)

// ChunkSize is the read size of the harness blob store. Small inline
// avatars therefore report several progress steps.
const ChunkSize = 4

// LoginTimeout bounds the wait for the first profile snapshot of a login.
const LoginTimeout = 5 * time.Second

// Error codes for step failures that do not come from a collaborator.
const (
	CodeUnknownItem     = "cart/unknown-item"
	CodeNotInCart       = "cart/not-in-cart"
	CodeNotDisplayed    = "notification/not-displayed"
	CodeDeadline        = "deadline-exceeded"
	CodeUnknownStepFail = remote.CodeUnknown
)

var errNotDisplayed = errors.New("no notification is displayed")

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger for step progress. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Harness executes one scenario against one session.
type Harness struct {
	sess     *session.Session
	sched    *testutil.ManualScheduler
	history  *router.History
	identity *identity.MemoryService // nil on the sqlite backend
	profiles *profile.MemoryStore    // nil on the sqlite backend
	blobs    *blob.MemoryStore
	db       *store.DB
	logger   *slog.Logger

	mu      sync.Mutex
	changes []state.Change
}

// Run executes a scenario and returns the result.
//
// Each run builds a fresh session. The memory backend uses in-memory
// identity and profile services; the sqlite backend opens an in-memory
// SQLite database. An error is returned only when the session cannot be
// built; step outcomes that differ from the scenario are reported in
// Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h, err := newHarness(scenario.Backend, opts...)
	if err != nil {
		return nil, err
	}
	defer h.close()

	result := NewResult()
	for i, step := range scenario.Steps {
		err := h.execute(ctx, step)
		trace := StepTrace{Step: step, Changes: h.drain()}
		if err != nil {
			trace.ErrorCode = errorCode(err)
		}
		result.Steps = append(result.Steps, trace)

		switch {
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Action, err))
		case step.ExpectError != "" && err == nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got success", i, step.Action, step.ExpectError))
		case step.ExpectError != "" && trace.ErrorCode != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %s", i, step.Action, step.ExpectError, trace.ErrorCode))
		}

		h.logger.Info("step completed",
			"step", i,
			"action", step.Action,
			"changes", len(trace.Changes),
			"error", trace.ErrorCode,
		)
	}

	result.Final = h.sess.Store().Snapshot()
	result.Route = h.history.Current()
	result.Visits = h.history.Visits()
	return result, nil
}

func newHarness(backend string, opts ...Option) (*Harness, error) {
	h := &Harness{
		sched:   testutil.NewManualScheduler(),
		history: router.NewHistory(router.DefaultTarget),
		blobs:   blob.NewMemoryStore(ChunkSize),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	ids := testutil.NewSequentialIDs("user")
	var (
		ident    identity.Service
		profiles profile.Store
	)
	switch backend {
	case BackendSQLite:
		db, err := store.OpenSQLite(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		h.db = db
		ident = identity.NewSQLService(db,
			identity.WithIDGenerator(ids),
			identity.WithBcryptCost(bcrypt.MinCost),
		)
		profiles = profile.NewSQLStore(db)
	default:
		h.identity = identity.NewMemoryService(ids)
		h.profiles = profile.NewMemoryStore()
		ident, profiles = h.identity, h.profiles
	}

	sess, err := session.New(session.Deps{
		Identity:  ident,
		Profiles:  profiles,
		Blobs:     h.blobs,
		Router:    h.history,
		Scheduler: h.sched,
	})
	if err != nil {
		h.close()
		return nil, fmt.Errorf("failed to build session: %w", err)
	}
	h.sess = sess
	sess.Listen(func(c state.Change) {
		h.mu.Lock()
		h.changes = append(h.changes, c)
		h.mu.Unlock()
	})
	return h, nil
}

func (h *Harness) close() {
	if h.sess != nil {
		h.sess.Close()
	}
	if h.db != nil {
		h.db.Close()
	}
}

// drain returns the changes recorded since the last call.
func (h *Harness) drain() []state.Change {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.changes
	h.changes = nil
	return out
}

// execute runs one step.
func (h *Harness) execute(ctx context.Context, st Step) error {
	wf := h.sess.Auth()
	switch st.Action {
	case ActionSignUp:
		return wf.SignUp(ctx, auth.SignUpInput{
			Email:    st.Email,
			Password: st.Password,
			Name:     st.Name,
			Phone:    st.Phone,
		})
	case ActionLogin:
		acct, err := wf.Login(ctx, st.Email, st.Password)
		if err != nil {
			return err
		}
		lctx, cancel := context.WithTimeout(ctx, LoginTimeout)
		defer cancel()
		return wf.AfterLogin(lctx, acct)
	case ActionLogout:
		wf.Logout(ctx)
		return nil
	case ActionReset:
		return wf.ResetPassword(ctx, st.Email)
	case ActionEditProfile:
		in := auth.EditInput{Name: st.Name, Phone: st.Phone}
		if st.Avatar != "" {
			in.Avatar = &upload.Asset{
				Name:        "avatar",
				ContentType: "application/octet-stream",
				Size:        int64(len(st.Avatar)),
				Body:        strings.NewReader(st.Avatar),
			}
		}
		return wf.EditProfile(ctx, in)
	case ActionAdd:
		return h.sess.Cart().Add(st.Item)
	case ActionRemove:
		return h.sess.Cart().Remove(st.Item)
	case ActionIncrement:
		_, err := h.sess.Cart().Increment(st.Item)
		return err
	case ActionDecrement:
		_, err := h.sess.Cart().Decrement(st.Item)
		return err
	case ActionClear:
		h.sess.Cart().Clear()
		return nil
	case ActionDismiss:
		if !h.sess.Notifications().Dismiss() {
			return errNotDisplayed
		}
		return nil
	case ActionAdvance:
		h.sched.Advance(st.Duration)
		return nil
	case ActionRedirect:
		h.history.SetRedirect(st.Path)
		return nil
	case ActionFail:
		return h.inject(st)
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

// inject queues a collaborator failure.
func (h *Harness) inject(st Step) error {
	switch st.Service {
	case ServiceIdentity:
		if h.identity == nil {
			return fmt.Errorf("identity failures need the memory backend")
		}
		h.identity.FailNext(identity.Op(st.Op), remote.New(remote.ServiceIdentity, st.Code, st.Message))
	case ServiceProfile:
		if h.profiles == nil {
			return fmt.Errorf("profile failures need the memory backend")
		}
		h.profiles.FailNext(profile.Op(st.Op), remote.New(remote.ServiceProfile, st.Code, st.Message))
	case ServiceBlob:
		h.blobs.FailNext(remote.New(remote.ServiceBlob, st.Code, st.Message))
	default:
		return fmt.Errorf("unknown service %q", st.Service)
	}
	return nil
}

// errorCode classifies a step error.
func errorCode(err error) string {
	if re, ok := remote.As(err); ok {
		return re.Code
	}
	switch {
	case errors.Is(err, cart.ErrUnknownItem):
		return CodeUnknownItem
	case errors.Is(err, cart.ErrNotInCart):
		return CodeNotInCart
	case errors.Is(err, errNotDisplayed):
		return CodeNotDisplayed
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadline
	default:
		return CodeUnknownStepFail
	}
}
