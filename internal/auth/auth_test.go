package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/blob"
	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/profile"
	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/router"
	"github.com/roach88/storefront/internal/state"
	"github.com/roach88/storefront/internal/testutil"
	"github.com/roach88/storefront/internal/upload"
)

type testEnv struct {
	store    *state.Store
	queue    *notify.Queue
	ids      *identity.MemoryService
	profiles *profile.MemoryStore
	blobs    *blob.MemoryStore
	history  *router.History
	wf       *Workflow

	mu      sync.Mutex
	changes []state.Change
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		store:    state.New(catalog.DefaultItems(), catalog.DefaultCategories()),
		ids:      identity.NewMemoryService(testutil.NewSequentialIDs("uid")),
		profiles: profile.NewMemoryStore(),
		blobs:    blob.NewMemoryStore(4),
		history:  router.NewHistory("/login"),
	}
	e.queue = notify.NewQueue(e.store, notify.WithScheduler(testutil.NewManualScheduler()))
	e.wf = New(Deps{
		Store:    e.store,
		Notifier: e.queue,
		Identity: e.ids,
		Profiles: e.profiles,
		Uploader: upload.NewUploader(e.store, e.blobs, e.ids),
		Router:   e.history,
	})
	cancel := e.store.Listen(func(c state.Change) {
		e.mu.Lock()
		e.changes = append(e.changes, c)
		e.mu.Unlock()
	})
	t.Cleanup(func() {
		e.wf.Close()
		e.queue.Close()
		cancel()
	})
	return e
}

func (e *testEnv) count(op state.Op) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.changes {
		if c.Op == op {
			n++
		}
	}
	return n
}

// lastSeq returns the sequence number of the last change with op, or 0.
func (e *testEnv) lastSeq(op state.Op) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var seq int64
	for _, c := range e.changes {
		if c.Op == op {
			seq = c.Seq
		}
	}
	return seq
}

// pushSeq returns the sequence number of the push of msg, or 0.
func (e *testEnv) pushSeq(msg string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.changes {
		if c.Op == state.OpNotificationPush && c.Notification != nil && c.Notification.Message == msg {
			return c.Seq
		}
	}
	return 0
}

func (e *testEnv) notifications() []state.Notification {
	return e.store.Notifications()
}

// signUpAndLogin registers Ana and runs login plus the profile binding.
func (e *testEnv) signUpAndLogin(t *testing.T) identity.Account {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.wf.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "secret1", Name: "Ana", Phone: "555"}))
	require.NoError(t, e.ids.SignOut(ctx))

	acct, err := e.wf.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, e.wf.AfterLogin(ctx, acct))
	return acct
}

func success(msg string) state.Notification {
	return state.Notification{Kind: state.KindSuccess, Message: msg}
}

func failure(msg string) state.Notification {
	return state.Notification{Kind: state.KindError, Message: msg}
}

func TestSignUp_WritesProfile(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	err := e.wf.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "secret1", Name: "Ana", Phone: "555"})
	require.NoError(t, err)

	snap, err := e.profiles.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, profile.Record{Name: "Ana", Phone: "555", AvatarURL: DefaultAvatarURL}, snap.Record)
	assert.Empty(t, e.notifications(), "sign-up reports through its return value only")
}

func TestSignUp_PropagatesErrors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, e.wf.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "secret1"}))
	err := e.wf.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "secret1"})
	assert.True(t, remote.HasCode(err, identity.CodeEmailInUse), "got %v", err)

	injected := remote.New(remote.ServiceProfile, "PERMISSION_DENIED", "denied")
	e.profiles.FailNext(profile.OpSet, injected)
	err = e.wf.SignUp(ctx, SignUpInput{Email: "bob@example.com", Password: "secret1"})
	assert.Same(t, injected, err)
	assert.Empty(t, e.notifications())
}

func TestLogin_Scenario(t *testing.T) {
	e := newTestEnv(t)
	acct := e.signUpAndLogin(t)

	u, ok := e.store.User()
	require.True(t, ok)
	assert.Equal(t, state.User{UID: acct.UID, Email: "ana@example.com", Name: "Ana", Phone: "555", AvatarURL: DefaultAvatarURL}, u)

	assert.Equal(t, 1, e.count(state.OpUserSet), "exactly one user commit")
	assert.Equal(t, []state.Notification{success("Ana logado com sucesso!")}, e.notifications())
	assert.Equal(t, []string{"/"}, e.history.Visits())
	assert.False(t, e.store.Loading())
	assert.True(t, e.wf.Bound())
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.wf.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "secret1"}))

	_, err := e.wf.Login(ctx, "ana@example.com", "nope-nope")
	assert.True(t, remote.HasCode(err, identity.CodeWrongPassword))
	assert.Empty(t, e.notifications())
}

func TestAfterLogin_FollowsRedirectTarget(t *testing.T) {
	e := newTestEnv(t)
	e.history.SetRedirect("/carrinho")
	e.signUpAndLogin(t)

	assert.Equal(t, []string{"/carrinho"}, e.history.Visits())
}

func TestAfterLogin_LiveSync(t *testing.T) {
	e := newTestEnv(t)
	acct := e.signUpAndLogin(t)

	_, err := e.profiles.Set(context.Background(), acct.UID, profile.Record{Name: "Ana Maria"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		u, _ := e.store.User()
		return u.Name == "Ana Maria"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, e.notifications(), 1, "later snapshots do not notify")
	assert.Len(t, e.history.Visits(), 1, "later snapshots do not navigate")
}

func TestAfterLogin_MissingProfileUsesEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	acct, err := e.ids.CreateAccount(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, e.wf.AfterLogin(ctx, acct))
	assert.Equal(t, []state.Notification{success("bob@example.com logado com sucesso!")}, e.notifications())
}

func TestAfterLogin_SubscribeFailure(t *testing.T) {
	e := newTestEnv(t)
	injected := remote.New(remote.ServiceProfile, "UNAVAILABLE", "offline")
	e.profiles.FailNext(profile.OpSubscribe, injected)

	err := e.wf.AfterLogin(context.Background(), identity.Account{UID: "u1", Email: "a@b.c"})
	assert.Same(t, injected, err)
	_, ok := e.store.User()
	assert.False(t, ok)
	assert.Empty(t, e.notifications())
	assert.True(t, e.store.Loading())
}

func TestAfterLogin_DeadlineLeavesNothingCommitted(t *testing.T) {
	for i := 0; i < 50; i++ {
		e := newTestEnv(t)
		acct, err := e.ids.CreateAccount(context.Background(), "bob@example.com", "secret1")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err = e.wf.AfterLogin(ctx, acct)

		_, hasUser := e.store.User()
		if err == nil {
			assert.True(t, hasUser)
			assert.True(t, e.wf.Bound())
			assert.False(t, e.store.Loading())
			assert.Len(t, e.notifications(), 1)
			continue
		}
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, hasUser, "a user committed during the deadline is rolled back")
		assert.False(t, e.wf.Bound())
		assert.True(t, e.store.Loading())
		assert.Empty(t, e.notifications())
		assert.Equal(t, 0, e.profiles.Subscribers(acct.UID))
	}
}

// gatedProfiles holds back profile deliveries until gate is closed.
type gatedProfiles struct {
	*profile.MemoryStore
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (g *gatedProfiles) Subscribe(ctx context.Context, uid string, fn func(profile.Snapshot)) (*profile.Subscription, error) {
	return g.MemoryStore.Subscribe(ctx, uid, func(snap profile.Snapshot) {
		g.once.Do(func() { close(g.entered) })
		<-g.gate
		fn(snap)
	})
}

func TestAfterLogin_LogoutWhileWaiting(t *testing.T) {
	e := newTestEnv(t)
	gated := &gatedProfiles{MemoryStore: e.profiles, gate: make(chan struct{}), entered: make(chan struct{})}
	e.wf = New(Deps{
		Store:    e.store,
		Notifier: e.queue,
		Identity: e.ids,
		Profiles: gated,
		Uploader: upload.NewUploader(e.store, e.blobs, e.ids),
		Router:   e.history,
	})
	ctx := context.Background()
	require.NoError(t, e.wf.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "secret1", Name: "Ana"}))

	acct, err := e.wf.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	loginDone := make(chan error, 1)
	go func() { loginDone <- e.wf.AfterLogin(ctx, acct) }()

	<-gated.entered
	require.Eventually(t, e.wf.Bound, 2*time.Second, time.Millisecond, "binding is live while waiting")

	logoutDone := make(chan struct{})
	go func() {
		e.wf.Logout(ctx)
		close(logoutDone)
	}()
	require.Eventually(t, func() bool { return e.profiles.Subscribers(acct.UID) == 0 }, 2*time.Second, time.Millisecond)
	close(gated.gate)

	<-logoutDone
	<-loginDone

	assert.False(t, e.wf.Bound())
	_, ok := e.store.User()
	assert.False(t, ok)

	_, err = e.profiles.Set(ctx, acct.UID, profile.Record{Name: "Ghost"})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, ok = e.store.User()
	assert.False(t, ok, "writes after logout do not reach the session")
}

func TestAfterLogin_ReplacesPreviousBinding(t *testing.T) {
	e := newTestEnv(t)
	acct := e.signUpAndLogin(t)

	require.NoError(t, e.wf.AfterLogin(context.Background(), acct))
	assert.Equal(t, 1, e.profiles.Subscribers(acct.UID))
}

func TestLogout_Success(t *testing.T) {
	e := newTestEnv(t)
	acct := e.signUpAndLogin(t)

	e.wf.Logout(context.Background())

	_, ok := e.store.User()
	assert.False(t, ok)
	assert.Equal(t, []state.Notification{
		success("Ana logado com sucesso!"),
		success("Deslogado com sucesso!"),
	}, e.notifications())
	assert.Equal(t, []string{"/", "/"}, e.history.Visits())
	assert.False(t, e.wf.Bound())
	assert.Equal(t, 0, e.profiles.Subscribers(acct.UID))

	// Writes after logout no longer reach the session.
	_, err := e.profiles.Set(context.Background(), acct.UID, profile.Record{Name: "Ghost"})
	require.NoError(t, err)
	_, ok = e.store.User()
	assert.False(t, ok)
}

func TestLogout_Failure(t *testing.T) {
	e := newTestEnv(t)
	e.signUpAndLogin(t)
	e.ids.FailNext(identity.OpSignOut, remote.New(remote.ServiceIdentity, "E1", "network"))

	e.wf.Logout(context.Background())

	u, ok := e.store.User()
	require.True(t, ok, "user is untouched")
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, []state.Notification{
		success("Ana logado com sucesso!"),
		failure("Erro ao deslogar: (E1) network"),
	}, e.notifications())
	assert.Equal(t, []string{"/"}, e.history.Visits(), "location is untouched")
	assert.True(t, e.wf.Bound())
}

func TestEditProfile_WithAvatar(t *testing.T) {
	e := newTestEnv(t)
	acct := e.signUpAndLogin(t)

	err := e.wf.EditProfile(context.Background(), EditInput{
		Name:  "Bia",
		Phone: "777",
		Avatar: &upload.Asset{
			Name:        "me.png",
			ContentType: "image/png",
			Size:        8,
			Body:        strings.NewReader("pngbytes"),
		},
	})
	require.NoError(t, err)

	snap, err := e.profiles.Get(context.Background(), acct.UID)
	require.NoError(t, err)
	assert.Equal(t, profile.Record{Name: "Bia", Phone: "777", AvatarURL: "mem://avatar/" + acct.UID}, snap.Record)
	assert.Equal(t, 100.0, e.store.Progress())

	notes := e.notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, success("Perfil editado com sucesso!"), notes[1])
	assert.Equal(t, []string{"/", "/"}, e.history.Visits())

	assert.Eventually(t, func() bool {
		u, _ := e.store.User()
		return u.Name == "Bia" && u.AvatarURL == "mem://avatar/"+acct.UID
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEditProfile_CommitsUserBeforeNotifying(t *testing.T) {
	for i := 0; i < 50; i++ {
		e := newTestEnv(t)
		acct := e.signUpAndLogin(t)

		require.NoError(t, e.wf.EditProfile(context.Background(), EditInput{Name: "Bia", Phone: "999"}))

		u, ok := e.store.User()
		require.True(t, ok)
		assert.Equal(t, "999", u.Phone, "user is committed when EditProfile returns")
		assert.Equal(t, "Bia", u.Name)

		userSeq, noteSeq := e.lastSeq(state.OpUserSet), e.pushSeq(MsgProfileEdited)
		require.NotZero(t, noteSeq)
		assert.Less(t, userSeq, noteSeq, "user.set precedes the edit notification")
		assert.Equal(t, 2, e.count(state.OpUserSet), "login commit plus one edit commit")
		assert.Equal(t, 1, e.profiles.Subscribers(acct.UID))
	}
}

func TestEditProfile_UploadFailureContinues(t *testing.T) {
	e := newTestEnv(t)
	acct := e.signUpAndLogin(t)
	e.blobs.FailNext(remote.New(remote.ServiceBlob, "storage/unauthorized", "denied"))

	err := e.wf.EditProfile(context.Background(), EditInput{
		Name:   "Bia",
		Phone:  "777",
		Avatar: &upload.Asset{Size: 1, Body: strings.NewReader("x")},
	})
	require.NoError(t, err)

	snap, err := e.profiles.Get(context.Background(), acct.UID)
	require.NoError(t, err)
	assert.Equal(t, profile.Record{Name: "Bia", Phone: "777", AvatarURL: DefaultAvatarURL}, snap.Record)
	assert.Equal(t, []state.Notification{
		success("Ana logado com sucesso!"),
		failure("Erro ao fazer upload de avatar: (storage/unauthorized) denied"),
		success("Perfil editado com sucesso!"),
	}, e.notifications())
}

func TestEditProfile_WriteFailure(t *testing.T) {
	e := newTestEnv(t)
	e.signUpAndLogin(t)
	injected := remote.New(remote.ServiceProfile, "PERMISSION_DENIED", "denied")
	e.profiles.FailNext(profile.OpUpdate, injected)

	err := e.wf.EditProfile(context.Background(), EditInput{Name: "Bia"})
	assert.Same(t, injected, err)
	assert.Len(t, e.notifications(), 1, "no success notification")
	assert.Len(t, e.history.Visits(), 1)
}

func TestEditProfile_NotSignedIn(t *testing.T) {
	e := newTestEnv(t)
	err := e.wf.EditProfile(context.Background(), EditInput{Name: "Bia"})
	assert.True(t, remote.HasCode(err, identity.CodeNoCurrentUser))
}

func TestResetPassword(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.wf.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "secret1"}))

	require.NoError(t, e.wf.ResetPassword(ctx, "ana@example.com"))
	assert.Equal(t, []string{"ana@example.com"}, e.ids.Resets())

	err := e.wf.ResetPassword(ctx, "nobody@example.com")
	assert.True(t, remote.HasCode(err, identity.CodeUserNotFound))
}

func TestClose_ReleasesBinding(t *testing.T) {
	e := newTestEnv(t)
	acct := e.signUpAndLogin(t)

	e.wf.Close()
	e.wf.Close()
	assert.False(t, e.wf.Bound())
	assert.Equal(t, 0, e.profiles.Subscribers(acct.UID))
}
