// Package session assembles one storefront session: the state store, the
// notification queue, the cart manager and the account and upload
// workflows, bound to injected collaborators.
//
// A Session replaces a process-wide store singleton. Construct it with New
// and release it with Close, which stops the notification gap timer,
// releases the profile binding and detaches listeners registered through
// the session.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/storefront/internal/auth"
	"github.com/roach88/storefront/internal/blob"
	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/profile"
	"github.com/roach88/storefront/internal/router"
	"github.com/roach88/storefront/internal/state"
	"github.com/roach88/storefront/internal/upload"
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("session: missing dependency")

// Deps are the inputs of a session.
type Deps struct {
	// Catalog seeds the store. A zero Seed uses catalog.Default().
	Catalog catalog.Seed

	// Required collaborators.
	Identity identity.Service
	Profiles profile.Store
	Blobs    blob.Store
	Router   router.Router

	// Optional.
	Scheduler        notify.Scheduler // default notify.RealScheduler
	Gap              time.Duration    // default notify.DefaultGap
	Metrics          *metrics.Metrics
	Tracer           trace.Tracer
	DefaultAvatarURL string
}

// Session is one storefront session.
type Session struct {
	store    *state.Store
	queue    *notify.Queue
	cart     *cart.Manager
	uploader *upload.Uploader
	auth     *auth.Workflow
	router   router.Router

	mu        sync.Mutex
	listeners []func()
	closed    bool
}

// New builds a session.
func New(d Deps) (*Session, error) {
	switch {
	case d.Identity == nil:
		return nil, fmt.Errorf("%w: identity", ErrMissingDependency)
	case d.Profiles == nil:
		return nil, fmt.Errorf("%w: profiles", ErrMissingDependency)
	case d.Blobs == nil:
		return nil, fmt.Errorf("%w: blobs", ErrMissingDependency)
	case d.Router == nil:
		return nil, fmt.Errorf("%w: router", ErrMissingDependency)
	}

	seed := d.Catalog
	if seed.Items == nil && seed.Categories == nil {
		seed = catalog.Default()
	}
	if err := catalog.Validate(seed.Items); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	store := state.New(seed.Items, seed.Categories)

	qopts := []notify.Option{notify.WithMetrics(d.Metrics), notify.WithGap(d.Gap)}
	if d.Scheduler != nil {
		qopts = append(qopts, notify.WithScheduler(d.Scheduler))
	}
	queue := notify.NewQueue(store, qopts...)

	uploader := upload.NewUploader(store, d.Blobs, d.Identity,
		upload.WithMetrics(d.Metrics),
		upload.WithTracer(d.Tracer),
	)

	aopts := []auth.Option{auth.WithMetrics(d.Metrics), auth.WithTracer(d.Tracer)}
	if d.DefaultAvatarURL != "" {
		aopts = append(aopts, auth.WithDefaultAvatar(d.DefaultAvatarURL))
	}
	wf := auth.New(auth.Deps{
		Store:    store,
		Notifier: queue,
		Identity: d.Identity,
		Profiles: d.Profiles,
		Uploader: uploader,
		Router:   d.Router,
	}, aopts...)

	return &Session{
		store:    store,
		queue:    queue,
		cart:     cart.NewManager(store, queue, d.Metrics),
		uploader: uploader,
		auth:     wf,
		router:   d.Router,
	}, nil
}

// Store returns the state store.
func (s *Session) Store() *state.Store { return s.store }

// Notifications returns the notification queue.
func (s *Session) Notifications() *notify.Queue { return s.queue }

// Cart returns the cart manager.
func (s *Session) Cart() *cart.Manager { return s.cart }

// Uploader returns the upload workflow.
func (s *Session) Uploader() *upload.Uploader { return s.uploader }

// Auth returns the account workflows.
func (s *Session) Auth() *auth.Workflow { return s.auth }

// Router returns the router the workflows navigate with.
func (s *Session) Router() router.Router { return s.router }

// Listen registers fn for state changes until the returned cancel is called
// or the session is closed. Returns a no-op cancel after Close.
func (s *Session) Listen(fn func(state.Change)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	c := s.store.Listen(fn)
	s.listeners = append(s.listeners, c)
	return c
}

// Close releases the session. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	listeners := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	s.queue.Close()
	s.auth.Close()
	for _, cancel := range listeners {
		cancel()
	}
}
