package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/storefront/internal/auth"
	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/upload"
)

// Defaults.
const (
	DefaultMaxUpload    = 10 << 20
	DefaultLoginTimeout = 10 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves metrics from g at /metrics. Without it the endpoint
// is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMaxUpload limits multipart bodies of POST /profile.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithLoginTimeout bounds the wait for the first profile snapshot.
func WithLoginTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.loginTimeout = d
		}
	}
}

// Server serves one session.
type Server struct {
	sess         *session.Session
	gatherer     prometheus.Gatherer
	maxUpload    int64
	loginTimeout time.Duration
	upgrader     websocket.Upgrader
}

// New creates a Server for sess.
func New(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		sess:         sess,
		maxUpload:    DefaultMaxUpload,
		loginTimeout: DefaultLoginTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/state", s.getState)
	r.Get("/catalog", s.getCatalog)
	r.Get("/categories", s.getCategories)

	r.Route("/cart", func(r chi.Router) {
		r.Delete("/", s.clearCart)
		r.Post("/{id}", s.addToCart)
		r.Delete("/{id}", s.removeFromCart)
		r.Post("/{id}/increment", s.incrementCart)
		r.Post("/{id}/decrement", s.decrementCart)
	})

	r.Post("/notifications/dismiss", s.dismiss)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.signUp)
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
		r.Post("/reset", s.resetPassword)
	})
	r.Post("/profile", s.editProfile)

	r.Get("/events", s.events)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, "invalid body: "+err.Error())
		return false
	}
	return true
}

// ---- queries ----

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Store().Snapshot())
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	items := s.sess.Store().Catalog()
	if where := r.URL.Query().Get("where"); where != "" {
		filtered, err := catalog.Filter(items, where)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
		items = filtered
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Store().Categories())
}

// ---- cart ----

func (s *Server) cartResult(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Store().Snapshot())
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	s.cartResult(w, s.sess.Cart().Add(chi.URLParam(r, "id")))
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	s.cartResult(w, s.sess.Cart().Remove(chi.URLParam(r, "id")))
}

func (s *Server) incrementCart(w http.ResponseWriter, r *http.Request) {
	_, err := s.sess.Cart().Increment(chi.URLParam(r, "id"))
	s.cartResult(w, err)
}

func (s *Server) decrementCart(w http.ResponseWriter, r *http.Request) {
	_, err := s.sess.Cart().Decrement(chi.URLParam(r, "id"))
	s.cartResult(w, err)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.sess.Cart().Clear()
	s.cartResult(w, nil)
}

// ---- notifications ----

func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	if !s.sess.Notifications().Dismiss() {
		writeErrorCode(w, http.StatusConflict, CodeConflict, "no notification is displayed")
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Store().Snapshot())
}

// ---- auth ----

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.sess.Auth().SignUp(r.Context(), auth.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	acct, err := s.sess.Auth().Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.loginTimeout)
	defer cancel()
	if err := s.sess.Auth().AfterLogin(ctx, acct); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Store().Snapshot())
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.sess.Auth().Logout(r.Context())
	writeJSON(w, http.StatusOK, s.sess.Store().Snapshot())
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.sess.Auth().ResetPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// editProfile takes a multipart form with name, phone and an optional
// avatar file.
func (s *Server) editProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, "invalid form: "+err.Error())
		return
	}

	in := auth.EditInput{
		Name:  r.FormValue("name"),
		Phone: r.FormValue("phone"),
	}

	file, hdr, err := r.FormFile("avatar")
	switch {
	case err == nil:
		defer file.Close()
		in.Avatar = &upload.Asset{
			Name:        hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Size:        hdr.Size,
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, "invalid avatar: "+err.Error())
		return
	}

	if err := s.sess.Auth().EditProfile(r.Context(), in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Store().Snapshot())
}
