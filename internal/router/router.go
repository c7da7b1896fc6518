// Package router abstracts the navigation the workflows perform after a
// successful login, logout or profile edit.
package router

import (
	"strings"
	"sync"
)

// DefaultTarget is used when no redirect target is pending.
const DefaultTarget = "/"

// Router navigates the client.
type Router interface {
	// Navigate moves to path.
	Navigate(path string)

	// RedirectTarget returns the location the user was headed to before
	// being sent to the login page, or "" when there is none.
	RedirectTarget() string
}

// Redirect navigates to r's redirect target, or DefaultTarget when empty,
// and returns the path used.
func Redirect(r Router) string {
	target := strings.TrimSpace(r.RedirectTarget())
	if target == "" {
		target = DefaultTarget
	}
	r.Navigate(target)
	return target
}

// History is an in-process Router that records every navigation.
//
// Thread-safety: History is safe for concurrent use via internal mutex.
type History struct {
	mu       sync.Mutex
	current  string
	redirect string
	visits   []string
}

// NewHistory creates a History positioned at start.
func NewHistory(start string) *History {
	if start == "" {
		start = DefaultTarget
	}
	return &History{current: start}
}

// Navigate implements Router. It consumes any pending redirect target.
func (h *History) Navigate(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = path
	h.redirect = ""
	h.visits = append(h.visits, path)
}

// RedirectTarget implements Router.
func (h *History) RedirectTarget() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.redirect
}

// SetRedirect records where to go after the next login.
func (h *History) SetRedirect(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redirect = path
}

// Current returns the current location.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Visits returns every navigated path, oldest first.
func (h *History) Visits() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.visits))
	copy(out, h.visits)
	return out
}
