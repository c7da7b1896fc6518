// Package identity provides the account service the storefront signs users
// in with: create account, sign in, sign out and password reset.
//
// Implementations track the currently signed-in account, as the session's
// workflows key profile records and uploads by it. Failures are reported as
// *remote.Error with the codes below.
package identity

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/storefront/internal/remote"
)

// Error codes.
const (
	CodeEmailInUse    = "auth/email-already-in-use"
	CodeInvalidEmail  = "auth/invalid-email"
	CodeWeakPassword  = "auth/weak-password"
	CodeUserNotFound  = "auth/user-not-found"
	CodeWrongPassword = "auth/wrong-password"
	CodeNoCurrentUser = "auth/no-current-user"
	CodeInternal      = "auth/internal-error"
)

// MinPasswordLength is the shortest password CreateAccount accepts.
const MinPasswordLength = 6

// Account is a signed-in identity.
type Account struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Service is the identity collaborator.
type Service interface {
	// CreateAccount registers a new account and signs it in.
	CreateAccount(ctx context.Context, email, password string) (Account, error)

	// SignIn checks credentials and makes the account current.
	SignIn(ctx context.Context, email, password string) (Account, error)

	// SignOut clears the current account.
	SignOut(ctx context.Context) error

	// SendPasswordReset issues a reset request for a registered email.
	SendPasswordReset(ctx context.Context, email string) error

	// Current returns the signed-in account.
	Current() (Account, bool)
}

// IDGenerator generates account ids and reset tokens.
// Implemented by UUIDv7Generator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// normalizeEmail lower-cases and trims an address and checks its syntax.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", remote.New(remote.ServiceIdentity, CodeInvalidEmail, "The email address is badly formatted.")
	}
	return email, nil
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return remote.New(remote.ServiceIdentity, CodeWeakPassword, "Password should be at least 6 characters.")
	}
	return nil
}

func errUserNotFound() error {
	return remote.New(remote.ServiceIdentity, CodeUserNotFound, "There is no user record corresponding to this identifier.")
}

func errWrongPassword() error {
	return remote.New(remote.ServiceIdentity, CodeWrongPassword, "The password is invalid.")
}

func errEmailInUse() error {
	return remote.New(remote.ServiceIdentity, CodeEmailInUse, "The email address is already in use by another account.")
}
