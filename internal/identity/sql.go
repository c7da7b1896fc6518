package identity

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/store"
)

// SQLService keeps accounts in the storefront database with bcrypt
// password hashes.
type SQLService struct {
	current

	db   *store.DB
	ids  IDGenerator
	now  func() time.Time
	cost int
}

// SQLOption configures a SQLService.
type SQLOption func(*SQLService)

// WithIDGenerator sets the generator for account ids and reset tokens.
func WithIDGenerator(g IDGenerator) SQLOption {
	return func(s *SQLService) {
		s.ids = g
	}
}

// WithClock sets the time source for created_at/requested_at columns.
func WithClock(now func() time.Time) SQLOption {
	return func(s *SQLService) {
		s.now = now
	}
}

// WithBcryptCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) SQLOption {
	return func(s *SQLService) {
		s.cost = cost
	}
}

// NewSQLService creates an identity service on db.
func NewSQLService(db *store.DB, opts ...SQLOption) *SQLService {
	s := &SQLService{
		db:   db,
		ids:  UUIDv7Generator{},
		now:  time.Now,
		cost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount implements Service.
func (s *SQLService) CreateAccount(ctx context.Context, email, password string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	if err := checkPassword(password); err != nil {
		return Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Account{}, remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return Account{}, remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE email = $1", email).Scan(&existing); err != nil {
		return Account{}, remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}
	if existing > 0 {
		return Account{}, errEmailInUse()
	}

	acct := Account{UID: s.ids.Generate(), Email: email}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO accounts (uid, email, password_hash, created_at) VALUES ($1, $2, $3, $4)",
		acct.UID, acct.Email, string(hash), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Account{}, remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}
	if err := tx.Commit(); err != nil {
		return Account{}, remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}

	s.set(acct)
	slog.Info("account created", "uid", acct.UID)
	return acct, nil
}

// SignIn implements Service.
func (s *SQLService) SignIn(ctx context.Context, email, password string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}

	var uid, hash string
	err = s.db.QueryRowContext(ctx, "SELECT uid, password_hash FROM accounts WHERE email = $1", email).Scan(&uid, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, errUserNotFound()
	}
	if err != nil {
		return Account{}, remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Account{}, errWrongPassword()
	}

	acct := Account{UID: uid, Email: email}
	s.set(acct)
	slog.Info("account signed in", "uid", uid)
	return acct, nil
}

// SignOut implements Service. Signing out with nobody signed in succeeds.
func (s *SQLService) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}
	s.clear()
	return nil
}

// SendPasswordReset implements Service. The request is recorded in
// password_resets; delivering the email is left to whoever reads that table.
func (s *SQLService) SendPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	var uid string
	err = s.db.QueryRowContext(ctx, "SELECT uid FROM accounts WHERE email = $1", email).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return errUserNotFound()
	}
	if err != nil {
		return remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO password_resets (token, email, requested_at) VALUES ($1, $2, $3)",
		s.ids.Generate(), email, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}
	slog.Info("password reset requested", "uid", uid)
	return nil
}
