package identity

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/storefront/internal/remote"
)

// Op names a Service method, for failure injection.
type Op string

const (
	OpCreateAccount     Op = "create_account"
	OpSignIn            Op = "sign_in"
	OpSignOut           Op = "sign_out"
	OpSendPasswordReset Op = "send_password_reset"
)

type memoryAccount struct {
	uid  string
	hash []byte
}

// MemoryService is an in-memory Service for development and tests.
// Failures can be injected per operation with FailNext.
type MemoryService struct {
	current

	mu       sync.Mutex
	ids      IDGenerator
	accounts map[string]memoryAccount // by email
	resets   []string
	failures map[Op][]error
}

// NewMemoryService creates an empty service. ids may be nil for UUIDv7 ids.
func NewMemoryService(ids IDGenerator) *MemoryService {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &MemoryService{
		ids:      ids,
		accounts: make(map[string]memoryAccount),
		failures: make(map[Op][]error),
	}
}

// FailNext makes the next call of op return err. Calls queue up.
func (m *MemoryService) FailNext(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

func (m *MemoryService) popFailureLocked(op Op) error {
	q := m.failures[op]
	if len(q) == 0 {
		return nil
	}
	m.failures[op] = q[1:]
	return q[0]
}

// CreateAccount implements Service.
func (m *MemoryService) CreateAccount(ctx context.Context, email, password string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.popFailureLocked(OpCreateAccount); err != nil {
		return Account{}, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	if err := checkPassword(password); err != nil {
		return Account{}, err
	}
	if _, exists := m.accounts[email]; exists {
		return Account{}, errEmailInUse()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return Account{}, remote.Wrap(remote.ServiceIdentity, CodeInternal, err)
	}
	acct := Account{UID: m.ids.Generate(), Email: email}
	m.accounts[email] = memoryAccount{uid: acct.UID, hash: hash}
	m.set(acct)
	return acct, nil
}

// SignIn implements Service.
func (m *MemoryService) SignIn(ctx context.Context, email, password string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.popFailureLocked(OpSignIn); err != nil {
		return Account{}, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	rec, ok := m.accounts[email]
	if !ok {
		return Account{}, errUserNotFound()
	}
	if bcrypt.CompareHashAndPassword(rec.hash, []byte(password)) != nil {
		return Account{}, errWrongPassword()
	}
	acct := Account{UID: rec.uid, Email: email}
	m.set(acct)
	return acct, nil
}

// SignOut implements Service.
func (m *MemoryService) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.popFailureLocked(OpSignOut); err != nil {
		return err
	}
	m.clear()
	return nil
}

// SendPasswordReset implements Service.
func (m *MemoryService) SendPasswordReset(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.popFailureLocked(OpSendPasswordReset); err != nil {
		return err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if _, ok := m.accounts[email]; !ok {
		return errUserNotFound()
	}
	m.resets = append(m.resets, email)
	return nil
}

// Resets returns the emails a reset was requested for, in order.
func (m *MemoryService) Resets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.resets))
	copy(out, m.resets)
	return out
}
