package identity

import "sync"

// current tracks the signed-in account for a Service implementation.
type current struct {
	mu      sync.RWMutex
	account *Account
}

func (c *current) set(a Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = &a
}

func (c *current) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = nil
}

// Current returns the signed-in account.
func (c *current) Current() (Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.account == nil {
		return Account{}, false
	}
	return *c.account, true
}
