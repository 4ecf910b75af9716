package app

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocks hands out one mutex per account so the balance-check-then-
// append sequence is serialized for a given sender. Without it, two
// concurrent withdrawals could both pass the funds check before either
// appends.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lock acquires the mutex for the given account and returns its unlock func.
func (a *accountLocks) lock(accountID uuid.UUID) func() {
	a.mu.Lock()
	m, ok := a.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		a.locks[accountID] = m
	}
	a.mu.Unlock()

	m.Lock()
	return m.Unlock
}
