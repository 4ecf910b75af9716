/**
 * @description
 * This file provides the in-memory implementation of the repository
 * interfaces. It backs the unit tests and satisfies exactly the same
 * contract as the PostgreSQL implementation (see repository_contract_test.go).
 *
 * @notes
 * - Maps guarded by a mutex; statements additionally keep an insertion-order
 *   slice so FindStatementsByUser can return entries in creation order.
 * - Like the PostgreSQL implementation, appending a withdraw or transfer that
 *   exceeds the owner's balance is rejected with ErrInsufficientFunds.
 */

package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finbook/statement-service/internal/domain"
)

// MemoryRepository is an in-memory implementation of StatementRepository and
// UserRepository.
type MemoryRepository struct {
	mu         sync.Mutex
	users      map[uuid.UUID]domain.User
	statements map[uuid.UUID]domain.Statement
	order      []uuid.UUID
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[uuid.UUID]domain.User),
		statements: make(map[uuid.UUID]domain.Statement),
	}
}

// CreateStatement appends a new statement and stamps its timestamps.
func (r *MemoryRepository) CreateStatement(ctx context.Context, st *domain.Statement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[st.UserID]; !ok {
		return ErrUserNotFound
	}

	if st.Type == domain.OperationWithdraw || st.Type == domain.OperationTransfer {
		if r.balanceLocked(st.UserID).LessThan(st.Amount) {
			return ErrInsufficientFunds
		}
	}

	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	r.statements[st.ID] = *st
	r.order = append(r.order, st.ID)
	return nil
}

// balanceLocked folds the user's ledger entries. Callers must hold r.mu.
func (r *MemoryRepository) balanceLocked(userID uuid.UUID) domain.Money {
	balance := domain.MoneyFromInt(0)
	for _, id := range r.order {
		st := r.statements[id]
		switch st.Type {
		case domain.OperationDeposit:
			if st.UserID == userID {
				balance = balance.Add(st.Amount)
			}
		case domain.OperationWithdraw:
			if st.UserID == userID {
				balance = balance.Sub(st.Amount)
			}
		case domain.OperationTransfer:
			if st.UserID == userID {
				balance = balance.Sub(st.Amount)
			}
			if st.ReceiverUserID != nil && *st.ReceiverUserID == userID {
				balance = balance.Add(st.Amount)
			}
		}
	}
	return balance
}

// FindStatementByID returns the statement scoped to the owning user.
func (r *MemoryRepository) FindStatementByID(ctx context.Context, userID, statementID uuid.UUID) (*domain.Statement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.statements[statementID]
	if !ok || st.UserID != userID {
		return nil, ErrStatementNotFound
	}
	out := st
	return &out, nil
}

// FindStatementsByUser returns statements the user owns or receives, in
// creation order.
func (r *MemoryRepository) FindStatementsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Statement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	statements := make([]domain.Statement, 0)
	for _, id := range r.order {
		st := r.statements[id]
		if st.UserID == userID || (st.ReceiverUserID != nil && *st.ReceiverUserID == userID) {
			statements = append(statements, st)
		}
	}
	return statements, nil
}

// CreateUser inserts a new account holder.
func (r *MemoryRepository) CreateUser(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = *u
	return nil
}

// FindUserByID returns the user with the given ID.
func (r *MemoryRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := u
	return &out, nil
}

// FindUserByEmail returns the user with the given email address.
func (r *MemoryRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

// DeleteUser removes a user from the directory. It exists only so tests can
// reproduce the account-deleted-after-authentication edge case; statements
// are never deleted.
func (r *MemoryRepository) DeleteUser(ctx context.Context, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
}
