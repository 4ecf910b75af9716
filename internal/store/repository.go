/**
 * @description
 * This file defines the repository interfaces that specify the contract for all
 * data access operations required by the statement-service. By defining
 * interfaces, we decouple the application's business logic from the specific
 * database implementation (PostgreSQL or the in-memory store used by tests),
 * making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/finbook/statement-service/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrReceiverUserNotFound = errors.New("receiver user not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrStatementNotFound    = errors.New("statement not found")
	ErrEmailTaken           = errors.New("email already registered")
)

// StatementRepository is the append-only ledger store. Once appended, a
// statement is retrievable by ID forever; no update or delete operation is
// part of the contract.
type StatementRepository interface {
	// CreateStatement appends a new statement and fills in its timestamps.
	CreateStatement(ctx context.Context, st *domain.Statement) error

	// FindStatementByID returns the statement with the given ID, scoped to the
	// owning user. ErrStatementNotFound when absent or owned by someone else.
	FindStatementByID(ctx context.Context, userID, statementID uuid.UUID) (*domain.Statement, error)

	// FindStatementsByUser returns every statement the user owns or receives
	// (as transfer recipient), in creation order.
	FindStatementsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Statement, error)
}

// UserRepository is the account directory. The statement service only
// consults it for existence; the user management endpoints use the rest.
type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
