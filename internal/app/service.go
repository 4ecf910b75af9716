/**
 * @description
 * This file contains the core business logic for the statement-service. The
 * `Service` struct orchestrates statement posting and balance computation,
 * coordinating between the account directory, the ledger store, and the
 * message broker.
 *
 * Key behavior:
 * - CreateStatement enforces preconditions in a fixed order: sender
 *   existence, then funds sufficiency (withdraw/transfer), then receiver
 *   existence (transfer). The first violated precondition wins, which is
 *   observable through which error surfaces when several are violated.
 * - The check-then-append sequence is serialized per account; see
 *   account_locks.go.
 * - GetBalance folds the user's ledger: deposits and received transfers add,
 *   withdrawals and sent transfers subtract. The balance is never stored.
 *
 * @dependencies
 * - context, errors, fmt, log: Standard Go libraries.
 * - github.com/google/uuid: For statement ID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For publishing statement events.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/finbook/statement-service/internal/domain"
	"github.com/finbook/statement-service/internal/store"
	"github.com/finbook/statement-service/pkg/rabbitmq"
)

var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidOperationType = errors.New("invalid operation type")
	ErrRateLimited          = errors.New("too many statement operations")
)

// RateLimitedError reports a rejected statement operation together with how
// long the caller should wait before retrying. It matches ErrRateLimited
// under errors.Is.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// RateLimiter counts an operation for a subject inside a fixed window and
// reports how many have been seen so far.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for statements.
type Service struct {
	users      store.UserRepository
	statements store.StatementRepository
	events     rabbitmq.Publisher
	locks      *accountLocks

	limiter           RateLimiter
	createLimitPerMin int
}

// NewService creates a new statement service instance. producer may be nil
// when the broker is unavailable; event publishing is best-effort.
func NewService(users store.UserRepository, statements store.StatementRepository, producer rabbitmq.Publisher) *Service {
	return &Service{
		users:      users,
		statements: statements,
		events:     producer,
		locks:      newAccountLocks(),
	}
}

// SetStatementRateLimiter enables distributed rate limiting on statement
// creation. A limit of zero disables it.
func (s *Service) SetStatementRateLimiter(limiter RateLimiter, limitPerMinute int) {
	s.limiter = limiter
	s.createLimitPerMin = limitPerMinute
}

// CreateStatement validates and appends one ledger entry, returning the
// created record. Exactly one statement is appended on success; nothing is
// written on failure.
func (s *Service) CreateStatement(ctx context.Context, input domain.CreateStatementInput) (*domain.Statement, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidOperationType
	}
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if err := s.consumeCreateRateLimit(ctx, input.UserID); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(input.UserID)
	defer unlock()

	// Sender existence is checked first, unconditionally. An account deleted
	// between authentication and posting must surface as user-not-found.
	if _, err := s.users.FindUserByID(ctx, input.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("find sender: %w", err)
	}

	if input.Type == domain.OperationWithdraw || input.Type == domain.OperationTransfer {
		balance, err := s.computeBalance(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		if balance.LessThan(input.Amount) {
			return nil, store.ErrInsufficientFunds
		}
	}

	var receiverID *uuid.UUID
	if input.Type == domain.OperationTransfer {
		if input.ReceiverUserID == nil {
			return nil, store.ErrReceiverUserNotFound
		}
		if _, err := s.users.FindUserByID(ctx, *input.ReceiverUserID); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return nil, store.ErrReceiverUserNotFound
			}
			return nil, fmt.Errorf("find receiver: %w", err)
		}
		id := *input.ReceiverUserID
		receiverID = &id
	}

	st := &domain.Statement{
		ID:             uuid.New(),
		UserID:         input.UserID,
		ReceiverUserID: receiverID,
		Type:           input.Type,
		Amount:         input.Amount,
		Description:    input.Description,
	}
	if err := s.statements.CreateStatement(ctx, st); err != nil {
		return nil, err
	}

	s.publishStatementCreated(ctx, st)
	return st, nil
}

// GetBalance derives the user's current balance from their ledger entries and
// returns it together with the contributing statements in creation order.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	statements, err := s.statements.FindStatementsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}

	return &domain.Balance{
		Statement: statements,
		Balance:   foldBalance(userID, statements),
	}, nil
}

// GetStatement looks up a single statement by ID, scoped to the requesting
// user.
func (s *Service) GetStatement(ctx context.Context, userID, statementID uuid.UUID) (*domain.Statement, error) {
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.statements.FindStatementByID(ctx, userID, statementID)
}

func (s *Service) computeBalance(ctx context.Context, userID uuid.UUID) (domain.Money, error) {
	statements, err := s.statements.FindStatementsByUser(ctx, userID)
	if err != nil {
		return domain.Money{}, fmt.Errorf("list statements: %w", err)
	}
	return foldBalance(userID, statements), nil
}

// foldBalance sums statement contributions for one user. The fold is
// commutative, so ordering does not matter for correctness.
func foldBalance(userID uuid.UUID, statements []domain.Statement) domain.Money {
	balance := domain.MoneyFromInt(0)
	for _, st := range statements {
		switch st.Type {
		case domain.OperationDeposit:
			balance = balance.Add(st.Amount)
		case domain.OperationWithdraw:
			balance = balance.Sub(st.Amount)
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

func (s *Service) consumeCreateRateLimit(ctx context.Context, userID uuid.UUID) error {
	if s.limiter == nil || s.createLimitPerMin <= 0 {
		return nil
	}
	count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, "statement_create", userID.String(), s.createLimitPerMin, time.Minute)
	if err != nil {
		log.Printf("level=warn component=app msg=\"rate limiter unavailable; allowing operation\" user_id=%s err=%v", userID, err)
		return nil
	}
	if count > s.createLimitPerMin {
		return &RateLimitedError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

func (s *Service) publishStatementCreated(ctx context.Context, st *domain.Statement) {
	if s.events == nil {
		return
	}
	event := rabbitmq.StatementCreatedEvent{
		StatementID:    st.ID,
		UserID:         st.UserID,
		ReceiverUserID: st.ReceiverUserID,
		Type:           string(st.Type),
		Amount:         st.Amount.String(),
		Timestamp:      st.CreatedAt,
	}
	if err := s.events.PublishStatementCreated(ctx, event); err != nil {
		log.Printf("level=warn component=app msg=\"statement event publish failed\" statement_id=%s err=%v", st.ID, err)
	}
}
