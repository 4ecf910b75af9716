/**
 * @description
 * This file provides the PostgreSQL implementation of the repository
 * interfaces. It contains all the SQL needed to interact with the `users` and
 * `statements` tables.
 *
 * Withdrawals and transfers are appended inside a transaction that holds a
 * per-account advisory lock, so two concurrent spends against the same
 * account cannot both pass the funds check even across service instances.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbook/statement-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the repository
// interfaces for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const statementColumns = `id, user_id, receiver_user_id, type, amount::text, description, created_at, updated_at`

// balanceQuery folds a user's ledger: deposits and received transfers add,
// withdrawals and sent transfers subtract. A self-transfer nets to zero.
const balanceQuery = `
	SELECT COALESCE(SUM(
		CASE
			WHEN type = 'deposit' THEN amount
			WHEN type = 'withdraw' THEN -amount
			WHEN user_id = $1 AND receiver_user_id = $1 THEN 0
			WHEN user_id = $1 THEN -amount
			ELSE amount
		END
	), 0)::text
	FROM statements
	WHERE user_id = $1 OR receiver_user_id = $1
`

// CreateStatement appends a new statement row. For withdraw and transfer
// entries it re-validates funds sufficiency under a per-account advisory
// lock; the service has already checked, but only this check is race-free
// when multiple instances share the database.
func (r *PostgresRepository) CreateStatement(ctx context.Context, st *domain.Statement) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin statement tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if st.Type == domain.OperationWithdraw || st.Type == domain.OperationTransfer {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1::text))", st.UserID); err != nil {
			return fmt.Errorf("acquire account lock: %w", err)
		}

		var balanceText string
		if err := tx.QueryRow(ctx, balanceQuery, st.UserID).Scan(&balanceText); err != nil {
			return fmt.Errorf("compute balance: %w", err)
		}
		balance, err := domain.MoneyFromString(balanceText)
		if err != nil {
			return err
		}
		if balance.LessThan(st.Amount) {
			return ErrInsufficientFunds
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO statements (id, user_id, receiver_user_id, type, amount, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, st.ID, st.UserID, st.ReceiverUserID, string(st.Type), st.Amount.Decimal.String(), st.Description).Scan(&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// Foreign key violation: the account disappeared between the
			// service's existence check and the append.
			return ErrUserNotFound
		}
		return fmt.Errorf("insert statement: %w", err)
	}

	return tx.Commit(ctx)
}

// FindStatementByID retrieves a statement by ID scoped to the owning user.
func (r *PostgresRepository) FindStatementByID(ctx context.Context, userID, statementID uuid.UUID) (*domain.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM statements WHERE id = $1 AND user_id = $2`
	st, err := scanStatement(r.db.QueryRow(ctx, query, statementID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatementNotFound
		}
		return nil, err
	}
	return st, nil
}

// FindStatementsByUser retrieves every statement the user owns or receives,
// in creation order.
func (r *PostgresRepository) FindStatementsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM statements WHERE user_id = $1 OR receiver_user_id = $1 ORDER BY seq`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statements := make([]domain.Statement, 0)
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		statements = append(statements, *st)
	}
	return statements, rows.Err()
}

// CreateUser inserts a new account holder.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, u.ID, u.Name, u.Email, u.PasswordHash).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user from the database by their ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var u domain.User
	query := `SELECT id, name, email, password, created_at, updated_at FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail retrieves a user from the database by their email address.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	query := `SELECT id, name, email, password, created_at, updated_at FROM users WHERE lower(email) = lower($1)`
	err := r.db.QueryRow(ctx, query, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanStatement(row pgx.Row) (*domain.Statement, error) {
	var (
		st         domain.Statement
		opType     string
		amountText string
	)
	err := row.Scan(&st.ID, &st.UserID, &st.ReceiverUserID, &opType, &amountText, &st.Description, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.Type = domain.OperationType(opType)
	st.Amount, err = domain.MoneyFromString(amountText)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
