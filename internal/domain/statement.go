/**
 * @description
 * This file defines the core domain models for the statement-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are handled with `shopspring/decimal` wrapped in the `Money` type,
 *   which avoids floating-point inaccuracies with financial data and renders
 *   with two decimal places on the wire (e.g., "400.00").
 * - A Statement is append-only: it is created exactly once and never mutated
 *   or deleted afterwards.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// OperationType enumerates the kinds of ledger entries a statement can record.
type OperationType string

const (
	OperationDeposit  OperationType = "deposit"
	OperationWithdraw OperationType = "withdraw"
	OperationTransfer OperationType = "transfer"
)

// Valid reports whether the operation type is one of the known kinds.
func (t OperationType) Valid() bool {
	switch t {
	case OperationDeposit, OperationWithdraw, OperationTransfer:
		return true
	}
	return false
}

// Statement is one immutable ledger entry. For transfers, UserID is the
// sender and ReceiverUserID the recipient; for deposits and withdrawals
// ReceiverUserID is nil. This struct maps directly to the `statements` table.
type Statement struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	ReceiverUserID *uuid.UUID    `json:"receiver_user_id,omitempty"`
	Type           OperationType `json:"type"`
	Amount         Money         `json:"amount"`
	Description    string        `json:"description"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// CreateStatementInput carries everything the statement service needs to
// append a new ledger entry.
type CreateStatementInput struct {
	UserID         uuid.UUID
	ReceiverUserID *uuid.UUID
	Type           OperationType
	Amount         Money
	Description    string
}

// Balance is the result of folding a user's ledger entries: the net balance
// plus the contributing statements in creation order. The `statement` key
// name matches the shape the mobile and web clients already consume.
type Balance struct {
	Statement []Statement `json:"statement"`
	Balance   Money       `json:"balance"`
}

// StatementOperationRequest is the DTO for incoming deposit and withdraw API requests.
type StatementOperationRequest struct {
	Amount      Money  `json:"amount"`
	Description string `json:"description"`
}
