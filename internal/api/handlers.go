/**
 * @description
 * This file contains the HTTP handlers for the statement endpoints. Handlers
 * are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act
 * as the bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameters.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finbook/statement-service/internal/app"
	"github.com/finbook/statement-service/internal/domain"
	"github.com/finbook/statement-service/internal/store"
)

// StatementHandlers holds the application services that handlers will use.
type StatementHandlers struct {
	service *app.Service
	users   *app.UserService
}

// NewStatementHandlers creates a new instance of StatementHandlers.
func NewStatementHandlers(service *app.Service, users *app.UserService) *StatementHandlers {
	return &StatementHandlers{service: service, users: users}
}

// DepositHandler handles requests to post a deposit.
func (h *StatementHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, domain.OperationDeposit)
}

// WithdrawHandler handles requests to post a withdrawal.
func (h *StatementHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, domain.OperationWithdraw)
}

// TransferHandler handles requests to transfer funds to another account.
// The recipient is addressed by the receiver_user_id path parameter.
func (h *StatementHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	receiverID, err := uuid.Parse(chi.URLParam(r, "receiver_user_id"))
	if err != nil {
		log.Printf("level=warn component=api endpoint=transfer outcome=reject reason=invalid_receiver_id err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid receiver user ID")
		return
	}

	var req domain.StatementOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=transfer outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	st, err := h.service.CreateStatement(r.Context(), domain.CreateStatementInput{
		UserID:         userID,
		ReceiverUserID: &receiverID,
		Type:           domain.OperationTransfer,
		Amount:         req.Amount,
		Description:    req.Description,
	})
	if err != nil {
		h.writeStatementError(w, "transfer", userID, err)
		return
	}

	log.Printf("level=info component=api endpoint=transfer outcome=created sender_id=%s receiver_id=%s amount=%s", userID, receiverID, st.Amount)
	h.writeJSON(w, http.StatusCreated, st)
}

// BalanceHandler returns the caller's current balance plus the contributing
// statements.
func (h *StatementHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("level=error component=api endpoint=balance outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, balance)
}

// GetStatementHandler returns one statement by ID, scoped to the caller.
func (h *StatementHandlers) GetStatementHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	statementID, err := uuid.Parse(chi.URLParam(r, "statement_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid statement ID")
		return
	}

	st, err := h.service.GetStatement(r.Context(), userID, statementID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, store.ErrStatementNotFound):
			h.writeError(w, http.StatusNotFound, "Statement not found")
		default:
			log.Printf("level=error component=api endpoint=get_statement outcome=failed user_id=%s err=%v", userID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, st)
}

// createStatement is the shared flow for deposit and withdraw requests.
func (h *StatementHandlers) createStatement(w http.ResponseWriter, r *http.Request, opType domain.OperationType) {
	userID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	var req domain.StatementOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=%s outcome=reject reason=invalid_json err=%v", opType, err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	st, err := h.service.CreateStatement(r.Context(), domain.CreateStatementInput{
		UserID:      userID,
		Type:        opType,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		h.writeStatementError(w, string(opType), userID, err)
		return
	}

	log.Printf("level=info component=api endpoint=%s outcome=created user_id=%s amount=%s", opType, userID, st.Amount)
	h.writeJSON(w, http.StatusCreated, st)
}

// writeStatementError maps statement service errors onto HTTP status codes.
func (h *StatementHandlers) writeStatementError(w http.ResponseWriter, endpoint string, userID uuid.UUID, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrReceiverUserNotFound):
		h.writeError(w, http.StatusNotFound, "Receiver user not found")
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusBadRequest, "Insufficient funds")
	case errors.Is(err, app.ErrInvalidAmount), errors.Is(err, app.ErrInvalidOperationType):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		var limited *app.RateLimitedError
		if errors.As(err, &limited) && limited.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds))
		}
		h.writeError(w, http.StatusTooManyRequests, "Too many statement operations. Please wait and try again.")
	default:
		log.Printf("level=error component=api endpoint=%s outcome=failed user_id=%s err=%v", endpoint, userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *StatementHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *StatementHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"message": message})
}
