/**
 * @description
 * This file contains the HTTP handlers for user registration, session
 * creation, and profile lookup.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/finbook/statement-service/internal/app"
	"github.com/finbook/statement-service/internal/domain"
	"github.com/finbook/statement-service/internal/store"
)

// CreateUserHandler handles account registration.
func (h *StatementHandlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			h.writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		log.Printf("level=warn component=api endpoint=create_user outcome=reject err=%v", err)
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("level=info component=api endpoint=create_user outcome=created user_id=%s", user.ID)
	h.writeJSON(w, http.StatusCreated, user)
}

// SessionHandler authenticates a user and returns a session token.
func (h *StatementHandlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	session, err := h.users.Authenticate(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrIncorrectEmailOrPassword) {
			h.writeError(w, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		log.Printf("level=error component=api endpoint=session outcome=failed err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}

// ProfileHandler returns the authenticated user's profile.
func (h *StatementHandlers) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	user, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("level=error component=api endpoint=profile outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}
