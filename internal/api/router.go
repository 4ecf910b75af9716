/**
 * @description
 * This file sets up the HTTP router for the statement-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies middleware such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes creates and returns the router for the statement service.
func Routes(h *StatementHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints.
		r.Post("/users", h.CreateUserHandler)
		r.Post("/sessions", h.SessionHandler)

		// Group routes that require authentication.
		r.Group(func(r chi.Router) {
			r.Use(SessionAuthMiddleware(jwtSecret))

			r.Get("/profile", h.ProfileHandler)

			r.Post("/statements/deposit", h.DepositHandler)
			r.Post("/statements/withdraw", h.WithdrawHandler)
			r.Post("/statements/transfer/{receiver_user_id}", h.TransferHandler)
			r.Get("/statements/balance", h.BalanceHandler)
			r.Get("/statements/{statement_id}", h.GetStatementHandler)
		})
	})

	return r
}
