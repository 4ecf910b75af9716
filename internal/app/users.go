/**
 * @description
 * This file contains the user management logic: registration, session
 * authentication, and profile lookup. It is deliberately thin; the statement
 * service only depends on the account directory interface, not on anything
 * here.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: For issuing session tokens.
 * - golang.org/x/crypto/bcrypt: For password hashing.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finbook/statement-service/internal/domain"
	"github.com/finbook/statement-service/internal/store"
)

var ErrIncorrectEmailOrPassword = errors.New("incorrect email or password")

// UserService handles registration, authentication, and profile lookup.
type UserService struct {
	users     store.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewUserService creates a new user service instance.
func NewUserService(users store.UserRepository, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// Register creates a new account holder with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, errors.New("name, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies the credentials and issues a signed session token.
// A wrong email and a wrong password both yield the same error so the API
// does not leak which accounts exist.
func (s *UserService) Authenticate(ctx context.Context, req domain.SessionRequest) (*domain.Session, error) {
	user, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrIncorrectEmailOrPassword
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrIncorrectEmailOrPassword
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.Session{User: user, Token: signed}, nil
}

// Profile returns the account holder's details.
func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.FindUserByID(ctx, userID)
}
