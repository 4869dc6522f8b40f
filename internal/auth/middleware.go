package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/apperr"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

type contextKey string

const userContextKey contextKey = "user"

// Middleware authenticates requests with a Bearer token and attaches the
// resolved user to the request context.
type Middleware struct {
	tokens *TokenManager
	users  storage.UserStore
	log    *slog.Logger
}

func NewMiddleware(tokens *TokenManager, users storage.UserStore, log *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, users: users, log: log}
}

func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			m.reject(w, apperr.Authentication("no token provided"))
			return
		}

		user, err := m.Resolve(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			m.reject(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Resolve verifies a raw token and loads its user. The user must exist and
// have completed verification; both failures read the same as a bad token.
func (m *Middleware) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := m.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := m.users.Find(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Authentication("user not found")
	}
	if !user.Verified {
		return nil, apperr.Authentication("please verify your mobile number first")
	}
	return user, nil
}

func (m *Middleware) reject(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": apperr.MessageOf(err),
	})
}

// UserFromContext retrieves the authenticated user set by Require.
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
