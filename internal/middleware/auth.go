package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"retail-backend/internal/auth"
	"retail-backend/internal/models"
)

type contextKey string

const UserIDKey contextKey = "user_id"
const EmailKey contextKey = "email"
const RoleKey contextKey = "role"
const StoreIDKey contextKey = "store_id"

// UserLookup re-reads the caller on every request so role changes and
// suspensions apply before the token expires.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserLookup
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return m.RequireRole()(next)
}

// RequireRole authenticates the caller and, when roles are given, ensures the
// user has one of them. No roles means any authenticated user.
func (m *AuthMiddleware) RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, status, msg := m.resolve(r)
			if user == nil {
				writeAuthError(w, status, msg)
				return
			}

			if len(allowedRoles) > 0 {
				hasRole := false
				for _, role := range allowedRoles {
					if user.Role == role {
						hasRole = true
						break
					}
				}
				if !hasRole {
					writeAuthError(w, http.StatusForbidden, "Forbidden: Insufficient permissions")
					return
				}
			}

			// Database values, not token claims
			ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
			ctx = context.WithValue(ctx, EmailKey, user.Email)
			ctx = context.WithValue(ctx, RoleKey, user.Role)
			if user.StoreID != nil {
				ctx = context.WithValue(ctx, StoreIDKey, *user.StoreID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManager allows managers and admins.
func (m *AuthMiddleware) RequireManager(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleManager, models.RoleAdmin)(next)
}

// RequireAdmin is a middleware that ensures the user has admin role
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleAdmin)(next)
}

func (m *AuthMiddleware) resolve(r *http.Request) (*models.User, int, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, http.StatusUnauthorized, "Authorization header required"
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, http.StatusUnauthorized, "Invalid authorization format"
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	user, err := m.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		return nil, http.StatusUnauthorized, "User not found"
	}
	if !user.IsActive {
		return nil, http.StatusForbidden, "Account suspended. Please contact administrator."
	}
	return user, 0, ""
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	code := "UNAUTHORIZED"
	if status == http.StatusForbidden {
		code = "FORBIDDEN"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}

// GetEmailFromContext extracts email from request context
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

// GetRoleFromContext extracts role from request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// GetStoreIDFromContext returns the caller's home store, if any.
func GetStoreIDFromContext(ctx context.Context) (int, bool) {
	storeID, ok := ctx.Value(StoreIDKey).(int)
	return storeID, ok
}
