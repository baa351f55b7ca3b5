package middleware

import (
	"context"
	"net/http"
	"strings"

	"loved-api/internal/auth"
	"loved-api/internal/logger"
	"loved-api/internal/models"
)

type contextKey string

const capabilitiesKey contextKey = "capabilities"

// RoleLoader loads the role rows of a user
type RoleLoader interface {
	GetUserRoles(ctx context.Context, userID int64) ([]models.UserRole, error)
}

// AuthMiddleware validates JWT tokens and resolves the actor's capabilities
type AuthMiddleware struct {
	authService *auth.Service
	roles       RoleLoader
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *auth.Service, roles RoleLoader) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		roles:       roles,
	}
}

// Authenticate validates the bearer token and stores the actor's capabilities
// in the request context. Roles are loaded once per request.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		roles, err := m.roles.GetUserRoles(r.Context(), claims.UserID)
		if err != nil {
			logger.FromContext(r.Context()).Error("Failed to load user roles", "user_id", claims.UserID, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to load user roles")
			return
		}

		ctx := context.WithValue(r.Context(), capabilitiesKey, auth.NewCapabilities(claims.UserID, roles))
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("user_id", claims.UserID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCapabilities retrieves the actor's capabilities from the request context
func GetCapabilities(r *http.Request) (*auth.Capabilities, bool) {
	caps, ok := r.Context().Value(capabilitiesKey).(*auth.Capabilities)
	return caps, ok && caps != nil
}

// WithCapabilities stores caps in ctx
func WithCapabilities(ctx context.Context, caps *auth.Capabilities) context.Context {
	return context.WithValue(ctx, capabilitiesKey, caps)
}

// Helper function to respond with JSON error
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
