package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/campusfleet/exam-service/internal/config"
	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
)

// Context keys populated by the auth middleware.
const (
	ctxKeyUserID    = "user_id"
	ctxKeyUser      = "user"
	ctxKeyUserRole  = "user_role"
	ctxKeyUserEmail = "user_email"
)

// CasdoorAuthMiddleware authenticates requests with Casdoor-issued JWTs and
// resolves the token subject to a user record.
type CasdoorAuthMiddleware struct {
	client   *casdoorsdk.Client
	userRepo repositories.UserRepository
}

func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, userRepo repositories.UserRepository) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Application,
		cfg.Organization,
	)

	return &CasdoorAuthMiddleware{
		client:   client,
		userRepo: userRepo,
	}
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// resolved user in the Gin context.
func (m *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		claims, err := m.client.ParseJwtToken(token)
		if err != nil {
			abortUnauthorized(c, fmt.Sprintf("invalid token: %v", err))
			return
		}

		user, err := m.resolveUser(c.Request.Context(), claims)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(ctxKeyUserID, user.ID)
		c.Set(ctxKeyUser, user)
		c.Set(ctxKeyUserRole, user.Role)
		c.Set(ctxKeyUserEmail, user.Email)

		c.Next()
	}
}

// RequireRoleMiddleware gates a route group on the caller's role. Admins pass
// every gate.
func (m *CasdoorAuthMiddleware) RequireRoleMiddleware(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.JSON(http.StatusForbidden, ErrorResponse{Message: "forbidden", Details: err.Error()})
			c.Abort()
			return
		}

		if role != models.RoleAdmin && !containsRole(roles, role) {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Message: "forbidden",
				Details: fmt.Sprintf("requires one of roles %v", roles),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// resolveUser prefers the repository (cache or Casdoor) and falls back to the
// claims themselves when the subject is not known there yet.
func (m *CasdoorAuthMiddleware) resolveUser(ctx context.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	if claims.Id == "" {
		return nil, fmt.Errorf("token carries no subject")
	}

	if user, err := m.userRepo.GetByID(ctx, claims.Id); err == nil {
		return user, nil
	}

	return &models.User{
		ID:       claims.Id,
		FullName: claims.User.DisplayName,
		Email:    claims.User.Email,
		Role:     roleFromCasdoorType(claims.User.Type),
	}, nil
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return token, true
}

func abortUnauthorized(c *gin.Context, details string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized", Details: details})
	c.Abort()
}

func containsRole(roles []models.UserRole, role models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func roleFromCasdoorType(casdoorType string) models.UserRole {
	switch strings.ToLower(casdoorType) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "teacher", "instructor", "educator":
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}

// GetUserIDFromContext returns the authenticated caller's ID.
func GetUserIDFromContext(c *gin.Context) (string, error) {
	v, exists := c.Get(ctxKeyUserID)
	if !exists {
		return "", fmt.Errorf("user ID not found in context")
	}
	id, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("invalid user ID type in context")
	}
	return id, nil
}

// GetUserRoleFromContext returns the authenticated caller's role.
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	v, exists := c.Get(ctxKeyUserRole)
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}
	role, ok := v.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}
	return role, nil
}
