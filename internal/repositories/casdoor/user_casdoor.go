package casdoor

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/campusfleet/exam-service/internal/models"
	"github.com/campusfleet/exam-service/internal/repositories"
)

// CasdoorConfig holds the configuration for the Casdoor connection.
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

const (
	userCacheTTL   = 15 * time.Minute
	existsCacheTTL = time.Minute
)

// UserCasdoor is a read-only user lookup backed by Casdoor with a Redis
// read-through cache. The exam service never writes user data.
type UserCasdoor struct {
	client *casdoorsdk.Client
	redis  *redis.Client
}

func NewUserCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.ApplicationName,
		config.OrganizationName,
	)

	return &UserCasdoor{
		client: client,
		redis:  redisClient,
	}
}

// GetByID resolves a user by Casdoor ID.
func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	return u.lookup(ctx, "id:"+id, id, func() (*casdoorsdk.User, error) {
		return u.client.GetUserByUserId(id)
	})
}

// GetByEmail resolves a user by email address.
func (u *UserCasdoor) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return u.lookup(ctx, "email:"+email, email, func() (*casdoorsdk.User, error) {
		return u.client.GetUserByEmail(email)
	})
}

// lookup serves from the cache when possible, otherwise asks Casdoor and
// caches the projection under both the id and email keys.
func (u *UserCasdoor) lookup(ctx context.Context, cacheKey, ref string, fetch func() (*casdoorsdk.User, error)) (*models.User, error) {
	if cached := u.cacheRead(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	casdoorUser, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("casdoor lookup for %q: %w", ref, err)
	}
	if casdoorUser == nil {
		return nil, repositories.NewNotFoundError("user", ref)
	}

	user := u.toUser(casdoorUser)
	u.cacheWrite(ctx, "id:"+user.ID, user)
	u.cacheWrite(ctx, "email:"+user.Email, user)
	return user, nil
}

// ExistsByID reports whether Casdoor knows the ID, with a short-lived cache
// so session starts do not hammer the identity provider.
func (u *UserCasdoor) ExistsByID(ctx context.Context, id string) (bool, error) {
	existsKey := "user:exists:" + id
	if u.redis != nil {
		if v, err := u.redis.Get(ctx, existsKey).Result(); err == nil {
			return v == "true", nil
		}
	}

	casdoorUser, err := u.client.GetUser(id)
	if err != nil {
		return false, fmt.Errorf("casdoor existence check for %q: %w", id, err)
	}

	exists := casdoorUser != nil
	if u.redis != nil {
		u.redis.Set(ctx, existsKey, fmt.Sprintf("%t", exists), existsCacheTTL)
	}
	return exists, nil
}

// GetUserRole resolves the primary role for a user ID.
func (u *UserCasdoor) GetUserRole(ctx context.Context, id string) (models.UserRole, error) {
	user, err := u.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// cacheRead returns the cached projection or nil on any miss or error.
func (u *UserCasdoor) cacheRead(ctx context.Context, key string) *models.User {
	if u.redis == nil {
		return nil
	}

	data, err := u.redis.Get(ctx, "user:"+key).Bytes()
	if err != nil {
		return nil
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil
	}
	return &user
}

func (u *UserCasdoor) cacheWrite(ctx context.Context, key string, user *models.User) {
	if u.redis == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	u.redis.Set(ctx, "user:"+key, data, userCacheTTL)
}

func (u *UserCasdoor) toUser(casdoorUser *casdoorsdk.User) *models.User {
	return &models.User{
		ID:       casdoorUser.Id,
		FullName: casdoorUser.DisplayName,
		Email:    casdoorUser.Email,
		Role:     primaryRole(casdoorUser),
	}
}

// primaryRole collapses Casdoor role memberships to one role. Admin wins
// over every other membership; no membership means student.
func primaryRole(casdoorUser *casdoorsdk.User) models.UserRole {
	var roles []models.UserRole
	for _, r := range casdoorUser.Roles {
		mapped := mapCasdoorRole(r.Name)
		if !slices.Contains(roles, mapped) {
			roles = append(roles, mapped)
		}
	}

	if casdoorUser.IsAdmin || slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin
	}
	if len(roles) == 0 {
		return models.RoleStudent
	}
	return roles[0]
}

func mapCasdoorRole(name string) models.UserRole {
	switch strings.ToLower(name) {
	case "teacher", "instructor":
		return models.RoleTeacher
	case "admin", "administrator":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}
