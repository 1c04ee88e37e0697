// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / id: the uuid that uniquely identifies a user record
//   - UserName / userName: the human-readable string users type to log in

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUserName is returned when creating a user whose user name is taken.
	ErrDuplicateUserName = errors.New("a user with this user name already exists")

	errUserNameRequired = errors.New("user name is required")
	errHashRequired     = errors.New("password hash is required")
)

// Store is the credential store backing identity. One implementation exists
// per backend family: SQLStore (sqlserver, mysql, sqlite) and MongoStore.
type Store interface {
	// EnsureSchema creates the users table/collection indexes if missing.
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByUserName looks up by folded user name (case/diacritic-insensitive).
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash, securityStamp string) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// NormalizeUserName folds a user name for lookups.
func NormalizeUserName(userName string) string {
	return text.Fold(strings.TrimSpace(userName))
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// prepareNew normalizes & validates a user about to be inserted.
func prepareNew(u models.User) (models.User, error) {
	u.UserName = strings.TrimSpace(u.UserName)
	if u.UserName == "" {
		return models.User{}, errUserNameRequired
	}
	if u.PasswordHash == "" {
		return models.User{}, errHashRequired
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.SecurityStamp == "" {
		u.SecurityStamp = uuid.NewString()
	}
	u.NormalizedUserName = NormalizeUserName(u.UserName)
	u.Email = strings.TrimSpace(u.Email)
	u.NormalizedEmail = NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)

	now := time.Now().UTC().Truncate(time.Microsecond)
	u.CreatedAt = now
	u.UpdatedAt = now
	return u, nil
}
