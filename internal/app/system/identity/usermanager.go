package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
// The two cases are deliberately indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid user name or password")

// UserManager creates users and verifies their passwords against the store.
type UserManager struct {
	Store    userstore.Store
	Password PasswordOptions
	Log      *zap.Logger

	// cost is the bcrypt work factor; tests lower it.
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewUserManager wires a UserManager over store with the given policy.
func NewUserManager(store userstore.Store, opts PasswordOptions, logger *zap.Logger) *UserManager {
	return &UserManager{
		Store:    store,
		Password: opts,
		Log:      logger,
		cost:     bcrypt.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost (bcrypt.MinCost in tests).
func (m *UserManager) SetHashCost(cost int) {
	m.cost = cost
}

// Create validates password against the policy, hashes it, and inserts u.
// Returns a *PasswordError for a rejected password and
// userstore.ErrDuplicateUserName for a taken user name.
func (m *UserManager) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	if err := m.Password.Validate(password); err != nil {
		return models.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.SecurityStamp = uuid.NewString()

	created, err := m.Store.Create(ctx, u)
	if err != nil {
		return models.User{}, err
	}
	m.Log.Info("user created", zap.String("user_id", created.ID), zap.String("user_name", created.UserName))
	return created, nil
}

// FindByName looks a user up by user name (case/diacritic-insensitive).
func (m *UserManager) FindByName(ctx context.Context, userName string) (*models.User, error) {
	return m.Store.GetByUserName(ctx, userName)
}

// FindByID looks a user up by id.
func (m *UserManager) FindByID(ctx context.Context, id string) (*models.User, error) {
	return m.Store.GetByID(ctx, id)
}

// CheckPassword reports whether password matches u's stored hash.
func (m *UserManager) CheckPassword(u *models.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// CheckPasswordMissingUser spends the same bcrypt work as CheckPassword for a
// user that does not exist, so response time does not reveal which user
// names are registered. It always reports false.
func (m *UserManager) CheckPasswordMissingUser(password string) bool {
	m.dummyOnce.Do(func() {
		m.dummy, _ = bcrypt.GenerateFromPassword([]byte("iptgram-missing-user"), m.cost)
	})
	_ = bcrypt.CompareHashAndPassword(m.dummy, []byte(password))
	return false
}

// ChangePassword verifies current, validates next against the policy, and
// stores the new hash with a fresh security stamp. Sessions issued before the
// change stop validating.
func (m *UserManager) ChangePassword(ctx context.Context, u *models.User, current, next string) error {
	if !m.CheckPassword(u, current) {
		return ErrInvalidCredentials
	}
	if err := m.Password.Validate(next); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), m.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	stamp := uuid.NewString()
	if err := m.Store.UpdatePassword(ctx, u.ID, string(hash), stamp); err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.SecurityStamp = stamp
	m.Log.Info("password changed", zap.String("user_id", u.ID))
	return nil
}
