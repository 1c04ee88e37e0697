package testutil

import (
	"context"
	"testing"

	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	Users *identity.UserManager
	t     *testing.T
}

// NewFixtures creates a Fixtures instance over store with the default
// (relaxed) password policy and the cheapest bcrypt cost.
func NewFixtures(t *testing.T, store userstore.Store) *Fixtures {
	t.Helper()
	um := identity.NewUserManager(store, identity.DefaultPasswordOptions(), zap.NewNop())
	um.SetHashCost(bcrypt.MinCost)
	return &Fixtures{Users: um, t: t}
}

// CreateUser creates a user with the given user name and password.
func (f *Fixtures) CreateUser(ctx context.Context, userName, password string) models.User {
	f.t.Helper()

	u, err := f.Users.Create(ctx, models.User{
		UserName: userName,
		Email:    userName + "@example.com",
		Name:     "Test " + userName,
	}, password)
	if err != nil {
		f.t.Fatalf("failed to create test user %q: %v", userName, err)
	}
	return u
}
