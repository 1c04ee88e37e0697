// Package dbinit seeds the database once per process start, before the
// HTTP handler exists.
package dbinit

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
	"go.uber.org/zap"
)

// SeedUser is one account the seed guarantees exists.
type SeedUser struct {
	UserName string
	Email    string
	Name     string
	Password string
}

// Options selects what Seed creates.
type Options struct {
	Admin     SeedUser // skipped when UserName is empty
	DemoUsers bool
}

// demoUsers are created when Options.DemoUsers is set.
var demoUsers = []SeedUser{
	{UserName: "ana.silva", Email: "ana.silva@example.com", Name: "Ana Silva", Password: "ana.silva"},
	{UserName: "bruno.costa", Email: "bruno.costa@example.com", Name: "Bruno Costa", Password: "bruno.costa"},
	{UserName: "carla.sousa", Email: "carla.sousa@example.com", Name: "Carla Sousa", Password: "carla.sousa"},
}

// Initializer seeds users through the user manager so seeded passwords go
// through the same policy and hashing as registrations.
type Initializer struct {
	Store   userstore.Store
	Users   *identity.UserManager
	Options Options
	Log     *zap.Logger

	// OnCreate, if set, is called once per user the seed creates.
	OnCreate func(models.User)
}

// New constructs an Initializer.
func New(store userstore.Store, users *identity.UserManager, opts Options, logger *zap.Logger) *Initializer {
	return &Initializer{Store: store, Users: users, Options: opts, Log: logger}
}

// Seed creates the schema and the configured users. It is idempotent: users
// that already exist are left untouched, including their passwords.
func (in *Initializer) Seed(ctx context.Context) (created int, err error) {
	if err := in.Store.EnsureSchema(ctx); err != nil {
		return 0, fmt.Errorf("ensure schema: %w", err)
	}

	var seeds []SeedUser
	if in.Options.Admin.UserName != "" {
		seeds = append(seeds, in.Options.Admin)
	}
	if in.Options.DemoUsers {
		seeds = append(seeds, demoUsers...)
	}

	for _, s := range seeds {
		ok, err := in.ensureUser(ctx, s)
		if err != nil {
			return created, fmt.Errorf("seed user %q: %w", s.UserName, err)
		}
		if ok {
			created++
		}
	}

	total, err := in.Store.Count(ctx)
	if err != nil {
		return created, fmt.Errorf("count users: %w", err)
	}
	in.Log.Info("database seeded", zap.Int("created", created), zap.Int64("users", total))
	return created, nil
}

func (in *Initializer) ensureUser(ctx context.Context, s SeedUser) (bool, error) {
	_, err := in.Store.GetByUserName(ctx, s.UserName)
	if err == nil {
		in.Log.Debug("seed user exists", zap.String("user_name", s.UserName))
		return false, nil
	}
	if !errors.Is(err, userstore.ErrNotFound) {
		return false, err
	}

	u, err := in.Users.Create(ctx, models.User{
		UserName: s.UserName,
		Email:    s.Email,
		Name:     s.Name,
	}, s.Password)
	if errors.Is(err, userstore.ErrDuplicateUserName) {
		// another instance seeded it between our read and write
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if in.OnCreate != nil {
		in.OnCreate(u)
	}
	return true, nil
}
