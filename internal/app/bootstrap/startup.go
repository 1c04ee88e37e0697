// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"github.com/ipt-ti2/iptgram/internal/app/store/dbinit"
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/app/system/timeouts"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. For
// IPTGram that is the seed: it blocks, and an error aborts process start so
// no request ever sees a half-seeded database.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	t := timeouts.Current()
	logger.Info("store timeouts",
		zap.Duration("ping", t.Ping),
		zap.Duration("short", t.Short),
		zap.Duration("medium", t.Medium),
		zap.Duration("long", t.Long),
	)

	in := dbinit.New(deps.Users, newUserManager(appCfg, deps, logger), seedOptions(appCfg.Options), logger)
	if deps.Metrics != nil {
		in.OnCreate = func(models.User) { deps.Metrics.SeededUsers.Inc() }
	}
	if _, err := in.Seed(ctx); err != nil {
		logger.Error("database seed failed", zap.Error(err))
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

// newUserManager builds the user manager with the configured password policy.
func newUserManager(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *identity.UserManager {
	return identity.NewUserManager(deps.Users, appCfg.passwordOptions(), logger)
}

func seedOptions(o AppOptions) dbinit.Options {
	opts := dbinit.Options{DemoUsers: o.SeedDemoUsers}
	if o.SeedAdminPassword != "" {
		opts.Admin = dbinit.SeedUser{
			UserName: o.SeedAdminUserName,
			Email:    o.SeedAdminEmail,
			Name:     "Administrador",
			Password: o.SeedAdminPassword,
		}
	}
	return opts
}
