// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/app/system/dbbackend"
	"github.com/ipt-ti2/iptgram/internal/app/system/metrics"
	"github.com/ipt-ti2/iptgram/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB opens the configured backend. Connections are lazy on every
// backend: a bad connection string surfaces at EnsureSchema, not here.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	// Store calls from here on use the configured timeouts.
	timeouts.Configure(appCfg.timeoutConfig())

	kind, err := appCfg.backend()
	if err != nil {
		return DBDeps{}, err
	}
	deps := DBDeps{Backend: kind, Metrics: metrics.New()}

	if kind == dbbackend.Mongo {
		opts := options.Client().ApplyURI(appCfg.DefaultConnection)
		if appCfg.MongoMaxPoolSize > 0 {
			opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
		}
		if appCfg.MongoMinPoolSize > 0 {
			opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
		}
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			logger.Error("MongoDB connect failed", zap.Error(err))
			return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
		}
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
		deps.Users = userstore.NewMongoStore(deps.MongoDatabase)
		logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
		return deps, nil
	}

	db, err := dbbackend.OpenSQL(kind, appCfg.DefaultConnection)
	if err != nil {
		logger.Error("database open failed", zap.String("backend", string(kind)), zap.Error(err))
		return DBDeps{}, err
	}
	deps.SQL = db
	deps.Users = userstore.NewSQLStore(db, kind)
	logger.Info("database opened", zap.String("backend", string(kind)))
	return deps, nil
}

// EnsureSchema creates the users table (or collection indexes) if missing.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "ensure schema")
	defer cancel()

	if err := deps.Users.EnsureSchema(ctx); err != nil {
		logger.Error("ensure schema failed", zap.String("backend", string(deps.Backend)), zap.Error(err))
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
