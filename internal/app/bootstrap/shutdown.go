// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the background sweepers started by BuildHandler, then
// tears down whichever DB handle ConnectDB opened.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	workers.Stop()

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	if deps.SQL != nil {
		logger.Info("closing database", zap.String("backend", string(deps.Backend)))
		if err := deps.SQL.Close(); err != nil {
			logger.Error("database close failed", zap.Error(err))
			return err
		}
	}
	return nil
}
