// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"context"
	"database/sql"
	"errors"

	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/app/system/dbbackend"
	"github.com/ipt-ti2/iptgram/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Exactly one of SQL or MongoClient is set, matching Backend; Users is the
// credential store over whichever handle is open.
type DBDeps struct {
	Backend dbbackend.Kind

	SQL *sql.DB

	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Users userstore.Store

	// Metrics is created with the backends so the seed (Startup) and the
	// request pipeline (BuildHandler) report into the same registry.
	Metrics *metrics.Metrics
}

// Ping checks the open backend.
func (d DBDeps) Ping(ctx context.Context) error {
	if d.Users == nil {
		return errors.New("no database connected")
	}
	return d.Users.Ping(ctx)
}
