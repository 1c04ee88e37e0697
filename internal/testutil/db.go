// Package testutil holds shared helpers for package tests: an in-memory
// SQLite credential store, user fixtures, and HTTP request/recorder helpers.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/app/system/dbbackend"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoURIEnv names the variable that points Mongo-backed tests at a server.
const MongoURIEnv = "IPTGRAM_TEST_MONGO_URI"

// TestContext returns a context with a generous timeout for store calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// SetupTestDB opens a private in-memory SQLite database with the users
// schema in place. It is closed when the test ends.
func SetupTestDB(t *testing.T) (*sql.DB, *userstore.SQLStore) {
	t.Helper()

	db, err := dbbackend.OpenSQL(dbbackend.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := userstore.NewSQLStore(db, dbbackend.SQLite)
	ctx, cancel := TestContext()
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db, store
}

// SetupTestMongo connects to the server named by IPTGRAM_TEST_MONGO_URI and
// returns a throwaway database that is dropped when the test ends. The test
// is skipped when the variable is unset or the server is unreachable.
func SetupTestMongo(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv(MongoURIEnv)
	if uri == "" {
		t.Skipf("%s not set; skipping MongoDB test", MongoURIEnv)
	}

	ctx, cancel := TestContext()
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo connect: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("mongo ping: %v", err)
	}

	db := client.Database("iptgram_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := TestContext()
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}
