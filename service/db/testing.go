package db

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestStore wraps a Store with test cleanup functionality.
type TestStore struct {
	*Store
	pool *pgxpool.Pool
}

// NewTestStore creates a new Store connected to the test database and
// applies the schema. It reads the TEST_DATABASE_URL environment variable
// and skips the test when it is not set, so the integration suite only runs
// where a database is available.
func NewTestStore(t *testing.T) *TestStore {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping ledger integration test")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("failed to ping test database: %v", err)
	}

	store := NewStore(pool)
	if err := store.Migrate(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return &TestStore{
		Store: store,
		pool:  pool,
	}
}

// Close closes the database connection pool.
func (ts *TestStore) Close() {
	ts.pool.Close()
}

// Cleanup removes all data from test tables.
// Call this in tests to ensure clean state between test cases.
func (ts *TestStore) Cleanup(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	_, err := ts.pool.Exec(ctx, "TRUNCATE TABLE deployment_events")
	if err != nil {
		t.Fatalf("failed to clean up test tables: %v", err)
	}
}
