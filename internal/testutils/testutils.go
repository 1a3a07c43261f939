package testutils

import (
	"os"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/awkns-projects/rom-gateway/internal/database"
)

var (
	testDB     *sqlx.DB
	dbInitOnce sync.Once
	dbInitErr  error
)

// TestDB returns a shared test database connection with the gateway schema
// applied. Each test gets a clean table set via t.Cleanup.
func TestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbInitOnce.Do(func() {
		cfg := database.Config{
			Host:     getEnv("TEST_DB_HOST", "localhost"),
			Port:     5433,
			User:     getEnv("TEST_DB_USER", "postgres"),
			Password: getEnv("TEST_DB_PASSWORD", "postgres"),
			DBName:   getEnv("TEST_DB_NAME", "rom_gateway_test"),
			SSLMode:  getEnv("TEST_DB_SSL_MODE", "disable"),
		}

		testDB, dbInitErr = database.Connect(cfg)
		if dbInitErr != nil {
			return
		}

		var migration []byte
		migration, dbInitErr = os.ReadFile("../../migrations/001_initial_schema.up.sql")
		if dbInitErr != nil {
			return
		}
		_, dbInitErr = testDB.Exec(string(migration))
	})

	if dbInitErr != nil {
		t.Skipf("test database unavailable: %v", dbInitErr)
	}

	t.Cleanup(func() {
		_, err := testDB.Exec("TRUNCATE TABLE provider_credentials, oauth_connections")
		if err != nil {
			t.Errorf("Failed to clean up test data: %v", err)
		}
	})

	return testDB
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
