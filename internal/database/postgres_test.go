package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labang-online/portal/internal/config"
)

// Test configuration for local PostgreSQL
func getTestConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		Name:     getEnvOrDefault("DB_NAME", "labang_online_test"),
		User:     getEnvOrDefault("DB_USER", "postgres"),
		Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
		PoolMin:  1,
		PoolMax:  5,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// openTestDB connects to the integration database or skips the test.
func openTestDB(t *testing.T) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewPostgresPool(ctx, getTestConfig())
	if err != nil {
		t.Skipf("Skipping integration test, database unavailable: %v", err)
	}
	return db
}

func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pgconn.PgError{Code: UniqueViolationCode, ConstraintName: "certificate_requests_request_id_key"}
	wrapped := fmt.Errorf("insert failed: %w", uniqueErr)

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "matching constraint", err: uniqueErr, constraint: "certificate_requests_request_id_key", want: true},
		{name: "wrapped error", err: wrapped, constraint: "certificate_requests_request_id_key", want: true},
		{name: "any constraint", err: uniqueErr, constraint: "", want: true},
		{name: "other constraint", err: uniqueErr, constraint: "accounts_email_key", want: false},
		{name: "other sqlstate", err: &pgconn.PgError{Code: "23503"}, constraint: "", want: false},
		{name: "plain error", err: errors.New("boom"), constraint: "", want: false},
		{name: "nil error", err: nil, constraint: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMigrationNames_Sorted(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("migrationNames() failed: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("Expected at least one embedded migration")
	}
	if names[0] != "0001_init.sql" {
		t.Errorf("Expected first migration 0001_init.sql, got %s", names[0])
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Migrations out of order: %s before %s", names[i-1], names[i])
		}
	}
}

func TestNewPostgresPool_InvalidHost(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cfg := getTestConfig()
	cfg.Host = "invalid-host-that-does-not-exist"

	_, err := NewPostgresPool(ctx, cfg)
	if err == nil {
		t.Error("Expected error when connecting to invalid host")
	}
}

func TestPing_AfterClose(t *testing.T) {
	db := openTestDB(t)

	db.Close()

	if err := db.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail after pool is closed")
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	stats := db.Stats()
	if stats == nil {
		t.Fatal("Expected stats to be available")
	}
	if stats.MaxConns() != int32(getTestConfig().PoolMax) {
		t.Errorf("Expected MaxConns %d, got %d", getTestConfig().PoolMax, stats.MaxConns())
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	ctx := context.Background()
	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate() failed: %v", err)
	}

	applied, err := db.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Expected no migrations on second run, got %v", applied)
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	ctx := context.Background()
	sentinel := errors.New("abort")

	err := db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `CREATE TEMP TABLE tx_rollback_check (id INT)`); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected sentinel error, got %v", err)
	}
}
