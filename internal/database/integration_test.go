package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

const migrationsPath = "../../migrations"

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(migrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"families", "credentials", "users", "sessions", "tasks", "suggested_tasks"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running again is a no-op
	if err := db.RunMigrations(migrationsPath); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
}

func TestFamilyCodeUniqueConstraint(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := "INSERT INTO families (id, surname, family_code, notify_email, created_at) VALUES (?, ?, ?, ?, ?)"
	if _, err := db.ExecContext(ctx, insert, "f1", "Smith", "ABC123", true, now); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	_, err := db.ExecContext(ctx, insert, "f2", "Jones", "ABC123", true, now)
	if err == nil {
		t.Fatal("expected duplicate family code to fail")
	}
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestWithinTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	insert := "INSERT INTO families (id, surname, family_code, notify_email, created_at) VALUES (?, ?, ?, ?, ?)"

	err := db.WithinTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, insert, "f1", "Smith", "AAAAAA", true, now)
		return err
	})
	if err != nil {
		t.Fatalf("committed tx failed: %v", err)
	}

	boom := errors.New("boom")
	err = db.WithinTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, insert, "f2", "Jones", "BBBBBB", true, now); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 family after rollback, got %d", count)
	}
}
