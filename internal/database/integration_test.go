package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertAccount(t *testing.T, q Querier, username string) int64 {
	t.Helper()
	id, err := q.ExecReturningID(context.Background(),
		`INSERT INTO accounts (username, password_hash, display_name, role, interests, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		username, "hash", username, "child", "[]", time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to insert account: %v", err)
	}
	return id
}

// TestDatabaseIntegration tests that migrations create every table
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"accounts", "tasks", "family_links", "invitations", "achievement_definitions", "achievement_unlocks", "migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running again is a no-op
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 recorded migration, got %d", count)
	}
}

// TestWithTx tests commit and rollback through the WithTx helper
func TestWithTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		insertAccount(t, tx, "committed")
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() commit error = %v", err)
	}

	errBoom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *Tx) error {
		insertAccount(t, tx, "rolledback")
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("WithTx() error = %v, want %v", err, errBoom)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		t.Fatalf("count accounts: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 account after rollback, got %d", count)
	}
}

// TestUniqueViolationDetected checks the SQLite driver error is classified
func TestUniqueViolationDetected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	insertAccount(t, db, "dup")

	_, err := db.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash, display_name, role, interests, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"dup", "hash", "dup", "child", "[]", time.Now().UTC())
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false", err)
	}
}

// TestConcurrentWriters checks immediate transactions serialize writers
func TestConcurrentWriters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	id := insertAccount(t, db, "counter")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.WithTx(ctx, func(tx *Tx) error {
				var points int
				if err := tx.QueryRowContext(ctx, "SELECT points FROM accounts WHERE id = ?", id).Scan(&points); err != nil {
					return err
				}
				_, err := tx.ExecContext(ctx, "UPDATE accounts SET points = ? WHERE id = ?", points+1, id)
				return err
			})
			if err != nil {
				t.Errorf("concurrent update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var points int
	if err := db.QueryRowContext(ctx, "SELECT points FROM accounts WHERE id = ?", id).Scan(&points); err != nil {
		t.Fatalf("read points: %v", err)
	}
	if points != 10 {
		t.Errorf("Expected 10 points, got %d", points)
	}
}
