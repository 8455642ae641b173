package shared

import (
	"database/sql"
	"testing"
)

func memoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Up == "" {
				t.Errorf("migration version %d missing up SQL", m.Version)
			}
			if m.Down == "" {
				t.Errorf("migration version %d missing down SQL", m.Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db := memoryDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		versions, err := AppliedVersions(db)
		if err != nil {
			t.Fatalf("failed to read applied versions: %v", err)
		}
		if len(versions) == 0 {
			t.Fatal("expected at least one migration to be applied")
		}

		if _, err := db.Exec("SELECT 1 FROM runs LIMIT 1"); err != nil {
			t.Errorf("runs table should exist after migrations: %v", err)
		}

		var seq int
		if err := db.QueryRow("SELECT value FROM runs_sequence WHERE id = 1").Scan(&seq); err != nil {
			t.Fatalf("runs_sequence should be seeded: %v", err)
		}
		if seq != 0 {
			t.Errorf("expected sequence to start at 0, got %d", seq)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		after, err := AppliedVersions(db)
		if err != nil {
			t.Fatalf("failed to read applied versions after rollback: %v", err)
		}
		if len(after) != len(versions)-1 {
			t.Errorf("expected %d applied migrations after rollback, got %d", len(versions)-1, len(after))
		}
	})

	t.Run("Rollback With Nothing Applied", func(t *testing.T) {
		db := memoryDB(t)
		if err := createMigrationsTable(db); err != nil {
			t.Fatalf("failed to create migrations table: %v", err)
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when no migrations are applied")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db := memoryDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		versions, err := AppliedVersions(db)
		if err != nil {
			t.Fatalf("failed to read applied versions: %v", err)
		}

		migrations, _ := loadMigrations()
		if len(versions) != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), len(versions))
		}
	})

	t.Run("removeComments", func(t *testing.T) {
		got := removeComments("-- heading\nSELECT 1 -- trailing\n\n")
		if got != "SELECT 1" {
			t.Errorf("removeComments() = %q, want %q", got, "SELECT 1")
		}
	})
}

func TestOpenDatabase(t *testing.T) {
	t.Run("migrates on open", func(t *testing.T) {
		db, err := OpenDatabase(DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
		if err != nil {
			t.Fatalf("OpenDatabase() error = %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("SELECT 1 FROM runs LIMIT 1"); err != nil {
			t.Errorf("runs table should exist: %v", err)
		}
	})

	t.Run("bad path", func(t *testing.T) {
		if _, err := OpenDatabase(DatabaseConfig{Path: "/nonexistent/dir/trainx.db"}); err == nil {
			t.Error("expected error for unwritable path")
		}
	})
}
