package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/modelmux/modelmux/pkg/plugin"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func statsMigrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create model stats table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE model_stats (model TEXT PRIMARY KEY, avg_score REAL NOT NULL)`)
				return err
			},
		},
		{
			Version:     2,
			Description: "add invocations column",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`ALTER TABLE model_stats ADD COLUMN invocations INTEGER NOT NULL DEFAULT 0`)
				return err
			},
		},
	}
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx, "ledger", statsMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Both migrations must be applied for this insert to succeed.
	_, err := s.DB().ExecContext(ctx,
		"INSERT INTO model_stats (model, avg_score, invocations) VALUES ('claude', 7.5, 3)")
	if err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx, "ledger", statsMigrations()); err != nil {
		t.Fatalf("first Migrate() error = %v", err)
	}
	// A second run must skip already-applied versions; re-applying the
	// CREATE TABLE would fail otherwise.
	if err := s.Migrate(ctx, "ledger", statsMigrations()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	var applied int
	err := s.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM _migrations WHERE plugin_name = 'ledger'").Scan(&applied)
	if err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}
}

func TestMigrate_PerPluginTracking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ledgerOnly := []plugin.Migration{
		{
			Version:     1,
			Description: "create feedback table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE feedback_events (id TEXT PRIMARY KEY)`)
				return err
			},
		},
	}
	if err := s.Migrate(ctx, "ledger", ledgerOnly); err != nil {
		t.Fatalf("Migrate(ledger) error = %v", err)
	}

	// Same version number under a different plugin name must still apply.
	otherPlugin := []plugin.Migration{
		{
			Version:     1,
			Description: "create providers table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE provider_meta (id TEXT PRIMARY KEY)`)
				return err
			},
		},
	}
	if err := s.Migrate(ctx, "providers", otherPlugin); err != nil {
		t.Fatalf("Migrate(providers) error = %v", err)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bad := []plugin.Migration{
		{
			Version:     1,
			Description: "broken migration",
			Up: func(tx *sql.Tx) error {
				if _, err := tx.Exec(`CREATE TABLE half_done (id TEXT)`); err != nil {
					return err
				}
				return errors.New("migration step failed")
			},
		},
	}
	if err := s.Migrate(ctx, "ledger", bad); err == nil {
		t.Fatal("Migrate() expected error, got nil")
	}

	// The failed migration must not be recorded as applied.
	var applied int
	err := s.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM _migrations WHERE plugin_name = 'ledger'").Scan(&applied)
	if err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 0 {
		t.Errorf("applied = %d, want 0 after rollback", applied)
	}
}

func TestTx_CommitAndRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.DB().ExecContext(ctx, `CREATE TABLE t (v TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO t (v) VALUES ('kept')`)
		return err
	})
	if err != nil {
		t.Fatalf("Tx() commit error = %v", err)
	}

	wantErr := errors.New("abort")
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO t (v) VALUES ('discarded')`); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Tx() error = %v, want %v", err, wantErr)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1 (rollback must discard the second insert)", count)
	}
}

func TestCheckVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// First run records the version.
	if err := s.CheckVersion(ctx, "1.2.0"); err != nil {
		t.Fatalf("CheckVersion(first) error = %v", err)
	}
	// Same and newer binaries pass.
	if err := s.CheckVersion(ctx, "1.2.0"); err != nil {
		t.Errorf("CheckVersion(same) error = %v", err)
	}
	if err := s.CheckVersion(ctx, "1.3.0"); err != nil {
		t.Errorf("CheckVersion(newer) error = %v", err)
	}
	// An older binary must refuse to open the database.
	if err := s.CheckVersion(ctx, "1.0.0"); !errors.Is(err, ErrNewerSchema) {
		t.Errorf("CheckVersion(older) error = %v, want ErrNewerSchema", err)
	}
}

func TestCheckVersion_DevAlwaysPasses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CheckVersion(ctx, "9.0.0"); err != nil {
		t.Fatalf("CheckVersion(first) error = %v", err)
	}
	if err := s.CheckVersion(ctx, "dev"); err != nil {
		t.Errorf("CheckVersion(dev) error = %v", err)
	}
}
