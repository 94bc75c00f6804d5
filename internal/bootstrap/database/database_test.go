package database

import (
	"context"
	"path/filepath"
	"testing"

	"parkalert/internal/bootstrap/config"
)

func TestSQLiteDSNAddsPragmas(t *testing.T) {
	if got := sqliteDSN("data/app.sqlite"); got != "data/app.sqlite?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)" {
		t.Fatalf("sqliteDSN() = %q", got)
	}
	if got := sqliteDSN("file:x.db?mode=rwc"); got != "file:x.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)" {
		t.Fatalf("sqliteDSN() = %q", got)
	}
	if got := sqliteDSN("x.db?_pragma=journal_mode(WAL)"); got != "x.db?_pragma=journal_mode(WAL)" {
		t.Fatalf("sqliteDSN() = %q", got)
	}
}

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "parkalert.sqlite")
	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	defer sqlDB.Close()
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 1 {
		t.Fatalf("MaxOpenConnections = %d, want 1", stats.MaxOpenConnections)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("Open() expected error")
	}
}
