package db

import (
	"path/filepath"
	"testing"
)

func TestNew_CreatesDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	tables := []string{"edits", "edit_decisions", "engine_config", "_migrations"}
	for _, table := range tables {
		var name string
		err := database.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestNew_WALEnabled(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	var journalMode string
	if err := database.Conn().QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("failed to read journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	first, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	first.Close()

	second, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer second.Close()

	var count int
	if err := second.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("migrations recorded %d times, want 1", count)
	}
}

func TestNew_ForeignKeysCascade(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	conn := database.Conn()
	if _, err := conn.Exec(
		"INSERT INTO edits (id, name, source_ref, created_at, updated_at) VALUES ('e1', 'n', 's.mp4', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')",
	); err != nil {
		t.Fatalf("insert edit: %v", err)
	}
	if _, err := conn.Exec(
		"INSERT INTO edit_decisions (id, edit_id, order_index, segment_id, source_ref, start_time, end_time) VALUES ('d1', 'e1', 0, 's1', 's.mp4', 0, 1)",
	); err != nil {
		t.Fatalf("insert decision: %v", err)
	}

	if _, err := conn.Exec("DELETE FROM edits WHERE id = 'e1'"); err != nil {
		t.Fatalf("delete edit: %v", err)
	}

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM edit_decisions WHERE edit_id = 'e1'").Scan(&count); err != nil {
		t.Fatalf("count decisions: %v", err)
	}
	if count != 0 {
		t.Errorf("cascade delete left %d decisions", count)
	}
}
