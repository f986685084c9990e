package db

import (
	"path/filepath"
	"testing"
)

func TestOpenAndInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")

	database, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	if err := Init(database); err != nil {
		t.Fatalf("init: %v", err)
	}

	// Schema must be usable right away.
	if _, err := database.Exec(
		`INSERT INTO tasks (title, created_at, updated_at) VALUES ('x', '2024-01-01T00:00:00.000Z', '2024-01-01T00:00:00.000Z')`,
	); err != nil {
		t.Fatalf("insert into fresh schema: %v", err)
	}
}

func TestInitIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")

	database, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	for i := 0; i < 3; i++ {
		if err := Init(database); err != nil {
			t.Fatalf("init run %d: %v", i, err)
		}
	}
}

func TestInitKeepsExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")

	database, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	if err := Init(database); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := database.Exec(
		`INSERT INTO tasks (title, created_at, updated_at) VALUES ('keep', '2024-01-01T00:00:00.000Z', '2024-01-01T00:00:00.000Z')`,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A second start against the same file must not recreate the table.
	if err := Init(database); err != nil {
		t.Fatalf("re-init: %v", err)
	}
	var count int
	if err := database.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}
