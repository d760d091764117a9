package postgres

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(embedMigrations, "migrations")
	if err != nil {
		t.Fatalf("cannot read embedded migrations: %v", err)
	}
	if len(entries) == 0 || entries[0].Name() != "0001_init.sql" {
		t.Fatalf("migrations = %v", entries)
	}
	b, err := fs.ReadFile(embedMigrations, "migrations/0001_init.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, marker := range []string{"-- +goose Up", "-- +goose Down", "client_samples"} {
		if !strings.Contains(string(b), marker) {
			t.Errorf("0001_init.sql lacks %q", marker)
		}
	}
}
