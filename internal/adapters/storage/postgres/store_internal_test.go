package postgres

import (
	"io/fs"
	"strings"
	"testing"
)

func TestNormalizeDSN(t *testing.T) {
	cases := map[string]string{
		"postgresql+asyncpg://u:p@h/db": "postgresql://u:p@h/db",
		"postgres+pgx://u:p@h/db":       "postgres://u:p@h/db",
		"  postgres://u:p@h/db ":        "postgres://u:p@h/db",
	}
	for in, want := range cases {
		if got := normalizeDSN(in); got != want {
			t.Fatalf("normalizeDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected escape %q", got)
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("expected schema and seed migrations, got %v", names)
	}
	for _, name := range names {
		raw, err := fs.ReadFile(migrations, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(raw), "-- +goose Up") || !strings.Contains(string(raw), "-- +goose Down") {
			t.Fatalf("%s is missing goose annotations", name)
		}
	}
}
