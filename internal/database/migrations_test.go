package database

import (
	"io/fs"
	"reflect"
	"regexp"
	"testing"
	"testing/fstest"
)

func TestPendingOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_cards.up.sql":      {Data: []byte("SELECT 1")},
		"migrations/001_profiles.up.sql":   {Data: []byte("SELECT 1")},
		"migrations/001_profiles.down.sql": {Data: []byte("SELECT 1")},
		"migrations/README":                {Data: []byte("notes")},
	}

	got, err := pendingOrder(fsys)
	if err != nil {
		t.Fatalf("pendingOrder: %v", err)
	}
	want := []string{"001_profiles", "002_cards"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("versions = %v, want %v", got, want)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	versions, err := pendingOrder(migrationFiles)
	if err != nil {
		t.Fatalf("pendingOrder: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no embedded migrations")
	}
	if versions[len(versions)-1] != "004_cards_grade_number_scale" {
		t.Fatalf("last migration = %s", versions[len(versions)-1])
	}
}

func TestGradeNumberScale(t *testing.T) {
	sql, err := fs.ReadFile(migrationFiles, "migrations/004_cards_grade_number_scale.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	m := regexp.MustCompile(`grade ~ '([^']+)'`).FindSubmatch(sql)
	if m == nil {
		t.Fatal("grade_number pattern not found")
	}
	scale := regexp.MustCompile(string(m[1]))
	for _, g := range []string{"1", "1.5", "9", "9.5", "10"} {
		if !scale.MatchString(g) {
			t.Errorf("%q should have a numeric grade", g)
		}
	}
	for _, g := range []string{"0", "0.5", "10.5", "100", "9.25", "9.3", "9.0", "OTHER"} {
		if scale.MatchString(g) {
			t.Errorf("%q should not have a numeric grade", g)
		}
	}
}
