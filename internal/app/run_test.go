package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hitoshi/biscuitblog/internal/config"
)

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OAUTH_PROVIDER", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	t.Setenv("SESSION_SECRET", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

func TestRun_InvalidFlag_ReturnsError(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"seed", "--bogus"}); err == nil {
		t.Fatal("Run with unknown flag should return error")
	}
}

// TestRun_WorkerRequiresDatabaseSessions はインメモリセッションではworkerを起動できないことを検証する。
func TestRun_WorkerRequiresDatabaseSessions(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"worker"}); err == nil {
		t.Fatal("worker with SESSION_STORE=memory should return error")
	}
}

func TestRun_SeedAndMigrateOnSQLite(t *testing.T) {
	setTestEnv(t)
	dbPath := filepath.Join(t.TempDir(), "blog.db")
	t.Setenv("DATABASE_URL", dbPath)
	t.Setenv("SESSION_STORE", "database")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"migrate"}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	seedFile := filepath.Join(t.TempDir(), "tags.yaml")
	if err := os.WriteFile(seedFile, []byte("tags:\n  - name: Gardening\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Run(&buf, []string{"seed", "--file", seedFile}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cfg := &config.Config{DatabaseDriver: config.DriverSQLite, DatabaseURL: dbPath, SessionStore: config.SessionStoreDatabase}
	stores, err := OpenStores(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStores: %v", err)
	}
	defer stores.Close()

	for _, slug := range []string{"technology", "gardening"} {
		tag, err := stores.Tags.FindBySlug(context.Background(), slug)
		if err != nil {
			t.Fatalf("FindBySlug(%q): %v", slug, err)
		}
		if tag == nil {
			t.Errorf("tag %q should be seeded", slug)
		}
	}

	if err := Run(&buf, []string{"migrate", "--down"}); err == nil {
		t.Error("migrate --down should be rejected for sqlite")
	}
}
