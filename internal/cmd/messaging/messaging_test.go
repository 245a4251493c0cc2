package messaging

import (
	"flag"
	"path/filepath"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("messaging", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "messaging.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.PageSize != 50 || cfg.PageSizeMax != 200 {
		t.Fatalf("expected default page sizes, got %d/%d", cfg.PageSize, cfg.PageSizeMax)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("HYPTRB_MESSAGING_DB_PATH", "/tmp/env.db")

	fs := flag.NewFlagSet("messaging", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db-path", "/tmp/flag.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "/tmp/flag.db" {
		t.Fatalf("expected flag override, got %q", cfg.DBPath)
	}
}

func TestBuildRequiresAuthSecret(t *testing.T) {
	if _, err := Build(Config{DBPath: filepath.Join(t.TempDir(), "messaging.db")}); err == nil {
		t.Fatal("expected missing auth secret error")
	}
}

func TestBuildComposesService(t *testing.T) {
	application, err := Build(Config{
		DBPath:          filepath.Join(t.TempDir(), "messaging.db"),
		CampaignBaseURL: "http://localhost:5001",
		AuthSecret:      "test-secret",
		PageSize:        50,
		PageSizeMax:     200,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if application.Service == nil || application.Verifier == nil {
		t.Fatal("expected composed service and verifier")
	}
	if err := application.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
