package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("PRESENTATION_ID", "")
	t.Setenv("TEMPLATE_SLIDE_ID", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nPRESENTATION_ID=pres-abc\nexport TEMPLATE_SLIDE_ID='g1234'\nmalformed line\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("PRESENTATION_ID"); got != "pres-abc" {
		t.Fatalf("PRESENTATION_ID=%q, want pres-abc", got)
	}
	if got := os.Getenv("TEMPLATE_SLIDE_ID"); got != "g1234" {
		t.Fatalf("TEMPLATE_SLIDE_ID=%q, want g1234", got)
	}
}

// Later files override earlier ones; values exported before loading win.
func TestLoadEnvFiles_Precedence(t *testing.T) {
	t.Setenv("HEADLINE_MARKER", "")
	t.Setenv("GOOGLE_CREDENTIALS", `{"type":"service_account"}`)
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("HEADLINE_MARKER=first\nGOOGLE_CREDENTIALS=from-file\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("HEADLINE_MARKER=second\nGOOGLE_CREDENTIALS=later-file\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("HEADLINE_MARKER"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
	if got := os.Getenv("GOOGLE_CREDENTIALS"); got != `{"type":"service_account"}` {
		t.Fatalf("exported variable replaced: %q", got)
	}
}

func TestApplyEnvOverrides_EnvBeatsFile(t *testing.T) {
	t.Setenv("HEADLINE_MARKER", "ENV_BOX")
	t.Setenv("DRY_RUN", "off")
	t.Setenv("CACHE_MAX_AGE", "not-a-duration")
	t.Setenv("CACHE_BYPASS", "1")

	cfg := Config{HeadlineMarker: "FILE_BOX", DryRun: true, CacheMaxAge: time.Minute}
	ApplyEnvOverrides(&cfg)
	if cfg.HeadlineMarker != "ENV_BOX" {
		t.Fatalf("HeadlineMarker=%q", cfg.HeadlineMarker)
	}
	if cfg.DryRun {
		t.Fatalf("DRY_RUN=off should clear dry run")
	}
	if !cfg.CacheBypass {
		t.Fatalf("CACHE_BYPASS=1 should enable bypass")
	}
	if cfg.CacheMaxAge != time.Minute {
		t.Fatalf("invalid duration should be ignored, got %v", cfg.CacheMaxAge)
	}
}
