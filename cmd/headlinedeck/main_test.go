package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/headlinedeck/internal/build"
)

func TestParseArgs_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "deck.yaml")
	yaml := "presentation:\n  id: file-pres\n  templateSlideId: file-tmpl\n  headlineMarker: FILE_BOX\nserver:\n  addr: \":9000\"\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TEMPLATE_SLIDE_ID", "env-tmpl")
	t.Setenv("HEADLINE_MARKER", "ENV_BOX")
	t.Setenv("PRESENTATION_ID", "")

	cfg, opts, err := parseArgs([]string{"serve", "-config", cfgPath, "-env", "", "-marker", "FLAG_BOX", "-cache.bypass"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !opts.serve {
		t.Fatalf("serve subcommand not detected")
	}
	if cfg.PresentationID != "file-pres" {
		t.Fatalf("file layer lost: %q", cfg.PresentationID)
	}
	if cfg.TemplateSlideID != "env-tmpl" {
		t.Fatalf("env should beat file: %q", cfg.TemplateSlideID)
	}
	if cfg.HeadlineMarker != "FLAG_BOX" {
		t.Fatalf("flag should beat env: %q", cfg.HeadlineMarker)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("addr=%q", cfg.ListenAddr)
	}
	if !cfg.CacheBypass {
		t.Fatalf("-cache.bypass not applied")
	}
}

func TestCollectURLs(t *testing.T) {
	stdin := strings.NewReader("https://a.example/1\n# comment\n\n  https://a.example/2 \n")
	got, err := collectURLs(options{urlsPath: "-", urls: []string{"https://a.example/3"}}, stdin)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("got %v want %v", got, want)
	}

	if _, err := collectURLs(options{}, strings.NewReader("")); !errors.Is(err, build.ErrNoURLs) {
		t.Fatalf("want ErrNoURLs, got %v", err)
	}
}

// Smoke test: a dry run over a local page prints the build result as JSON.
func TestRun_DryRun_PrintsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<h1 class="css-1rfyg0l">Local Headline</h1><div class="shortcode-large"><img src="/hero.jpg"></div>`)
	}))
	defer srv.Close()

	cfg, opts, err := parseArgs([]string{"-env", "", "-dry-run", srv.URL + "/story"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), cfg, opts, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	var res build.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if res.Count != 1 || res.Articles[0].Title != "Local Headline" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Articles[0].HeroImageURL != srv.URL+"/hero.jpg" {
		t.Fatalf("relative image not resolved: %q", res.Articles[0].HeroImageURL)
	}
}
