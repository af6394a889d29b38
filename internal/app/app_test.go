package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/slides/v1"

	"github.com/hyperifyio/headlinedeck/internal/build"
	"github.com/hyperifyio/headlinedeck/internal/deck"
)

// fakeSlides hands out sequential slide ids, each with a hero image and a
// headline box.
type fakeSlides struct {
	mu      sync.Mutex
	next    int
	slides  []*slides.Page
	batches [][]*slides.Request
	failOn  int
	removed []string
}

func (f *fakeSlides) Duplicate(_ context.Context, _ string, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("slide-%d", f.next)
	f.slides = append(f.slides, &slides.Page{ObjectId: id, PageElements: []*slides.PageElement{
		{ObjectId: id + "-img", Image: &slides.Image{}},
		{ObjectId: id + "-head", Description: DefaultHeadlineMarker, Shape: &slides.Shape{}},
	}})
	return id, nil
}

func (f *fakeSlides) Get(_ context.Context, _ string) (*slides.Presentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &slides.Presentation{Slides: append([]*slides.Page{}, f.slides...)}, nil
}

func (f *fakeSlides) BatchUpdate(_ context.Context, _ string, requests []*slides.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(requests) > 0 && requests[0].DeleteObject != nil {
		for _, r := range requests {
			f.removed = append(f.removed, r.DeleteObject.ObjectId)
		}
		return nil
	}
	f.batches = append(f.batches, requests)
	if f.failOn > 0 && len(f.batches) == f.failOn {
		return errors.New("invalid requests[0].replaceImage")
	}
	return nil
}

func newArticleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/one":
			fmt.Fprint(w, `<html><body><h1 class="css-894m66">First Story</h1>
				<div class="shortcode-large"><img class="css-8atqhb" src="https://thumbnails.thecrimson.com/one.jpg"></div></body></html>`)
		case "/two":
			fmt.Fprint(w, `<html><body><h1>Second Story With A Longer Headline Than Fits</h1>
				<img src="https://thumbnails.thecrimson.com/two.300x200_q95.jpg">
				<img src="/photos/two.jpg">
				<img src="https://thumbnails.thecrimson.com/two.jpg"></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PresentationID = "pres"
	cfg.TemplateSlideID = "template"
	return cfg
}

func TestApp_BuildPopulatesSlidesInOrder(t *testing.T) {
	srv := newArticleServer(t)
	svc := &fakeSlides{}
	a, err := NewWithService(context.Background(), testConfig(), svc)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	res, err := a.Build(context.Background(), []string{srv.URL + "/one", srv.URL + "/two"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Count != 2 || len(svc.batches) != 2 {
		t.Fatalf("count=%d batches=%d", res.Count, len(svc.batches))
	}
	if got := svc.batches[0][0].ReplaceImage.Url; got != "https://thumbnails.thecrimson.com/one.jpg" {
		t.Fatalf("first image=%q", got)
	}
	// The second page has no preferred image; the scan skips the suffixed
	// card and the off-host photo.
	if got := res.Articles[1].HeroImageURL; got != "https://thumbnails.thecrimson.com/two.jpg" {
		t.Fatalf("second image=%q", got)
	}
	if res.Articles[1].Title != "Second Story With A Longer Headline Than Fits" {
		t.Fatalf("second title=%q", res.Articles[1].Title)
	}
	if res.Articles[1].Layout.LineCount != 2 {
		t.Fatalf("lines=%d", res.Articles[1].Layout.LineCount)
	}
}

func TestApp_FetchFailureNamesURL(t *testing.T) {
	srv := newArticleServer(t)
	svc := &fakeSlides{}
	a, err := NewWithService(context.Background(), testConfig(), svc)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = a.Build(context.Background(), []string{srv.URL + "/one", srv.URL + "/missing", srv.URL + "/two"})
	var se *build.StageError
	if !errors.As(err, &se) {
		t.Fatalf("want StageError, got %v", err)
	}
	if se.URL != srv.URL+"/missing" || se.Stage != build.StageFetch {
		t.Fatalf("attribution: %+v", se)
	}
	if len(svc.batches) != 1 {
		t.Fatalf("third article must not be populated, batches=%d", len(svc.batches))
	}
}

func TestApp_RollbackRemovesSlides(t *testing.T) {
	srv := newArticleServer(t)
	svc := &fakeSlides{failOn: 2}
	cfg := testConfig()
	cfg.Rollback = true
	a, err := NewWithService(context.Background(), cfg, svc)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := a.Build(context.Background(), []string{srv.URL + "/one", srv.URL + "/two"})
	if err == nil {
		t.Fatalf("expected failure")
	}
	var me *deck.MutationError
	if !errors.As(err, &me) || me.Op != "batchUpdate" {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(svc.removed, ",") != "slide-1,slide-2" || len(res.RolledBack) != 2 {
		t.Fatalf("removed=%v rolledBack=%v", svc.removed, res.RolledBack)
	}
}

func TestApp_DryRunWritesPreview(t *testing.T) {
	srv := newArticleServer(t)
	cfg := DefaultConfig()
	cfg.DryRun = true
	cfg.PreviewPDF = filepath.Join(t.TempDir(), "preview.pdf")
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := a.Build(context.Background(), []string{srv.URL + "/one"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Articles[0].SlideID != "" {
		t.Fatalf("dry run created a slide: %q", res.Articles[0].SlideID)
	}
	b, err := os.ReadFile(cfg.PreviewPDF)
	if err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("preview is not a PDF")
	}
}

func TestApp_CacheServesSecondBuild(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<h1>Cached</h1><div class="css-nmmrhs"><img src="https://img.example/c.jpg"></div>`)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.DryRun = true
	cfg.CacheDir = t.TempDir()
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 2; i++ {
		res, err := a.Build(context.Background(), []string{srv.URL + "/c"})
		if err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
		if res.Articles[0].Title != "Cached" {
			t.Fatalf("title=%q", res.Articles[0].Title)
		}
	}
	if hits != 2 {
		t.Fatalf("hits=%d", hits)
	}
}

func TestApp_CacheBypassSkipsConditionalRequests(t *testing.T) {
	var conditional int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			conditional++
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<h1>Fresh</h1><div class="css-nmmrhs"><img src="https://img.example/f.jpg"></div>`)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.DryRun = true
	cfg.CacheDir = t.TempDir()
	cfg.CacheBypass = true
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := a.Build(context.Background(), []string{srv.URL + "/f"}); err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
	}
	if conditional != 0 {
		t.Fatalf("bypass sent %d conditional requests", conditional)
	}
	if a.httpCache == nil {
		t.Fatalf("cache not configured")
	}
	if meta, err := a.httpCache.LoadMeta(context.Background(), srv.URL+"/f"); err != nil || meta == nil || meta.ETag != `"v1"` {
		t.Fatalf("cache not refreshed: meta=%+v err=%v", meta, err)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	if _, err := NewWithService(context.Background(), DefaultConfig(), &fakeSlides{}); !errors.Is(err, deck.ErrTemplateIncomplete) {
		t.Fatalf("want ErrTemplateIncomplete, got %v", err)
	}
}

func TestCredentials_DefaultFileOptional(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if c := DefaultConfig().credentials(); c.File != "" {
		t.Fatalf("missing default file should fall back to ADC, got %q", c.File)
	}
	if err := os.WriteFile(DefaultCredentialsFile, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if c := DefaultConfig().credentials(); c.File != DefaultCredentialsFile {
		t.Fatalf("existing default file ignored")
	}
	if c := (Config{CredentialsFile: "/nope.json"}).credentials(); c.File != "/nope.json" {
		t.Fatalf("explicit file must be kept")
	}
}
