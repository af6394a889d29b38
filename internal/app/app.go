package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/headlinedeck/internal/build"
	"github.com/hyperifyio/headlinedeck/internal/cache"
	"github.com/hyperifyio/headlinedeck/internal/deck"
	"github.com/hyperifyio/headlinedeck/internal/fetch"
	"github.com/hyperifyio/headlinedeck/internal/server"
)

// App wires configuration to the fetcher, extractor, slide mutator and
// orchestrator.
type App struct {
	cfg       Config
	builder   *build.Builder
	httpCache *cache.HTTPCache
	style     deck.TextStyle
}

// New validates cfg and connects to Google Slides unless running dry.
func New(ctx context.Context, cfg Config) (*App, error) {
	return NewWithService(ctx, cfg, nil)
}

// NewWithService is New with an explicit Slides service. A nil svc builds a
// GoogleService from the configured credentials.
func NewWithService(ctx context.Context, cfg Config, svc deck.Service) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	style, err := cfg.textStyle()
	if err != nil {
		return nil, err
	}
	rules, err := cfg.extractOptions().Rules()
	if err != nil {
		return nil, err
	}
	consts := cfg.layoutConstants()

	a := &App{cfg: cfg, style: style}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge)
			if err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale page cache entries")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	b := &build.Builder{
		Fetcher: &fetch.Client{
			HTTPClient:        newFetchHTTPClient(cfg.FetchTimeout),
			UserAgent:         cfg.UserAgent,
			PerRequestTimeout: cfg.FetchTimeout,
			Cache:             a.httpCache,
			RedirectMaxHops:   cfg.MaxRedirects,
			BypassCache:       cfg.CacheBypass,
		},
		Extractor: rules,
		Layout:    consts,
		DryRun:    cfg.DryRun,
		Rollback:  cfg.Rollback,
	}
	if !cfg.DryRun {
		if svc == nil {
			g, err := deck.NewGoogleService(ctx, cfg.credentials())
			if err != nil {
				return nil, fmt.Errorf("init slides: %w", err)
			}
			svc = g
		}
		m := deck.NewMutator(svc, deck.Template{
			PresentationID: cfg.PresentationID,
			SlideID:        cfg.TemplateSlideID,
			HeadlineMarker: cfg.HeadlineMarker,
		})
		m.Style = style
		m.Layout = consts
		b.Populator = m
	}
	a.builder = b
	return a, nil
}

// credentials prefers inline JSON. The default credentials file is optional:
// when it is absent, application default credentials are used.
func (c Config) credentials() deck.Credentials {
	creds := deck.Credentials{JSON: c.CredentialsJSON, File: c.CredentialsFile}
	if creds.JSON == "" && creds.File == DefaultCredentialsFile {
		if _, err := os.Stat(creds.File); err != nil {
			log.Debug().Str("file", creds.File).Msg("no credentials file; using application default credentials")
			creds.File = ""
		}
	}
	return creds
}

func (a *App) Close() {
	// nothing yet
}

// Build runs one batch and, when configured, writes the preview PDF.
func (a *App) Build(ctx context.Context, urls []string) (build.Result, error) {
	res, err := a.builder.Build(ctx, urls)
	if err != nil {
		return res, err
	}
	if a.cfg.PreviewPDF != "" {
		if perr := WritePreviewPDF(res, a.style, a.cfg.PreviewPDF); perr != nil {
			log.Warn().Err(perr).Str("path", a.cfg.PreviewPDF).Msg("preview PDF failed")
		} else {
			log.Info().Str("path", a.cfg.PreviewPDF).Msg("wrote preview PDF")
		}
	}
	return res, nil
}

// Serve runs the HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	e := server.New(a, server.Options{PublicDir: a.cfg.PublicDir, BuildTimeout: a.cfg.BuildTimeout})
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.cfg.ListenAddr).Msg("listening")
		errc <- e.Start(a.cfg.ListenAddr)
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
