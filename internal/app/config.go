package app

import (
	"time"

	"github.com/hyperifyio/headlinedeck/internal/extract"
	"github.com/hyperifyio/headlinedeck/internal/layout"
)

// Defaults shared by flag registration and the file/env overlay. A field that
// still holds its default is treated as unset by ApplyFileConfig.
const (
	DefaultListenAddr      = ":3000"
	DefaultPublicDir       = "public"
	DefaultCredentialsFile = "credentials.json"
	DefaultHeadlineMarker  = "CRIMSON_HEADLINE_BOX"
	DefaultUserAgent       = "headlinedeck/1.0 (+https://github.com/hyperifyio/headlinedeck)"
	DefaultFetchTimeout    = 15 * time.Second
	DefaultMaxRedirects    = 5
)

// Config holds runtime configuration for the application.
type Config struct {
	// Server
	ListenAddr   string
	PublicDir    string
	BuildTimeout time.Duration

	// Presentation
	PresentationID  string
	TemplateSlideID string
	HeadlineMarker  string

	// Google credentials; JSON wins over File.
	CredentialsJSON string
	CredentialsFile string

	// Fetch
	UserAgent    string
	FetchTimeout time.Duration
	MaxRedirects int

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	// CacheBypass skips conditional requests but still refreshes the cache.
	CacheBypass bool

	// Extraction and layout. Empty fields fall back to package defaults.
	Extract extract.Options
	Layout  layout.Constants

	// Headline style
	FontFamily string
	FontSizePt float64
	TextColor  string

	// Behavior
	DryRun     bool
	Rollback   bool
	PreviewPDF string
	Verbose    bool
}

// DefaultConfig returns the values flags start from.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      DefaultListenAddr,
		PublicDir:       DefaultPublicDir,
		HeadlineMarker:  DefaultHeadlineMarker,
		CredentialsFile: DefaultCredentialsFile,
		UserAgent:       DefaultUserAgent,
		FetchTimeout:    DefaultFetchTimeout,
		MaxRedirects:    DefaultMaxRedirects,
	}
}

// extractOptions fills empty extraction settings from extract.DefaultOptions.
func (c Config) extractOptions() extract.Options {
	def := extract.DefaultOptions()
	o := c.Extract
	if len(o.TitleSelectors) == 0 {
		o.TitleSelectors = def.TitleSelectors
	}
	if len(o.ImageSelectors) == 0 {
		o.ImageSelectors = def.ImageSelectors
	}
	if o.ThumbnailHost == "" {
		o.ThumbnailHost = def.ThumbnailHost
	}
	if o.ThumbnailExclude == "" {
		o.ThumbnailExclude = def.ThumbnailExclude
	}
	return o
}

func (c Config) layoutConstants() layout.Constants {
	if c.Layout == (layout.Constants{}) {
		return layout.DefaultConstants()
	}
	return c.Layout
}
