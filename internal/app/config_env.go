package app

import (
	"os"
	"strings"
	"time"
)

// envString maps string config fields to their environment variables.
func envString(cfg *Config) []struct {
	dst *string
	key string
} {
	return []struct {
		dst *string
		key string
	}{
		{&cfg.CredentialsJSON, "GOOGLE_CREDENTIALS"},
		{&cfg.CredentialsFile, "GOOGLE_CREDENTIALS_FILE"},
		{&cfg.PresentationID, "PRESENTATION_ID"},
		{&cfg.TemplateSlideID, "TEMPLATE_SLIDE_ID"},
		{&cfg.HeadlineMarker, "HEADLINE_MARKER"},
		{&cfg.ListenAddr, "LISTEN_ADDR"},
		{&cfg.PublicDir, "PUBLIC_DIR"},
		{&cfg.CacheDir, "CACHE_DIR"},
	}
}

func envBool(cfg *Config) []struct {
	dst *bool
	key string
} {
	return []struct {
		dst *bool
		key string
	}{
		{&cfg.DryRun, "DRY_RUN"},
		{&cfg.Verbose, "VERBOSE"},
		{&cfg.Rollback, "ROLLBACK_ON_FAILURE"},
		{&cfg.CacheClear, "CACHE_CLEAR"},
		{&cfg.CacheBypass, "CACHE_BYPASS"},
	}
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when they are set. It runs after ApplyFileConfig so env beats the file while
// the caller re-applies explicit flags last.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	for _, f := range envString(cfg) {
		if v := strings.TrimSpace(os.Getenv(f.key)); v != "" {
			*f.dst = v
		}
	}
	if d, ok := envDuration("CACHE_MAX_AGE"); ok {
		cfg.CacheMaxAge = d
	}
	for _, f := range envBool(cfg) {
		if v, ok := parseBool(os.Getenv(f.key)); ok {
			*f.dst = v
		}
	}
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

func parseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
