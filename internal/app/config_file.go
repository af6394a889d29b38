package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/headlinedeck/internal/deck"
	"github.com/hyperifyio/headlinedeck/internal/extract"
	"github.com/hyperifyio/headlinedeck/internal/layout"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Server struct {
		Addr         string        `yaml:"addr" json:"addr"`
		PublicDir    string        `yaml:"publicDir" json:"publicDir"`
		BuildTimeout time.Duration `yaml:"buildTimeout" json:"buildTimeout"`
	} `yaml:"server" json:"server"`

	Presentation deck.Template `yaml:"presentation" json:"presentation"`

	Google struct {
		Credentials     string `yaml:"credentials" json:"credentials"`
		CredentialsFile string `yaml:"credentialsFile" json:"credentialsFile"`
	} `yaml:"google" json:"google"`

	Fetch struct {
		UserAgent    string        `yaml:"userAgent" json:"userAgent"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout"`
		MaxRedirects int           `yaml:"maxRedirects" json:"maxRedirects"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		Bypass      bool          `yaml:"bypass" json:"bypass"`
	} `yaml:"cache" json:"cache"`

	Extract extract.Options `yaml:"extract" json:"extract"`

	// Layout is pre-filled with defaults by LoadConfigFile so a partial
	// section only changes the keys it names.
	Layout layout.Constants `yaml:"layout" json:"layout"`

	Style struct {
		FontFamily string  `yaml:"fontFamily" json:"fontFamily"`
		FontSize   float64 `yaml:"fontSize" json:"fontSize"`
		Color      string  `yaml:"color" json:"color"`
	} `yaml:"style" json:"style"`

	Build struct {
		Rollback   bool   `yaml:"rollback" json:"rollback"`
		DryRun     bool   `yaml:"dryRun" json:"dryRun"`
		PreviewPDF string `yaml:"previewPDF" json:"previewPDF"`
	} `yaml:"build" json:"build"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	fc.Layout = layout.DefaultConstants()
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for fields that are unset
// or still at their flag default, so explicit flags keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, def, v string) {
		if (*dst == "" || *dst == def) && v != "" {
			*dst = v
		}
	}

	setStr(&cfg.ListenAddr, DefaultListenAddr, fc.Server.Addr)
	setStr(&cfg.PublicDir, DefaultPublicDir, fc.Server.PublicDir)
	if cfg.BuildTimeout == 0 && fc.Server.BuildTimeout > 0 {
		cfg.BuildTimeout = fc.Server.BuildTimeout
	}

	setStr(&cfg.PresentationID, "", fc.Presentation.PresentationID)
	setStr(&cfg.TemplateSlideID, "", fc.Presentation.SlideID)
	setStr(&cfg.HeadlineMarker, DefaultHeadlineMarker, fc.Presentation.HeadlineMarker)

	setStr(&cfg.CredentialsJSON, "", fc.Google.Credentials)
	setStr(&cfg.CredentialsFile, DefaultCredentialsFile, fc.Google.CredentialsFile)

	setStr(&cfg.UserAgent, DefaultUserAgent, fc.Fetch.UserAgent)
	if (cfg.FetchTimeout == 0 || cfg.FetchTimeout == DefaultFetchTimeout) && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if (cfg.MaxRedirects == 0 || cfg.MaxRedirects == DefaultMaxRedirects) && fc.Fetch.MaxRedirects > 0 {
		cfg.MaxRedirects = fc.Fetch.MaxRedirects
	}

	setStr(&cfg.CacheDir, "", fc.Cache.Dir)
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if !cfg.CacheBypass && fc.Cache.Bypass {
		cfg.CacheBypass = true
	}

	if len(cfg.Extract.TitleSelectors) == 0 && len(fc.Extract.TitleSelectors) > 0 {
		cfg.Extract.TitleSelectors = append([]string{}, fc.Extract.TitleSelectors...)
	}
	if len(cfg.Extract.ImageSelectors) == 0 && len(fc.Extract.ImageSelectors) > 0 {
		cfg.Extract.ImageSelectors = append([]string{}, fc.Extract.ImageSelectors...)
	}
	setStr(&cfg.Extract.ThumbnailHost, "", fc.Extract.ThumbnailHost)
	setStr(&cfg.Extract.ThumbnailExclude, "", fc.Extract.ThumbnailExclude)

	if fc.Layout != (layout.Constants{}) &&
		(cfg.Layout == (layout.Constants{}) || cfg.Layout == layout.DefaultConstants()) {
		cfg.Layout = fc.Layout
	}

	setStr(&cfg.FontFamily, "", fc.Style.FontFamily)
	if cfg.FontSizePt == 0 && fc.Style.FontSize > 0 {
		cfg.FontSizePt = fc.Style.FontSize
	}
	setStr(&cfg.TextColor, "", fc.Style.Color)

	if !cfg.Rollback && fc.Build.Rollback {
		cfg.Rollback = true
	}
	if !cfg.DryRun && fc.Build.DryRun {
		cfg.DryRun = true
	}
	setStr(&cfg.PreviewPDF, "", fc.Build.PreviewPDF)
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig checks required settings. Presentation identifiers may be
// omitted in dry-run.
func ValidateConfig(cfg Config) error {
	if !cfg.DryRun {
		tmpl := deck.Template{
			PresentationID: strings.TrimSpace(cfg.PresentationID),
			SlideID:        strings.TrimSpace(cfg.TemplateSlideID),
			HeadlineMarker: strings.TrimSpace(cfg.HeadlineMarker),
		}
		if err := tmpl.Validate(); err != nil {
			return fmt.Errorf("config: %w (set PRESENTATION_ID, TEMPLATE_SLIDE_ID, HEADLINE_MARKER)", err)
		}
	}
	if _, err := cfg.extractOptions().Rules(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.layoutConstants().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.textStyle(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.FetchTimeout < 0 || cfg.MaxRedirects < 0 || cfg.BuildTimeout < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}

// textStyle fills empty style settings from deck.DefaultTextStyle.
func (c Config) textStyle() (deck.TextStyle, error) {
	style := deck.DefaultTextStyle()
	if s := strings.TrimSpace(c.FontFamily); s != "" {
		style.FontFamily = s
	}
	if c.FontSizePt < 0 {
		return style, fmt.Errorf("font size %v must be positive", c.FontSizePt)
	}
	if c.FontSizePt > 0 {
		style.FontSizePt = c.FontSizePt
	}
	if s := strings.TrimSpace(c.TextColor); s != "" {
		rgb, err := deck.ParseHexColor(s)
		if err != nil {
			return style, err
		}
		style.Color = rgb
	}
	return style, nil
}
