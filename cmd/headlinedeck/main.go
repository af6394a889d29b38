package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/headlinedeck/internal/app"
	"github.com/hyperifyio/headlinedeck/internal/build"
)

// options are the command-line settings that are not part of app.Config.
type options struct {
	serve      bool
	configPath string
	envFiles   string
	urlsPath   string
	jsonLogs   bool
	version    bool
	urls       []string
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Error().Err(err).Msg("invalid arguments")
		os.Exit(2)
	}
	if opts.version {
		fmt.Printf("headlinedeck %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}
	if opts.jsonLogs {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("run failed")
		if errors.Is(err, build.ErrNoURLs) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// parseArgs resolves configuration with precedence flags > env > file >
// defaults. Flags are bound to cfg, so after the file and env layers are
// merged the same arguments are parsed again to put explicit flags back on top.
func parseArgs(args []string) (app.Config, options, error) {
	var opts options
	if len(args) > 0 && args[0] == "serve" {
		opts.serve = true
		args = args[1:]
	}

	cfg := app.DefaultConfig()
	fs := flag.NewFlagSet("headlinedeck", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", os.Getenv("HEADLINEDECK_CONFIG"), "Path to YAML or JSON config file")
	fs.StringVar(&opts.envFiles, "env", ".env", "Comma-separated dotenv files to load")
	fs.StringVar(&opts.urlsPath, "urls", "", "File with one article URL per line ('-' for stdin)")
	fs.BoolVar(&opts.jsonLogs, "log.json", false, "Write JSON log lines instead of console output")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Listen address for serve")
	fs.StringVar(&cfg.PublicDir, "public", cfg.PublicDir, "Directory with the operator page; empty disables static files")
	fs.DurationVar(&cfg.BuildTimeout, "build.timeout", 0, "Upper bound for one build request (0 disables)")
	fs.StringVar(&cfg.PresentationID, "presentation", "", "Target presentation id")
	fs.StringVar(&cfg.TemplateSlideID, "template", "", "Template slide object id")
	fs.StringVar(&cfg.HeadlineMarker, "marker", cfg.HeadlineMarker, "Alt-text marker of the headline box")
	fs.StringVar(&cfg.CredentialsFile, "credentials", cfg.CredentialsFile, "Service-account key file")
	fs.StringVar(&cfg.UserAgent, "fetch.ua", cfg.UserAgent, "User-Agent for article requests")
	fs.DurationVar(&cfg.FetchTimeout, "fetch.timeout", cfg.FetchTimeout, "Per-request timeout for article pages")
	fs.IntVar(&cfg.MaxRedirects, "fetch.maxRedirects", cfg.MaxRedirects, "Maximum redirects per article request")
	fs.StringVar(&cfg.CacheDir, "cache.dir", "", "Page cache directory (empty disables caching)")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Purge cached pages older than this at startup (0 disables)")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear the page cache at startup")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&cfg.CacheBypass, "cache.bypass", false, "Skip conditional requests but still refresh the cache")
	fs.StringVar(&cfg.FontFamily, "style.font", "", "Headline font family")
	fs.Float64Var(&cfg.FontSizePt, "style.size", 0, "Headline font size in points")
	fs.StringVar(&cfg.TextColor, "style.color", "", "Headline color as #RRGGBB")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Fetch, extract and lay out without touching the presentation")
	fs.BoolVar(&cfg.Rollback, "rollback", false, "Delete slides created by a build that fails part way")
	fs.StringVar(&cfg.PreviewPDF, "preview.pdf", "", "Write a PDF proof sheet of each successful build")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	if err := app.LoadEnvFiles(splitList(opts.envFiles)...); err != nil {
		return cfg, opts, err
	}

	merged := app.DefaultConfig()
	if strings.TrimSpace(opts.configPath) != "" {
		fc, err := app.LoadConfigFile(opts.configPath)
		if err != nil {
			return cfg, opts, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&merged, fc)
	}
	app.ApplyEnvOverrides(&merged)
	cfg = merged
	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	opts.urls = fs.Args()
	return cfg, opts, nil
}

func run(ctx context.Context, cfg app.Config, opts options, stdin io.Reader, stdout io.Writer) error {
	var urls []string
	if !opts.serve {
		var err error
		urls, err = collectURLs(opts, stdin)
		if err != nil {
			return err
		}
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	if opts.serve {
		return a.Serve(ctx)
	}
	res, err := a.Build(ctx, urls)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// collectURLs reads -urls (a file or '-') and appends positional arguments.
func collectURLs(opts options, stdin io.Reader) ([]string, error) {
	var raw []string
	if p := strings.TrimSpace(opts.urlsPath); p != "" {
		var (
			b   []byte
			err error
		)
		if p == "-" {
			b, err = io.ReadAll(stdin)
		} else {
			b, err = os.ReadFile(p)
		}
		if err != nil {
			return nil, fmt.Errorf("read urls: %w", err)
		}
		for _, line := range strings.Split(string(b), "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "#") {
				continue
			}
			raw = append(raw, line)
		}
	}
	raw = append(raw, opts.urls...)
	return build.NormalizeURLs(raw)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
