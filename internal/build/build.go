// Package build drives fetch, extract and populate for a list of article
// URLs, one article at a time, stopping at the first failure.
package build

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/headlinedeck/internal/extract"
	"github.com/hyperifyio/headlinedeck/internal/layout"
)

// ErrNoURLs is returned when a request carries no usable URL.
var ErrNoURLs = errors.New("no valid URLs provided")

// Stage names the step an article failed in.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StagePopulate Stage = "populate"
)

// StageError attributes a failure to one input URL and stage. Index is
// zero-based.
type StageError struct {
	URL   string
	Index int
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.URL, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Fetcher retrieves a page body. fetch.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Populator writes one article into a new slide and returns its id. When it
// fails after creating a slide it may still return that slide's id.
type Populator interface {
	Populate(ctx context.Context, meta extract.Metadata) (string, error)
}

// Remover deletes slides. Populators that implement it support rollback.
type Remover interface {
	Remove(ctx context.Context, slideIDs []string) error
}

// Article is one processed input.
type Article struct {
	URL          string            `json:"url"`
	Title        string            `json:"title"`
	HeroImageURL string            `json:"heroImageUrl"`
	SlideID      string            `json:"slideId,omitempty"`
	Layout       layout.Parameters `json:"layout"`
}

// Result summarises a build. On failure it holds the articles completed
// before the failing one.
type Result struct {
	Count      int       `json:"count"`
	Articles   []Article `json:"articles"`
	RolledBack []string  `json:"rolledBack,omitempty"`
}

// Builder processes URLs strictly in input order. Slides are therefore
// appended to the presentation in the same order.
type Builder struct {
	Fetcher   Fetcher
	Extractor extract.Extractor
	Populator Populator
	Layout    layout.Constants
	// DryRun stops after extraction and layout; Populator is not called.
	DryRun bool
	// Rollback deletes slides created by this build when a later article fails.
	Rollback bool
}

// Build processes urls. Blank entries are ignored; an input with no usable
// entry fails with ErrNoURLs. The first failing article aborts the batch with
// a *StageError.
func (b *Builder) Build(ctx context.Context, urls []string) (Result, error) {
	urls = normalizeList(urls)
	if len(urls) == 0 {
		return Result{}, ErrNoURLs
	}
	if !b.DryRun && b.Populator == nil {
		return Result{}, errors.New("build: no populator configured")
	}
	consts := b.Layout
	if consts.CharsPerLine == 0 {
		consts = layout.DefaultConstants()
	}

	log.Info().Int("count", len(urls)).Bool("dryRun", b.DryRun).Msg("build started")
	res := Result{Articles: make([]Article, 0, len(urls))}
	var created []string
	for i, u := range urls {
		logger := log.With().Str("url", u).Int("index", i+1).Int("total", len(urls)).Logger()
		logger.Info().Msg("processing article")

		body, _, err := b.Fetcher.Get(ctx, u)
		if err != nil {
			return b.fail(ctx, res, created, &StageError{URL: u, Index: i, Stage: StageFetch, Err: err})
		}
		meta, err := b.Extractor.Extract(body, u)
		if err != nil {
			return b.fail(ctx, res, created, &StageError{URL: u, Index: i, Stage: StageExtract, Err: err})
		}
		logger.Debug().Str("title", meta.Title).Str("image", meta.HeroImageURL).Msg("extracted")

		art := Article{URL: u, Title: meta.Title, HeroImageURL: meta.HeroImageURL, Layout: consts.Estimate(meta.Title)}
		if !b.DryRun {
			id, err := b.Populator.Populate(ctx, meta)
			if id != "" {
				created = append(created, id)
			}
			if err != nil {
				return b.fail(ctx, res, created, &StageError{URL: u, Index: i, Stage: StagePopulate, Err: err})
			}
			art.SlideID = id
		}
		res.Articles = append(res.Articles, art)
		res.Count++
		logger.Info().Str("slide", art.SlideID).Int("lines", art.Layout.LineCount).Msg("article done")
	}
	log.Info().Int("count", res.Count).Msg("build finished")
	return res, nil
}

func (b *Builder) fail(ctx context.Context, res Result, created []string, serr *StageError) (Result, error) {
	log.Error().Err(serr.Err).Str("url", serr.URL).Str("stage", string(serr.Stage)).Msg("build aborted")
	if !b.Rollback || len(created) == 0 {
		if len(created) > 0 {
			log.Warn().Strs("slides", created).Msg("slides left in presentation")
		}
		return res, serr
	}
	remover, ok := b.Populator.(Remover)
	if !ok {
		log.Warn().Msg("populator cannot remove slides; rollback skipped")
		return res, serr
	}
	if err := remover.Remove(ctx, created); err != nil {
		log.Error().Err(err).Strs("slides", created).Msg("rollback failed")
		return res, serr
	}
	log.Info().Strs("slides", created).Msg("rolled back slides")
	res.RolledBack = created
	return res, serr
}

// NormalizeURLs accepts a []string, a []any of strings, or a newline-delimited
// string, and returns the trimmed non-empty entries.
func NormalizeURLs(v any) ([]string, error) {
	var list []string
	switch t := v.(type) {
	case string:
		list = strings.Split(t, "\n")
	case []string:
		list = t
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: non-string entry %v", ErrNoURLs, item)
			}
			list = append(list, s)
		}
	default:
		return nil, ErrNoURLs
	}
	out := normalizeList(list)
	if len(out) == 0 {
		return nil, ErrNoURLs
	}
	return out, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
