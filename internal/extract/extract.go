package extract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// ErrExtraction is matched by every *ExtractionError.
var ErrExtraction = errors.New("extraction failed")

// ExtractionError reports which field could not be recovered from a page.
type ExtractionError struct {
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not extract %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("could not extract %s", e.Field)
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExtraction, e.Err}
	}
	return []error{ErrExtraction}
}

// Metadata is what one article contributes to a slide.
type Metadata struct {
	Title        string `json:"title"`
	HeroImageURL string `json:"heroImageUrl"`
}

// TitleRule returns a candidate headline or "" when it does not apply.
type TitleRule func(doc *goquery.Document) string

// ImageRule returns a candidate image source or "" when it does not apply.
type ImageRule func(doc *goquery.Document) string

// FirstText matches selector and returns the trimmed text of the first hit.
func FirstText(selector string) TitleRule {
	return func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(selector).First().Text())
	}
}

// FirstImage matches selector and returns the source of the first hit.
func FirstImage(selector string) ImageRule {
	return func(doc *goquery.Document) string {
		return imageSource(doc.Find(selector).First())
	}
}

// ThumbnailScan walks every <img> in document order and returns the first
// source hosted on host that does not match exclude. The exclusion drops the
// small WxH variants used by listing cards, which live on the same host as
// real hero images.
func ThumbnailScan(host string, exclude *regexp.Regexp) ImageRule {
	return func(doc *goquery.Document) string {
		var found string
		doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src := imageSource(s)
			if src == "" || !strings.Contains(src, host) {
				return true
			}
			if exclude != nil && exclude.MatchString(src) {
				return true
			}
			found = src
			return false
		})
		return found
	}
}

func imageSource(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	// Lazy-loaded images carry a data: placeholder in src.
	if src := strings.TrimSpace(s.AttrOr("src", "")); src != "" && !isDataURI(src) {
		return src
	}
	if src := strings.TrimSpace(s.AttrOr("data-src", "")); !isDataURI(src) {
		return src
	}
	return ""
}

// Rules is an ordered fallback chain for each field. The first rule that
// yields a non-empty value wins.
type Rules struct {
	Title []TitleRule
	Image []ImageRule
}

// Options is the data form of Rules, loaded from configuration.
type Options struct {
	TitleSelectors []string `yaml:"titleSelectors" json:"titleSelectors"`
	ImageSelectors []string `yaml:"imageSelectors" json:"imageSelectors"`
	// ThumbnailHost enables the fallback image scan when non-empty.
	ThumbnailHost string `yaml:"thumbnailHost" json:"thumbnailHost"`
	// ThumbnailExclude is a regexp matched against candidate sources.
	ThumbnailExclude string `yaml:"thumbnailExclude" json:"thumbnailExclude"`
}

// DefaultOptions returns the selectors that match current Crimson markup.
func DefaultOptions() Options {
	return Options{
		TitleSelectors: []string{"h1.css-894m66", "h1.css-1rfyg0l", "h1"},
		ImageSelectors: []string{
			".shortcode-large img.css-8atqhb",
			".shortcode-large img",
			".css-nmmrhs img",
		},
		ThumbnailHost:    "thumbnails.thecrimson.com",
		ThumbnailExclude: `\.\d{2,3}x\d{2,3}_`,
	}
}

// Rules compiles o into a fallback chain.
func (o Options) Rules() (Rules, error) {
	var r Rules
	for _, sel := range o.TitleSelectors {
		if sel = strings.TrimSpace(sel); sel != "" {
			r.Title = append(r.Title, FirstText(sel))
		}
	}
	for _, sel := range o.ImageSelectors {
		if sel = strings.TrimSpace(sel); sel != "" {
			r.Image = append(r.Image, FirstImage(sel))
		}
	}
	if host := strings.TrimSpace(o.ThumbnailHost); host != "" {
		var exclude *regexp.Regexp
		if o.ThumbnailExclude != "" {
			re, err := regexp.Compile(o.ThumbnailExclude)
			if err != nil {
				return Rules{}, fmt.Errorf("thumbnail exclude pattern: %w", err)
			}
			exclude = re
		}
		r.Image = append(r.Image, ThumbnailScan(host, exclude))
	}
	if len(r.Title) == 0 || len(r.Image) == 0 {
		return Rules{}, errors.New("extract: at least one title and one image rule are required")
	}
	return r, nil
}

// DefaultRules compiles DefaultOptions.
func DefaultRules() Rules {
	r, err := DefaultOptions().Rules()
	if err != nil {
		panic(err)
	}
	return r
}

// TitleOf evaluates the title chain.
func (r Rules) TitleOf(doc *goquery.Document) string {
	for _, rule := range r.Title {
		if t := normalizeTitle(rule(doc)); t != "" {
			return t
		}
	}
	return ""
}

// HeroImageOf evaluates the image chain and returns the first candidate that
// resolves against pageURL to an absolute http(s) URL. A candidate that does
// not resolve hands over to the next rule; the last resolution error is
// returned when no rule yields a usable URL.
func (r Rules) HeroImageOf(doc *goquery.Document, pageURL string) (string, error) {
	var lastErr error
	for _, rule := range r.Image {
		src := rule(doc)
		if src == "" {
			continue
		}
		abs, err := absoluteURL(pageURL, src)
		if err != nil {
			lastErr = err
			continue
		}
		return abs, nil
	}
	return "", lastErr
}

// Extract parses input and resolves both fields. pageURL is used to make
// relative image sources absolute; it may be empty when sources are known to
// be absolute.
func (r Rules) Extract(input []byte, pageURL string) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return Metadata{}, &ExtractionError{Field: "document", Err: err}
	}
	title := r.TitleOf(doc)
	if title == "" {
		return Metadata{}, &ExtractionError{Field: "title"}
	}
	abs, err := r.HeroImageOf(doc, pageURL)
	if abs == "" {
		return Metadata{}, &ExtractionError{Field: "image", Err: err}
	}
	return Metadata{Title: title, HeroImageURL: abs}, nil
}

func absoluteURL(base, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	if !u.IsAbs() && strings.TrimSpace(base) != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("parse page url: %w", err)
		}
		u = b.ResolveReference(u)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("image url %q is not absolute", ref)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("image url %q is not http(s)", ref)
	}
	return u.String(), nil
}

func isDataURI(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

func normalizeTitle(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
