// Package layout estimates how many lines a headline occupies in the slide
// template and derives the padding, scale and offset that keep the headline
// box from clipping as the text grows.
//
// The estimate is a character-count heuristic tuned to the template's column
// width. It does not measure rendered text and will be off for headlines with
// unusually wide or narrow glyphs.
package layout

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Constants are the tunable policy values of the line-fit heuristic.
type Constants struct {
	CharsPerLine int     `yaml:"charsPerLine" json:"charsPerLine"`
	BaseAbove    float64 `yaml:"baseAbove" json:"baseAbove"`
	PerLineAbove float64 `yaml:"perLineAbove" json:"perLineAbove"`
	BaseBelow    float64 `yaml:"baseBelow" json:"baseBelow"`
	PerLineBelow float64 `yaml:"perLineBelow" json:"perLineBelow"`
	ScaleFactor  float64 `yaml:"scaleFactor" json:"scaleFactor"`
	OffsetPx     float64 `yaml:"offsetPx" json:"offsetPx"`
	// EMUPerPx converts pixels to the presentation's native unit.
	EMUPerPx    float64 `yaml:"emuPerPx" json:"emuPerPx"`
	LineSpacing float64 `yaml:"lineSpacing" json:"lineSpacing"`
}

// DefaultConstants returns values calibrated against the headline template.
func DefaultConstants() Constants {
	return Constants{
		CharsPerLine: 26,
		BaseAbove:    18,
		PerLineAbove: 6,
		BaseBelow:    22,
		PerLineBelow: 8,
		ScaleFactor:  0.12,
		OffsetPx:     14,
		EMUPerPx:     9525,
		LineSpacing:  100,
	}
}

// Validate rejects constant sets that would no longer grow the box
// monotonically with the line count.
func (c Constants) Validate() error {
	if c.CharsPerLine <= 0 {
		return errors.New("layout: charsPerLine must be positive")
	}
	if c.PerLineAbove < 0 || c.PerLineBelow < 0 || c.ScaleFactor < 0 {
		return errors.New("layout: per-line increments must not be negative")
	}
	if c.PerLineBelow < c.PerLineAbove {
		return fmt.Errorf("layout: perLineBelow (%v) must be >= perLineAbove (%v)", c.PerLineBelow, c.PerLineAbove)
	}
	if c.OffsetPx <= 0 || c.EMUPerPx <= 0 {
		return errors.New("layout: offsetPx and emuPerPx must be positive")
	}
	if c.LineSpacing <= 0 {
		return errors.New("layout: lineSpacing must be positive")
	}
	return nil
}

// Parameters is the layout derived from one headline.
type Parameters struct {
	LineCount    int     `json:"lineCount"`
	SpaceAbovePt float64 `json:"spaceAbovePt"`
	SpaceBelowPt float64 `json:"spaceBelowPt"`
	LineSpacing  float64 `json:"lineSpacing"`
	// ScaleY is applied relative to the current box height.
	ScaleY float64 `json:"scaleY"`
	// TranslateY is in EMU; negative moves the box up.
	TranslateY float64 `json:"translateY"`
}

// LineCount returns ceil(chars/CharsPerLine), never less than one. Characters
// are counted as runes of the NFC form so that decomposed accents do not
// inflate the estimate.
func (c Constants) LineCount(title string) int {
	per := c.CharsPerLine
	if per <= 0 {
		per = DefaultConstants().CharsPerLine
	}
	n := utf8.RuneCountInString(norm.NFC.String(title))
	lines := (n + per - 1) / per
	if lines < 1 {
		lines = 1
	}
	return lines
}

// Estimate derives the layout for title.
func (c Constants) Estimate(title string) Parameters {
	n := c.LineCount(title)
	lines := float64(n)
	return Parameters{
		LineCount:    n,
		SpaceAbovePt: c.BaseAbove + lines*c.PerLineAbove,
		SpaceBelowPt: c.BaseBelow + lines*c.PerLineBelow,
		LineSpacing:  c.LineSpacing,
		ScaleY:       1 + lines*c.ScaleFactor,
		TranslateY:   -(lines * c.OffsetPx * c.EMUPerPx),
	}
}

// Estimate applies DefaultConstants to title.
func Estimate(title string) Parameters {
	return DefaultConstants().Estimate(title)
}
