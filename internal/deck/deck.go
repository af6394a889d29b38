// Package deck writes article metadata into a remote presentation by
// duplicating a template slide and filling its hero image and headline box.
package deck

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/slides/v1"

	"github.com/hyperifyio/headlinedeck/internal/extract"
	"github.com/hyperifyio/headlinedeck/internal/layout"
)

// Template faults. These indicate a misconfigured template or a presentation
// edited concurrently, not transient failures.
var (
	ErrSlideNotFound      = errors.New("slide not found")
	ErrHeroImageNotFound  = errors.New("hero image not found")
	ErrHeadlineNotFound   = errors.New("headline box not found")
	ErrTemplateIncomplete = errors.New("template is not configured")
)

// MutationError is a failed call to the presentation service.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string { return fmt.Sprintf("slides %s: %v", e.Op, e.Err) }
func (e *MutationError) Unwrap() error { return e.Err }

// Service is the subset of the presentation API the mutator needs.
type Service interface {
	// Duplicate copies objectID within the presentation and returns the new id.
	Duplicate(ctx context.Context, presentationID, objectID string) (string, error)
	Get(ctx context.Context, presentationID string) (*slides.Presentation, error)
	// BatchUpdate applies requests atomically.
	BatchUpdate(ctx context.Context, presentationID string, requests []*slides.Request) error
}

// Template identifies the target presentation and its template slide. The
// headline box is found by HeadlineMarker in its alt-text title or description.
type Template struct {
	PresentationID string `yaml:"id" json:"id"`
	SlideID        string `yaml:"templateSlideId" json:"templateSlideId"`
	HeadlineMarker string `yaml:"headlineMarker" json:"headlineMarker"`
}

// Validate reports missing identifiers.
func (t Template) Validate() error {
	switch {
	case t.PresentationID == "":
		return fmt.Errorf("%w: presentation id is empty", ErrTemplateIncomplete)
	case t.SlideID == "":
		return fmt.Errorf("%w: template slide id is empty", ErrTemplateIncomplete)
	case t.HeadlineMarker == "":
		return fmt.Errorf("%w: headline marker is empty", ErrTemplateIncomplete)
	}
	return nil
}

// Mutator populates one duplicated slide per call. It assumes it is the only
// writer to the presentation while a call is in flight.
type Mutator struct {
	Service  Service
	Template Template
	Style    TextStyle
	Layout   layout.Constants
}

// NewMutator returns a Mutator with the default text style and layout.
func NewMutator(svc Service, tmpl Template) *Mutator {
	return &Mutator{Service: svc, Template: tmpl, Style: DefaultTextStyle(), Layout: layout.DefaultConstants()}
}

// Populate duplicates the template, locates its placeholders and writes meta
// into them with a single batch update. It returns the new slide id. A slide
// duplicated before a later step fails is left in the presentation; the id is
// still returned so the caller can clean it up.
func (m *Mutator) Populate(ctx context.Context, meta extract.Metadata) (string, error) {
	pid := m.Template.PresentationID
	slideID, err := m.Service.Duplicate(ctx, pid, m.Template.SlideID)
	if err != nil {
		return "", &MutationError{Op: "duplicate", Err: err}
	}

	pres, err := m.Service.Get(ctx, pid)
	if err != nil {
		return slideID, &MutationError{Op: "get", Err: err}
	}
	page := findSlide(pres, slideID)
	if page == nil {
		return slideID, fmt.Errorf("%w: %s", ErrSlideNotFound, slideID)
	}
	image := findHeroImage(page)
	if image == nil {
		return slideID, fmt.Errorf("%w on slide %s", ErrHeroImageNotFound, slideID)
	}
	headline := findHeadline(page, m.Template.HeadlineMarker)
	if headline == nil {
		return slideID, fmt.Errorf("%w: alt text must be %s", ErrHeadlineNotFound, m.Template.HeadlineMarker)
	}

	params := m.Layout.Estimate(meta.Title)
	requests := BuildRequests(image.ObjectId, headline.ObjectId, meta, params, m.Style)
	if err := m.Service.BatchUpdate(ctx, pid, requests); err != nil {
		return slideID, &MutationError{Op: "batchUpdate", Err: err}
	}
	log.Debug().
		Str("slide", slideID).
		Int("lines", params.LineCount).
		Float64("scaleY", params.ScaleY).
		Msg("slide populated")
	return slideID, nil
}

// Remove deletes slides in one batch. It is the compensating action for a
// build that failed part way.
func (m *Mutator) Remove(ctx context.Context, slideIDs []string) error {
	if len(slideIDs) == 0 {
		return nil
	}
	requests := make([]*slides.Request, 0, len(slideIDs))
	for _, id := range slideIDs {
		requests = append(requests, &slides.Request{DeleteObject: &slides.DeleteObjectRequest{ObjectId: id}})
	}
	if err := m.Service.BatchUpdate(ctx, m.Template.PresentationID, requests); err != nil {
		return &MutationError{Op: "deleteObject", Err: err}
	}
	return nil
}

func findSlide(p *slides.Presentation, id string) *slides.Page {
	if p == nil {
		return nil
	}
	for _, s := range p.Slides {
		if s != nil && s.ObjectId == id {
			return s
		}
	}
	return nil
}

func findHeroImage(page *slides.Page) *slides.PageElement {
	for _, el := range page.PageElements {
		if el != nil && el.Image != nil {
			return el
		}
	}
	return nil
}

func findHeadline(page *slides.Page, marker string) *slides.PageElement {
	for _, el := range page.PageElements {
		if el != nil && (el.Title == marker || el.Description == marker) {
			return el
		}
	}
	return nil
}
