package deck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/slides/v1"
)

// Credentials selects a service-account key. JSON wins over File when both
// are set; when neither is set application default credentials are used.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) options() []option.ClientOption {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.JSON))}
	case strings.TrimSpace(c.File) != "":
		return []option.ClientOption{option.WithCredentialsFile(c.File)}
	}
	return nil
}

// GoogleService implements Service on the Google Slides v1 API.
type GoogleService struct {
	svc *slides.Service
}

var _ Service = (*GoogleService)(nil)

// NewGoogleService authenticates with creds and the presentations scope.
// Extra options are appended, which lets tests point the client elsewhere.
func NewGoogleService(ctx context.Context, creds Credentials, extra ...option.ClientOption) (*GoogleService, error) {
	opts := append(creds.options(), option.WithScopes(slides.PresentationsScope))
	opts = append(opts, extra...)
	svc, err := slides.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("slides client: %w", err)
	}
	return &GoogleService{svc: svc}, nil
}

func (g *GoogleService) Duplicate(ctx context.Context, presentationID, objectID string) (string, error) {
	resp, err := g.svc.Presentations.BatchUpdate(presentationID, &slides.BatchUpdatePresentationRequest{
		Requests: []*slides.Request{{DuplicateObject: &slides.DuplicateObjectRequest{ObjectId: objectID}}},
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].DuplicateObject == nil || resp.Replies[0].DuplicateObject.ObjectId == "" {
		return "", errors.New("duplicate reply carried no object id")
	}
	return resp.Replies[0].DuplicateObject.ObjectId, nil
}

func (g *GoogleService) Get(ctx context.Context, presentationID string) (*slides.Presentation, error) {
	return g.svc.Presentations.Get(presentationID).Context(ctx).Do()
}

func (g *GoogleService) BatchUpdate(ctx context.Context, presentationID string, requests []*slides.Request) error {
	_, err := g.svc.Presentations.BatchUpdate(presentationID, &slides.BatchUpdatePresentationRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}
