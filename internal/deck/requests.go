package deck

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/slides/v1"

	"github.com/hyperifyio/headlinedeck/internal/extract"
	"github.com/hyperifyio/headlinedeck/internal/layout"
)

// RGB components are in [0,1].
type RGB struct {
	Red, Green, Blue float64
}

// ParseHexColor accepts "#RRGGBB" or "RRGGBB".
func ParseHexColor(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB{
		Red:   float64((v>>16)&0xff) / 255,
		Green: float64((v>>8)&0xff) / 255,
		Blue:  float64(v&0xff) / 255,
	}, nil
}

// TextStyle is applied to the whole headline after insertion.
type TextStyle struct {
	FontFamily string
	FontSizePt float64
	Color      RGB
}

// DefaultTextStyle matches the headline template.
func DefaultTextStyle() TextStyle {
	return TextStyle{FontFamily: "Crimson Text", FontSizePt: 55, Color: RGB{Red: 1, Green: 1, Blue: 1}}
}

// BuildRequests returns the ordered mutation batch for one slide: replace the
// hero image, clear and refill the headline, style it, pad it, then grow the
// box.
func BuildRequests(imageID, headlineID string, meta extract.Metadata, p layout.Parameters, style TextStyle) []*slides.Request {
	all := &slides.Range{Type: "ALL"}
	return []*slides.Request{
		{ReplaceImage: &slides.ReplaceImageRequest{
			ImageObjectId: imageID,
			Url:           meta.HeroImageURL,
		}},
		{DeleteText: &slides.DeleteTextRequest{
			ObjectId:  headlineID,
			TextRange: all,
		}},
		{InsertText: &slides.InsertTextRequest{
			ObjectId:        headlineID,
			InsertionIndex:  0,
			Text:            meta.Title,
			ForceSendFields: []string{"InsertionIndex"},
		}},
		{UpdateTextStyle: &slides.UpdateTextStyleRequest{
			ObjectId:  headlineID,
			TextRange: all,
			Style: &slides.TextStyle{
				FontFamily: style.FontFamily,
				FontSize:   &slides.Dimension{Magnitude: style.FontSizePt, Unit: "PT"},
				ForegroundColor: &slides.OptionalColor{OpaqueColor: &slides.OpaqueColor{RgbColor: &slides.RgbColor{
					Red:             style.Color.Red,
					Green:           style.Color.Green,
					Blue:            style.Color.Blue,
					ForceSendFields: []string{"Red", "Green", "Blue"},
				}}},
			},
			Fields: "fontFamily,fontSize,foregroundColor",
		}},
		{UpdateParagraphStyle: &slides.UpdateParagraphStyleRequest{
			ObjectId:  headlineID,
			TextRange: all,
			Style: &slides.ParagraphStyle{
				LineSpacing: p.LineSpacing,
				SpaceAbove:  &slides.Dimension{Magnitude: p.SpaceAbovePt, Unit: "PT"},
				SpaceBelow:  &slides.Dimension{Magnitude: p.SpaceBelowPt, Unit: "PT"},
			},
			Fields: "lineSpacing,spaceAbove,spaceBelow",
		}},
		{UpdatePageElementTransform: &slides.UpdatePageElementTransformRequest{
			ObjectId:  headlineID,
			ApplyMode: "RELATIVE",
			Transform: &slides.AffineTransform{
				ScaleX:          1,
				ScaleY:          p.ScaleY,
				TranslateX:      0,
				TranslateY:      p.TranslateY,
				Unit:            "EMU",
				ForceSendFields: []string{"TranslateX"},
			},
		}},
	}
}
