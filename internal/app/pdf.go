package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/headlinedeck/internal/build"
	"github.com/hyperifyio/headlinedeck/internal/deck"
)

// Slide geometry in points (16:9, 10in x 5.625in).
const (
	slideWidthPt  = 720.0
	slideHeightPt = 405.0
	emuPerPt      = 12700.0
	headlineLeft  = 40.0
	// headlineBottom anchors the template headline box before it grows.
	headlineBottom = 330.0
)

// WritePreviewPDF renders one slide-sized page per article: the headline in
// the configured style inside its estimated box, followed by the source URL,
// hero image link and layout numbers. It is a proof sheet, not a faithful
// render; core PDF fonts stand in for the slide font.
func WritePreviewPDF(res build.Result, style deck.TextStyle, outPath string) error {
	if len(res.Articles) == 0 {
		return errors.New("preview: no articles")
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		OrientationStr: "L",
		Size:           gofpdf.SizeType{Wd: slideWidthPt, Ht: slideHeightPt},
	})
	pdf.SetTitle("headlinedeck preview", true)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, art := range res.Articles {
		pdf.AddPage()
		pdf.SetFillColor(24, 24, 24)
		pdf.Rect(0, 0, slideWidthPt, slideHeightPt, "F")

		p := art.Layout
		lineHeight := style.FontSizePt * p.LineSpacing / 100
		boxHeight := float64(p.LineCount)*lineHeight + p.SpaceAbovePt + p.SpaceBelowPt
		top := headlineBottom + p.TranslateY/emuPerPt - boxHeight
		if top < 10 {
			top = 10
		}

		pdf.SetDrawColor(200, 200, 200)
		pdf.SetDashPattern([]float64{4, 3}, 0)
		pdf.Rect(headlineLeft, top, slideWidthPt-2*headlineLeft, boxHeight, "D")
		pdf.SetDashPattern([]float64{}, 0)

		pdf.SetTextColor(int(style.Color.Red*255), int(style.Color.Green*255), int(style.Color.Blue*255))
		pdf.SetFont("Times", "B", style.FontSizePt)
		pdf.SetXY(headlineLeft, top+p.SpaceAbovePt)
		pdf.MultiCell(slideWidthPt-2*headlineLeft, lineHeight, tr(art.Title), "", "L", false)

		pdf.SetTextColor(220, 220, 220)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetXY(headlineLeft, headlineBottom+12)
		pdf.CellFormat(0, 11, tr(art.URL), "", 1, "L", false, 0, "")
		pdf.SetX(headlineLeft)
		pdf.WriteLinkString(11, tr(art.HeroImageURL), art.HeroImageURL)
		pdf.Ln(12)
		pdf.SetX(headlineLeft)
		pdf.CellFormat(0, 11, layoutSummary(art), "", 1, "L", false, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return pdf.OutputFileAndClose(outPath)
}

func layoutSummary(art build.Article) string {
	p := art.Layout
	parts := []string{
		fmt.Sprintf("lines %d", p.LineCount),
		fmt.Sprintf("above %gpt", p.SpaceAbovePt),
		fmt.Sprintf("below %gpt", p.SpaceBelowPt),
		fmt.Sprintf("scaleY %.2f", p.ScaleY),
		fmt.Sprintf("translateY %.0f EMU", p.TranslateY),
	}
	if art.SlideID != "" {
		parts = append(parts, "slide "+art.SlideID)
	}
	return strings.Join(parts, "  |  ")
}
