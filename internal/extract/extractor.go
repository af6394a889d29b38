package extract

// Extractor turns one fetched page into slide metadata. Rules is the
// selector-driven implementation; tests and dry runs can swap in others.
type Extractor interface {
	// Extract returns both fields or an error wrapping ErrExtraction.
	Extract(input []byte, pageURL string) (Metadata, error)
}

var _ Extractor = Rules{}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(input []byte, pageURL string) (Metadata, error)

func (f ExtractorFunc) Extract(input []byte, pageURL string) (Metadata, error) {
	return f(input, pageURL)
}
