package ocr

import "context"

// Output formats for extracted content
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Options holds per-call processing settings
type Options struct {
	// IncludeImageBase64 asks the provider to return embedded page images.
	// It raises the cost of the call.
	IncludeImageBase64 bool

	// Format selects the content format: FormatMarkdown (default) or FormatText.
	Format string

	// MetadataFormat selects the persisted metadata encoding: "json" (default) or "yaml".
	MetadataFormat string
}

// Service is the interface for OCR providers
type Service interface {
	// ProviderName returns the unique identifier for this provider
	ProviderName() string

	// ProcessFile runs OCR on a single file. When outputDir is not empty the
	// content and metadata are persisted there and the Result records the
	// path of the text file. Read failures wrap ErrIO, remote failures wrap
	// ErrProvider.
	ProcessFile(ctx context.Context, path, outputDir string, opts Options) (Result, error)
}
