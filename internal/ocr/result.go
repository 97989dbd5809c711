package ocr

import "maps"

// Metadata keys shared by all providers
const (
	MetaScheme             = "scheme"
	MetaProvider           = "provider"
	MetaModel              = "model"
	MetaSourceFile         = "source_file"
	MetaPages              = "pages"
	MetaIncludeImageBase64 = "include_image_base64"
	MetaDocSizeBytes       = "doc_size_bytes"
	MetaFormat             = "format"
	MetaError              = "error"
	MetaErrorKind          = "error_kind"
	MetaSuccess            = "success"
)

// Result is the outcome of processing one file. It is built once and never
// modified afterwards; Metadata hands out copies.
type Result struct {
	content    string
	metadata   map[string]any
	outputPath string
}

// NewResult builds a Result. If metadata marks a failure the content and
// output path are dropped.
func NewResult(content string, metadata map[string]any, outputPath string) Result {
	r := Result{
		content:    content,
		metadata:   maps.Clone(metadata),
		outputPath: outputPath,
	}
	if r.metadata == nil {
		r.metadata = map[string]any{}
	}
	if !r.Succeeded() {
		r.content = ""
		r.outputPath = ""
	}
	return r
}

// FailedResult builds the result recorded for a file whose processing
// returned err.
func FailedResult(provider, sourceFile string, err error) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		metadata: map[string]any{
			MetaError:      msg,
			MetaErrorKind:  KindOf(err),
			MetaProvider:   provider,
			MetaSourceFile: sourceFile,
			MetaSuccess:    false,
		},
	}
}

// Content returns the extracted text.
func (r Result) Content() string { return r.content }

// OutputPath returns the path of the persisted text file, or "" when
// nothing was written.
func (r Result) OutputPath() string { return r.outputPath }

// Metadata returns a copy of the result metadata.
func (r Result) Metadata() map[string]any { return maps.Clone(r.metadata) }

// Succeeded reports whether the result carries no failure marker.
func (r Result) Succeeded() bool {
	if _, ok := r.metadata[MetaError]; ok {
		return false
	}
	if ok, isBool := r.metadata[MetaSuccess].(bool); isBool && !ok {
		return false
	}
	return true
}

// ErrorMessage returns the failure description, or "" for a successful result.
func (r Result) ErrorMessage() string {
	if msg, ok := r.metadata[MetaError].(string); ok {
		return msg
	}
	if !r.Succeeded() {
		return "unknown error"
	}
	return ""
}
