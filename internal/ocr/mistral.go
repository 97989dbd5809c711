package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/byteowlz/mistral-ocr/internal/mistral"
	"github.com/byteowlz/mistral-ocr/internal/output"
	"github.com/byteowlz/mistral-ocr/internal/processor"
)

const (
	// APIKeyEnv is read when no API key is configured explicitly
	APIKeyEnv = "MISTRAL_API_KEY"

	DefaultModel = "mistral-ocr-latest"

	mistralScheme = "mistral_ocr"
)

// MistralConfig configures a MistralService
type MistralConfig struct {
	APIKey            string        // falls back to $MISTRAL_API_KEY
	Model             string        // defaults to DefaultModel
	BaseURL           string        // defaults to mistral.DefaultBaseURL
	Timeout           time.Duration // per HTTP request
	UserAgent         string
	MaxImageDimension int // downscale larger images before upload, 0 = off
	LineWidth         int // wrap width for FormatText, 0 = off
}

// MistralService runs OCR through the Mistral OCR API
type MistralService struct {
	model             string
	maxImageDimension int
	lineWidth         int
	client            *mistral.Client
	processor         *processor.ContentProcessor
	logger            *zap.Logger
}

type MistralOption func(*MistralService)

// WithLogger sets the logger used for per-file diagnostics
func WithLogger(logger *zap.Logger) MistralOption {
	return func(m *MistralService) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMistralService creates the Mistral provider. It fails with ErrConfig
// when no API key is available from cfg or the environment.
func NewMistralService(cfg MistralConfig, opts ...MistralOption) (*MistralService, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: mistral: API key not configured (set mistral.api_key in config or %s env var)", ErrConfig, APIKeyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientOpts := []mistral.Option{
		mistral.WithBaseURL(cfg.BaseURL),
		mistral.WithTimeout(cfg.Timeout),
	}
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, mistral.WithUserAgent(cfg.UserAgent))
	}

	m := &MistralService{
		model:             model,
		maxImageDimension: cfg.MaxImageDimension,
		lineWidth:         cfg.LineWidth,
		client:            mistral.NewClient(apiKey, clientOpts...),
		processor:         processor.NewContentProcessor(),
		logger:            zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// ProviderName returns the provider identifier
func (m *MistralService) ProviderName() string {
	return "mistral"
}

// Model returns the OCR model used for every call
func (m *MistralService) Model() string {
	return m.model
}

// ProcessFile runs OCR on one image or document
func (m *MistralService) ProcessFile(ctx context.Context, path, outputDir string, opts Options) (Result, error) {
	format, textExt, err := resolveFormat(opts.Format)
	if err != nil {
		return Result{}, err
	}
	if err := checkMetadataFormat(opts.MetadataFormat); err != nil {
		return Result{}, err
	}

	log := m.logger.With(zap.String("file", path))
	start := time.Now()

	document, err := m.buildDocument(ctx, path, log)
	if err != nil {
		return Result{}, err
	}

	resp, err := m.client.OCR(ctx, mistral.OCRRequest{
		Model:              m.model,
		Document:           document,
		IncludeImageBase64: opts.IncludeImageBase64,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	content := joinPages(resp.Pages)
	if format == FormatText {
		content, err = m.processor.ToText(content, m.lineWidth)
		if err != nil {
			return Result{}, fmt.Errorf("%w: mistral: %w", ErrProvider, err)
		}
	}

	metadata := m.metadata(path, resp, format, opts)

	var outputPath string
	if outputDir != "" {
		w := output.NewWriter(outputDir, opts.MetadataFormat, textExt)
		outputPath, err = w.Write(Stem(path), content, metadata)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrIO, err)
		}
	}

	log.Debug("ocr complete",
		zap.Int("pages", len(resp.Pages)),
		zap.Int("chars", len(content)),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("output", outputPath))

	return NewResult(content, metadata, outputPath), nil
}

// buildDocument inlines images as data URLs and uploads everything else,
// pointing the OCR call at a signed URL.
func (m *MistralService) buildDocument(ctx context.Context, path string, log *zap.Logger) (mistral.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mistral.Document{}, fmt.Errorf("%w: failed to read %s: %w", ErrIO, path, err)
	}

	if IsImage(path) {
		mimeType := ImageMIMEType(path, data)

		if m.maxImageDimension > 0 {
			resized, resizedType, ok, err := processor.DownscaleImage(path, m.maxImageDimension)
			switch {
			case err != nil:
				log.Warn("image downscale failed, sending original", zap.Error(err))
			case ok:
				log.Debug("image downscaled",
					zap.Int("original_bytes", len(data)),
					zap.Int("resized_bytes", len(resized)))
				data, mimeType = resized, resizedType
			}
		}

		log.Debug("sending image inline", zap.String("mime", mimeType), zap.Int("bytes", len(data)))
		return mistral.Document{
			Type:     mistral.DocumentTypeImageURL,
			ImageURL: fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
		}, nil
	}

	file, err := m.client.UploadFile(ctx, filepath.Base(path), bytes.NewReader(data))
	if err != nil {
		return mistral.Document{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	log.Debug("document uploaded", zap.String("file_id", file.ID), zap.Int64("bytes", file.Bytes))

	signedURL, err := m.client.SignedURL(ctx, file.ID)
	if err != nil {
		return mistral.Document{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	return mistral.Document{
		Type:        mistral.DocumentTypeDocumentURL,
		DocumentURL: signedURL,
	}, nil
}

func (m *MistralService) metadata(path string, resp *mistral.OCRResponse, format string, opts Options) map[string]any {
	metadata := map[string]any{
		MetaScheme:             mistralScheme,
		MetaProvider:           m.ProviderName(),
		MetaModel:              m.model,
		MetaSourceFile:         path,
		MetaIncludeImageBase64: opts.IncludeImageBase64,
		MetaFormat:             format,
	}
	if len(resp.Pages) > 0 {
		metadata[MetaPages] = len(resp.Pages)
	}
	if resp.UsageInfo.DocSizeBytes > 0 {
		metadata[MetaDocSizeBytes] = resp.UsageInfo.DocSizeBytes
	}
	return metadata
}

// joinPages concatenates page markdown in page order, separated by a blank line
func joinPages(pages []mistral.Page) string {
	sorted := slices.Clone(pages)
	slices.SortStableFunc(sorted, func(a, b mistral.Page) int {
		return a.Index - b.Index
	})

	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = p.Markdown
	}
	return strings.Join(parts, "\n\n")
}

func resolveFormat(format string) (name, textExt string, err error) {
	switch format {
	case "", FormatMarkdown:
		return FormatMarkdown, ".md", nil
	case FormatText:
		return FormatText, ".txt", nil
	default:
		return "", "", fmt.Errorf("%w: unknown format: %s (available: markdown, text)", ErrConfig, format)
	}
}

func checkMetadataFormat(format string) error {
	switch format {
	case "", output.MetadataJSON, output.MetadataYAML:
		return nil
	default:
		return fmt.Errorf("%w: unknown metadata format: %s (available: json, yaml)", ErrConfig, format)
	}
}
