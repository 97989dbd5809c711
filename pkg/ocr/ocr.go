// Package ocr is the library entry point: it builds the configured OCR
// provider and runs batches through it.
package ocr

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/byteowlz/mistral-ocr/internal/config"
	core "github.com/byteowlz/mistral-ocr/internal/ocr"
)

type (
	Result       = core.Result
	Options      = core.Options
	Service      = core.Service
	ProgressFunc = core.ProgressFunc
)

var (
	ErrConfig   = core.ErrConfig
	ErrIO       = core.ErrIO
	ErrProvider = core.ErrProvider
)

// Version is sent in the User-Agent header
var Version = "dev"

type Client struct {
	config  *config.Config
	service Service
	logger  *zap.Logger
}

type ProcessOptions struct {
	// OutputDir receives <name>.ocr.md and <name>.ocr.json per input.
	// Empty means results are only returned.
	OutputDir string

	// Progress is called after each file
	Progress ProgressFunc
}

// New creates a Client for cfg. It fails with ErrConfig when no API key is
// available.
func New(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := core.NewMistralService(core.MistralConfig{
		APIKey:            cfg.Mistral.APIKey,
		Model:             cfg.Mistral.Model,
		BaseURL:           cfg.Mistral.BaseURL,
		Timeout:           time.Duration(cfg.Mistral.Timeout) * time.Second,
		UserAgent:         "mistral-ocr/" + Version,
		MaxImageDimension: cfg.Mistral.MaxImageDimension,
		LineWidth:         cfg.Output.LineWidth,
	}, core.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &Client{
		config:  cfg,
		service: service,
		logger:  logger,
	}, nil
}

// Service returns the underlying provider
func (c *Client) Service() Service {
	return c.service
}

// Options returns the per-file options derived from the configuration
func (c *Client) Options() Options {
	return Options{
		IncludeImageBase64: c.config.Mistral.IncludeImageBase64,
		Format:             c.config.Output.Format,
		MetadataFormat:     c.config.Output.MetadataFormat,
	}
}

// Process runs OCR over paths in order and returns one Result per path.
func (c *Client) Process(ctx context.Context, paths []string, opts ProcessOptions) []Result {
	start := time.Now()

	var batchOpts []core.BatchOption
	if opts.Progress != nil {
		batchOpts = append(batchOpts, core.WithProgress(opts.Progress))
	}

	if opts.OutputDir != "" {
		for stem, group := range core.SharedStems(paths) {
			c.logger.Warn("inputs share an output name, later files overwrite earlier ones",
				zap.String("stem", stem),
				zap.Strings("files", group),
				zap.String("output_dir", opts.OutputDir))
		}
	}

	results := core.ProcessFiles(ctx, c.service, paths, opts.OutputDir, c.Options(), batchOpts...)

	failed := 0
	for i, r := range results {
		if !r.Succeeded() {
			failed++
			c.logger.Debug("file failed", zap.String("file", paths[i]), zap.String("error", r.ErrorMessage()))
		}
	}
	c.logger.Debug("batch complete",
		zap.String("provider", c.service.ProviderName()),
		zap.Int("files", len(paths)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))

	return results
}
