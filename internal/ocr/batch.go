package ocr

import (
	"context"
	"fmt"
)

// ProgressFunc is called after each item of a batch has been processed.
type ProgressFunc func(index int, path string, result Result)

type batchConfig struct {
	progress ProgressFunc
}

// BatchOption configures ProcessFiles
type BatchOption func(*batchConfig)

// WithProgress registers a callback invoked after every item.
func WithProgress(fn ProgressFunc) BatchOption {
	return func(c *batchConfig) {
		c.progress = fn
	}
}

// ProcessFiles runs svc.ProcessFile on every path, one at a time and in order.
// A failing item is recorded as a FailedResult and the batch moves on, so the
// returned slice always has exactly one Result per path.
func ProcessFiles(ctx context.Context, svc Service, paths []string, outputDir string, opts Options, batchOpts ...BatchOption) []Result {
	var cfg batchConfig
	for _, o := range batchOpts {
		o(&cfg)
	}

	results := make([]Result, 0, len(paths))
	for i, path := range paths {
		result := processOne(ctx, svc, path, outputDir, opts)
		results = append(results, result)
		if cfg.progress != nil {
			cfg.progress(i, path, result)
		}
	}
	return results
}

func processOne(ctx context.Context, svc Service, path, outputDir string, opts Options) (result Result) {
	provider := svc.ProviderName()

	if err := ctx.Err(); err != nil {
		return FailedResult(provider, path, fmt.Errorf("%w: %s: %w", ErrProvider, provider, err))
	}

	// A panicking provider must not take the rest of the batch down with it.
	defer func() {
		if r := recover(); r != nil {
			result = FailedResult(provider, path, fmt.Errorf("%s: panic: %v", provider, r))
		}
	}()

	result, err := svc.ProcessFile(ctx, path, outputDir, opts)
	if err != nil {
		return FailedResult(provider, path, err)
	}
	return result
}
