package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/byteowlz/mistral-ocr/internal/config"
	"github.com/byteowlz/mistral-ocr/internal/logging"
	"github.com/byteowlz/mistral-ocr/pkg/ocr"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitAllFailed    = 1
	ExitInvalidInput = 3
	ExitConfigError  = 4
	ExitFileIOError  = 5
	ExitPartialError = 6 // some files failed, some succeeded
)

var (
	cfgFile            string
	outputDir          string
	model              string
	outputFormat       string
	metadataFormat     string
	includeImageBase64 bool
	maxImageDimension  int
	lineWidth          int
	timeout            int
	noSave             bool
	separator          string
	verbose            bool
	quiet              bool
	force              bool
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "mistral-ocr",
	Short: "Extract text from PDFs and images using Mistral OCR",
	Long: `mistral-ocr sends PDF documents and images to the Mistral OCR API and
writes the extracted markdown plus a metadata file next to each other.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var ocrCmd = &cobra.Command{
	Use:   "ocr [files...]",
	Short: "Process PDFs and images with Mistral OCR",
	Example: `  mistral-ocr ocr document.pdf
  mistral-ocr ocr --output-dir ./output *.pdf
  mistral-ocr ocr --model mistral-ocr-latest image.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOCR,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write an example config file",
	Args:  cobra.NoArgs,
	RunE:  runInitConfig,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		if !quiet {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	ocr.Version = version

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/mistral-ocr/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all non-content output")

	// Output flags
	ocrCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "output directory for processed files")
	ocrCmd.Flags().BoolVar(&noSave, "no-save", false, "print extracted content to stdout instead of writing files")
	ocrCmd.Flags().StringVar(&separator, "separator", "---", "output separator between files with --no-save")
	ocrCmd.Flags().StringVar(&outputFormat, "format", "markdown", "content format (markdown|text)")
	ocrCmd.Flags().StringVar(&metadataFormat, "metadata-format", "json", "metadata file format (json|yaml)")
	ocrCmd.Flags().IntVar(&lineWidth, "line-width", 0, "wrap text output at N columns (0 = unlimited)")

	// Provider flags
	ocrCmd.Flags().StringVarP(&model, "model", "m", "mistral-ocr-latest", "OCR model to use")
	ocrCmd.Flags().BoolVar(&includeImageBase64, "include-image-base64", false, "include base64 image data in OCR response (increases cost)")
	ocrCmd.Flags().IntVar(&maxImageDimension, "max-image-dimension", 0, "downscale images larger than N pixels before upload (0 = off)")
	ocrCmd.Flags().IntVar(&timeout, "timeout", 120, "request timeout in seconds")

	initConfigCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	rootCmd.AddCommand(ocrCmd, initConfigCmd)
}

func runOCR(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return exitError(ExitConfigError, "failed to load config: %v", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return exitError(ExitConfigError, "%v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, verbose, quiet)
	if err != nil {
		return exitError(ExitConfigError, "failed to create logger: %v", err)
	}
	defer logger.Sync()

	files, err := validateFiles(args)
	if err != nil {
		return exitError(ExitInvalidInput, "%v", err)
	}

	client, err := ocr.New(cfg, logger)
	if err != nil {
		return exitError(ExitConfigError, "error initializing Mistral OCR service: %v", err)
	}

	dir := saveDir(cfg.Output.Dir, noSave)

	batchID := uuid.NewString()
	log := logger.With(zap.String("batch", batchID))
	log.Debug("starting batch",
		zap.Int("files", len(files)),
		zap.String("model", cfg.Mistral.Model),
		zap.String("output_dir", dir))

	if !quiet {
		fmt.Fprintf(os.Stderr, "Processing %d files with Mistral OCR...\n", len(files))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := client.Process(ctx, files, ocr.ProcessOptions{
		OutputDir: dir,
		Progress: func(i int, path string, r ocr.Result) {
			reportProgress(log, i, len(files), path, r)
		},
	})

	if noSave {
		if err := writeContents(os.Stdout, results); err != nil {
			return exitError(ExitFileIOError, "failed to write output: %v", err)
		}
	}

	return summarize(results)
}

// applyFlags lets explicitly set flags override the config file
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.Output.Dir = outputDir
	}
	if flags.Changed("model") {
		cfg.Mistral.Model = model
	}
	if flags.Changed("format") {
		cfg.Output.Format = outputFormat
	}
	if flags.Changed("metadata-format") {
		cfg.Output.MetadataFormat = metadataFormat
	}
	if flags.Changed("line-width") {
		cfg.Output.LineWidth = lineWidth
	}
	if flags.Changed("include-image-base64") {
		cfg.Mistral.IncludeImageBase64 = includeImageBase64
	}
	if flags.Changed("max-image-dimension") {
		cfg.Mistral.MaxImageDimension = maxImageDimension
	}
	if flags.Changed("timeout") {
		cfg.Mistral.Timeout = timeout
	}
}

// saveDir returns the directory results are written to, or "" when saving
// is turned off. An empty configured directory means the working directory.
func saveDir(dir string, noSave bool) string {
	if noSave {
		return ""
	}
	if dir == "" {
		return "."
	}
	return dir
}

// validateFiles checks that every argument names an existing regular file
func validateFiles(args []string) ([]string, error) {
	files := make([]string, 0, len(args))
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("file %s does not exist", path)
			}
			return nil, fmt.Errorf("cannot access %s: %v", path, err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%s is not a file", path)
		}
		files = append(files, path)
	}
	return files, nil
}

func reportProgress(log *zap.Logger, i, total int, path string, r ocr.Result) {
	name := filepath.Base(path)
	if !r.Succeeded() {
		log.Debug("file failed", zap.String("file", path), zap.Any("metadata", r.Metadata()))
		if !quiet {
			fmt.Fprintf(os.Stderr, "✗ [%d/%d] Failed %s: %s\n", i+1, total, name, r.ErrorMessage())
		}
		return
	}

	if quiet {
		return
	}
	if r.OutputPath() != "" {
		fmt.Fprintf(os.Stderr, "✓ [%d/%d] Processed %s → %s\n", i+1, total, name, r.OutputPath())
	} else {
		fmt.Fprintf(os.Stderr, "✓ [%d/%d] Processed %s\n", i+1, total, name)
	}
}

// writeContents prints successful results separated by the separator line
func writeContents(w io.Writer, results []ocr.Result) error {
	first := true
	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		if !first {
			if _, err := fmt.Fprintf(w, "\n%s\n", separator); err != nil {
				return err
			}
		}
		first = false
		if _, err := fmt.Fprint(w, r.Content()); err != nil {
			return err
		}
	}
	if !first {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

func summarize(results []ocr.Result) error {
	successCount := 0
	for _, r := range results {
		if r.Succeeded() {
			successCount++
		}
	}
	total := len(results)

	if !quiet {
		if successCount == total {
			fmt.Fprintf(os.Stderr, "Successfully processed all %d files!\n", total)
		} else {
			fmt.Fprintf(os.Stderr, "Processed %d/%d files successfully\n", successCount, total)
		}
	}

	switch {
	case successCount == total:
		return nil
	case successCount > 0:
		return &exitErr{code: ExitPartialError}
	default:
		return &exitErr{code: ExitAllFailed}
	}
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return exitError(ExitConfigError, "cannot determine config path, use --config")
	}

	if _, err := os.Stat(path); err == nil && !force {
		return exitError(ExitConfigError, "config file %s already exists (use --force to overwrite)", path)
	}

	if err := config.Default().CreateExampleConfig(path); err != nil {
		return exitError(ExitFileIOError, "%v", err)
	}
	if !quiet {
		fmt.Fprintf(os.Stderr, "Created config file: %s\n", path)
	}
	return nil
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...interface{}) *exitErr {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}
