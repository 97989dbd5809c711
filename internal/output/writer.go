package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Metadata encodings
const (
	MetadataJSON = "json"
	MetadataYAML = "yaml"
)

// Writer persists extracted content and its metadata as two sibling files:
// <stem>.ocr.md (or .ocr.txt) and <stem>.ocr.json (or .ocr.yaml).
type Writer struct {
	Dir            string
	MetadataFormat string
	TextExt        string // ".md" or ".txt"
}

// NewWriter creates a Writer for dir. Empty formats fall back to JSON metadata
// and markdown content.
func NewWriter(dir, metadataFormat, textExt string) *Writer {
	if metadataFormat == "" {
		metadataFormat = MetadataJSON
	}
	if textExt == "" {
		textExt = ".md"
	}
	return &Writer{Dir: dir, MetadataFormat: metadataFormat, TextExt: textExt}
}

// Paths returns the text and metadata file paths for stem.
func (w *Writer) Paths(stem string) (textPath, metaPath string) {
	textPath = filepath.Join(w.Dir, stem+".ocr"+w.TextExt)
	metaPath = filepath.Join(w.Dir, stem+".ocr."+w.MetadataFormat)
	return textPath, metaPath
}

// Write stores content and metadata and returns the text file path.
// Both files are staged as temp files and only renamed into place once both
// were written. Files from an earlier run are restored if either rename
// fails, so a failed write changes nothing on disk.
func (w *Writer) Write(stem, content string, metadata map[string]any) (string, error) {
	metaBytes, err := w.encodeMetadata(metadata)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.Dir, err)
	}

	textPath, metaPath := w.Paths(stem)
	for _, path := range []string{textPath, metaPath} {
		if info, err := os.Lstat(path); err == nil && !info.Mode().IsRegular() {
			return "", fmt.Errorf("failed to write %s: not a regular file", path)
		}
	}

	textTmp, err := w.stage(stem, []byte(content))
	if err != nil {
		return "", err
	}
	metaTmp, err := w.stage(stem, metaBytes)
	if err != nil {
		os.Remove(textTmp)
		return "", err
	}

	if err := commit([]staged{{tmp: textTmp, dst: textPath}, {tmp: metaTmp, dst: metaPath}}); err != nil {
		return "", err
	}
	return textPath, nil
}

type staged struct {
	tmp string
	dst string
}

// commit renames each temp file onto its destination. Existing destinations
// are moved aside first and put back if a later rename fails.
func commit(files []staged) error {
	var backups []staged // tmp holds the backup of dst
	var placed []string

	rollback := func() {
		for _, path := range placed {
			os.Remove(path)
		}
		for _, b := range backups {
			os.Rename(b.tmp, b.dst)
		}
		for _, f := range files {
			os.Remove(f.tmp)
		}
	}

	for _, f := range files {
		if _, err := os.Lstat(f.dst); err == nil {
			backup := f.tmp + ".bak"
			if err := os.Rename(f.dst, backup); err != nil {
				rollback()
				return fmt.Errorf("failed to replace %s: %w", f.dst, err)
			}
			backups = append(backups, staged{tmp: backup, dst: f.dst})
		}
		if err := os.Rename(f.tmp, f.dst); err != nil {
			rollback()
			return fmt.Errorf("failed to write %s: %w", f.dst, err)
		}
		placed = append(placed, f.dst)
	}

	for _, b := range backups {
		os.Remove(b.tmp)
	}
	return nil
}

func (w *Writer) stage(stem string, data []byte) (string, error) {
	f, err := os.CreateTemp(w.Dir, "."+stem+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create file in %s: %w", w.Dir, err)
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return name, nil
}

func (w *Writer) encodeMetadata(metadata map[string]any) ([]byte, error) {
	switch w.MetadataFormat {
	case MetadataJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metadata); err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		return buf.Bytes(), nil
	case MetadataYAML:
		data, err := yaml.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown metadata format: %s (available: json, yaml)", w.MetadataFormat)
	}
}
