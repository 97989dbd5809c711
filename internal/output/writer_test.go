package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewWriter_Defaults(t *testing.T) {
	w := NewWriter("out", "", "")
	if w.MetadataFormat != MetadataJSON {
		t.Errorf("expected json metadata, got %q", w.MetadataFormat)
	}
	if w.TextExt != ".md" {
		t.Errorf("expected .md extension, got %q", w.TextExt)
	}
}

func TestWriter_Paths(t *testing.T) {
	w := NewWriter("out", MetadataYAML, ".txt")
	text, meta := w.Paths("scan")
	if text != filepath.Join("out", "scan.ocr.txt") {
		t.Errorf("unexpected text path %q", text)
	}
	if meta != filepath.Join("out", "scan.ocr.yaml") {
		t.Errorf("unexpected metadata path %q", meta)
	}
}

func TestWriter_Write_JSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewWriter(dir, MetadataJSON, ".md")

	path, err := w.Write("report", "# Title\n\n<b>body</b>", map[string]any{
		"provider": "mistral",
		"pages":    2,
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if path != filepath.Join(dir, "report.ocr.md") {
		t.Errorf("unexpected path %q", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read content: %v", err)
	}
	if string(content) != "# Title\n\n<b>body</b>" {
		t.Errorf("unexpected content %q", content)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "report.ocr.json"))
	if err != nil {
		t.Fatalf("failed to read metadata: %v", err)
	}
	if !strings.Contains(string(raw), "\n  \"pages\": 2") {
		t.Errorf("expected indented JSON, got %s", raw)
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("invalid metadata JSON: %v", err)
	}
	if meta["provider"] != "mistral" {
		t.Errorf("unexpected provider %v", meta["provider"])
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected exactly 2 files, got %d", len(entries))
	}
}

func TestWriter_Write_YAML(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, MetadataYAML, ".txt")

	if _, err := w.Write("scan", "text", map[string]any{"model": "mistral-ocr-latest"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "scan.ocr.yaml"))
	if err != nil {
		t.Fatalf("failed to read metadata: %v", err)
	}
	var meta map[string]any
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("invalid metadata YAML: %v", err)
	}
	if meta["model"] != "mistral-ocr-latest" {
		t.Errorf("unexpected model %v", meta["model"])
	}
}

func TestWriter_Write_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "xml", ".md")

	_, err := w.Write("scan", "text", map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "unknown metadata format") {
		t.Fatalf("expected format error, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files after failed write, got %d", len(entries))
	}
}

func TestWriter_Write_DirIsFile(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w := NewWriter(filepath.Join(blocker, "out"), MetadataJSON, ".md")
	if _, err := w.Write("scan", "text", map[string]any{}); err == nil {
		t.Fatal("expected error when output dir cannot be created")
	}
}

func TestWriter_Write_KeepsEarlierOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "a.ocr.md")
	if err := os.WriteFile(textPath, []byte("previous run"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "a.ocr.json"), 0755); err != nil {
		t.Fatal(err)
	}

	w := NewWriter(dir, MetadataJSON, ".md")
	if _, err := w.Write("a", "new content", map[string]any{"pages": 1}); err == nil {
		t.Fatal("expected error when metadata path is a directory")
	}

	data, err := os.ReadFile(textPath)
	if err != nil {
		t.Fatalf("earlier output was removed: %v", err)
	}
	if string(data) != "previous run" {
		t.Errorf("earlier output was overwritten: %q", data)
	}
	assertNoTempFiles(t, dir)
}

func TestCommit_RestoresEarlierFiles(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "a.ocr.md")
	metaPath := filepath.Join(dir, "a.ocr.json")
	if err := os.WriteFile(textPath, []byte("old text"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(metaPath, []byte("old meta"), 0644); err != nil {
		t.Fatal(err)
	}
	textTmp := filepath.Join(dir, ".a.1.tmp")
	if err := os.WriteFile(textTmp, []byte("new text"), 0644); err != nil {
		t.Fatal(err)
	}

	// the metadata temp file is missing, so its rename fails after the text
	// file was already placed
	err := commit([]staged{
		{tmp: textTmp, dst: textPath},
		{tmp: filepath.Join(dir, ".a.2.tmp"), dst: metaPath},
	})
	if err == nil {
		t.Fatal("expected commit to fail")
	}

	for path, want := range map[string]string{textPath: "old text", metaPath: "old meta"} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("%s missing after rollback: %v", path, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", path, data, want)
		}
	}
	assertNoTempFiles(t, dir)
}

func TestCommit_ReplacesEarlierFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, MetadataJSON, ".md")
	for _, content := range []string{"first", "second"} {
		if _, err := w.Write("a", content, map[string]any{}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.ocr.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("expected second write to win, got %q", data)
	}
	assertNoTempFiles(t, dir)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") || strings.HasSuffix(e.Name(), ".bak") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
