package processor

import (
	"strings"
	"testing"
)

func TestToText(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{
			name:     "heading and paragraph",
			markdown: "# Invoice\n\nTotal **due** is _42_.",
			want:     "Invoice\n\nTotal due is 42.",
		},
		{
			name:     "unordered list",
			markdown: "- apples\n- pears",
			want:     "- apples\n- pears",
		},
		{
			name:     "ordered nested list",
			markdown: "1. first\n2. second\n   - inner",
			want:     "1. first\n2. second\n  - inner",
		},
		{
			name:     "table",
			markdown: "| Item | Qty |\n|---|---|\n| Pen | 2 |",
			want:     "Item\tQty\nPen\t2",
		},
		{
			name:     "inline html keeps its text",
			markdown: "H<sub>2</sub>O is water",
			want:     "H2O is water",
		},
		{
			name:     "html table",
			markdown: "Totals\n\n<table><tr><th>Item</th><th>Qty</th></tr><tr><td>Pen</td><td>2</td></tr></table>",
			want:     "Totals\n\nItem\tQty\nPen\t2",
		},
		{
			name:     "html script is dropped",
			markdown: "<script>alert(1)</script>\n\nBody",
			want:     "Body",
		},
		{
			name:     "image only paragraph is dropped",
			markdown: "![img-0.jpeg](img-0.jpeg)\n\nCaption",
			want:     "Caption",
		},
		{
			name:     "code block keeps lines",
			markdown: "```\nline one\n  line two\n```",
			want:     "line one\n  line two",
		},
		{
			name:     "empty",
			markdown: "",
			want:     "",
		},
	}

	cp := NewContentProcessor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cp.ToText(tt.markdown, 0)
			if err != nil {
				t.Fatalf("ToText failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToText_Wrap(t *testing.T) {
	cp := NewContentProcessor()
	got, err := cp.ToText("one two three four five six\n\n- a list item that stays long", 10)
	if err != nil {
		t.Fatalf("ToText failed: %v", err)
	}

	paragraph, list, _ := strings.Cut(got, "\n\n")
	for _, line := range strings.Split(paragraph, "\n") {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if list != "- a list item that stays long" {
		t.Errorf("list should not be wrapped: %q", list)
	}
}

func TestWrapText_Disabled(t *testing.T) {
	cp := NewContentProcessor()
	if got := cp.wrapText("a b c", 0); got != "a b c" {
		t.Errorf("unexpected %q", got)
	}
}
