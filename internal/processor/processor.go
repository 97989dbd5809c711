package processor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ContentProcessor turns OCR markdown into other output formats
type ContentProcessor struct {
	md goldmark.Markdown
}

// NewContentProcessor keeps raw HTML in the markdown, since OCR output
// carries tables and sub/superscripts as inline HTML.
func NewContentProcessor() *ContentProcessor {
	return &ContentProcessor{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// ToText renders markdown to plain text. Blocks are separated by a blank
// line, table cells by tabs. Paragraphs are wrapped at lineWidth when it is
// positive.
func (cp *ContentProcessor) ToText(markdown string, lineWidth int) (string, error) {
	var rendered bytes.Buffer
	if err := cp.md.Convert([]byte(markdown), &rendered); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&rendered)
	if err != nil {
		return "", fmt.Errorf("failed to parse rendered markdown: %w", err)
	}

	var blocks []block
	cp.collectBlocks(doc.Find("body"), &blocks)

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.wrap {
			parts = append(parts, cp.wrapText(b.text, lineWidth))
		} else {
			parts = append(parts, b.text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// block is one paragraph-level piece of rendered text. Lists, tables and
// code keep their line structure and are never wrapped.
type block struct {
	text string
	wrap bool
}

func (cp *ContentProcessor) collectBlocks(sel *goquery.Selection, blocks *[]block) {
	sel.Children().Each(func(i int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "ul", "ol":
			var lines []string
			cp.convertList(s, &lines, 0)
			appendBlock(blocks, strings.Join(lines, "\n"), false)
		case "pre":
			appendBlock(blocks, strings.TrimRight(s.Text(), "\n"), false)
		case "table":
			appendBlock(blocks, cp.convertTable(s), false)
		case "hr", "img", "script", "style":
		case "blockquote", "div", "section":
			cp.collectBlocks(s, blocks)
		default:
			appendBlock(blocks, collapseSpace(s.Text()), true)
		}
	})
}

func (cp *ContentProcessor) convertList(sel *goquery.Selection, lines *[]string, depth int) {
	prefix := strings.Repeat("  ", depth)
	ordered := goquery.NodeName(sel) == "ol"

	sel.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", i+1)
		}

		item := li.Clone()
		item.Find("ul, ol").Remove()
		*lines = append(*lines, prefix+marker+collapseSpace(item.Text()))

		li.ChildrenFiltered("ul, ol").Each(func(j int, nested *goquery.Selection) {
			cp.convertList(nested, lines, depth+1)
		})
	})
}

func (cp *ContentProcessor) convertTable(table *goquery.Selection) string {
	var rows []string
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("th, td").Map(func(j int, cell *goquery.Selection) string {
			return collapseSpace(cell.Text())
		})
		rows = append(rows, strings.Join(cells, "\t"))
	})
	return strings.Join(rows, "\n")
}

func appendBlock(blocks *[]block, text string, wrap bool) {
	if strings.TrimSpace(text) != "" {
		*blocks = append(*blocks, block{text: text, wrap: wrap})
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (cp *ContentProcessor) wrapText(text string, lineWidth int) string {
	if lineWidth <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLine := words[0]
		for _, word := range words[1:] {
			if len(currentLine)+1+len(word) <= lineWidth {
				currentLine += " " + word
			} else {
				result.WriteString(currentLine + "\n")
				currentLine = word
			}
		}
		result.WriteString(currentLine)
	}

	return result.String()
}
