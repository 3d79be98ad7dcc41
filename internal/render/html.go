// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns an assembled Markdown document into HTML and PDF.
// HTML comes from goldmark with a generated table of contents; PDF comes
// from a pluggable backend (headless Chrome or wkhtmltopdf).
package render

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/pdiddy/equeo-export/internal/assemble"
	"github.com/pdiddy/equeo-export/pkg/types"
)

const (
	defaultTOCTitle = "Оглавление"
	defaultTOCDepth = 1
)

// HTMLRenderer converts Markdown to HTML and expands the table of contents
// marker. It is stateless and safe to reuse.
type HTMLRenderer struct {
	md       goldmark.Markdown
	tocTitle string
	tocDepth int
	css      string
}

// NewHTMLRenderer builds a renderer from cfg. When cfg.StyleSheet is set the
// file is read once and inlined into every document.
func NewHTMLRenderer(cfg types.RenderConfig) (*HTMLRenderer, error) {
	r := &HTMLRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			// Longread bodies carry inline HTML (images, spans) that must survive.
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		tocTitle: cfg.TOCTitle,
		tocDepth: cfg.TOCDepth,
	}
	if r.tocTitle == "" {
		r.tocTitle = defaultTOCTitle
	}
	if r.tocDepth <= 0 {
		r.tocDepth = defaultTOCDepth
	}
	if cfg.StyleSheet != "" {
		css, err := os.ReadFile(cfg.StyleSheet)
		if err != nil {
			return nil, fmt.Errorf("reading style sheet: %w", err)
		}
		r.css = string(css)
	}
	return r, nil
}

// Fragment renders markdown to an HTML body fragment with the TOC marker
// replaced.
func (r *HTMLRenderer) Fragment(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	ctx := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	if err := r.md.Convert(markdown, &buf, parser.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("markdown parse: %w", err)
	}
	return r.expandTOC(buf.Bytes())
}

// Render renders markdown to a complete HTML document titled title.
func (r *HTMLRenderer) Render(title string, markdown []byte) ([]byte, error) {
	body, err := r.Fragment(markdown)
	if err != nil {
		return nil, err
	}
	return Document(title, body, r.css), nil
}

type tocEntry struct {
	level int
	id    string
	text  string
}

// expandTOC replaces every paragraph consisting only of the TOC marker with
// a list of links to the headings up to r.tocDepth.
func (r *HTMLRenderer) expandTOC(fragment []byte) ([]byte, error) {
	if !bytes.Contains(fragment, []byte(assemble.TOCMarker)) {
		return fragment, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered HTML: %w", err)
	}

	var selectors []string
	for lvl := 1; lvl <= r.tocDepth && lvl <= 6; lvl++ {
		selectors = append(selectors, fmt.Sprintf("h%d", lvl))
	}

	var entries []tocEntry
	doc.Find(strings.Join(selectors, ",")).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if id == "" {
			return
		}
		entries = append(entries, tocEntry{
			level: int(goquery.NodeName(s)[1] - '0'),
			id:    id,
			text:  strings.TrimSpace(s.Text()),
		})
	})

	toc := buildTOC(r.tocTitle, entries)
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) == assemble.TOCMarker {
			s.ReplaceWithHtml(toc)
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("serializing HTML: %w", err)
	}
	return []byte(out), nil
}

// buildTOC renders nested lists for entries. Deeper levels nest inside the
// previous item.
func buildTOC(title string, entries []tocEntry) string {
	var b strings.Builder
	b.WriteString(`<div class="toc">`)
	fmt.Fprintf(&b, `<span class="toctitle">%s</span>`, html.EscapeString(title))

	if len(entries) > 0 {
		base := entries[0].level
		for _, e := range entries {
			if e.level < base {
				base = e.level
			}
		}

		depth := 0
		for i, e := range entries {
			lvl := e.level - base + 1
			switch {
			case lvl > depth:
				for ; depth < lvl; depth++ {
					b.WriteString("<ul>")
					if depth+1 < lvl {
						b.WriteString("<li>")
					}
				}
			case i > 0:
				b.WriteString("</li>")
				for ; depth > lvl; depth-- {
					b.WriteString("</ul></li>")
				}
			}
			fmt.Fprintf(&b, `<li><a href="#%s">%s</a>`, html.EscapeString(e.id), html.EscapeString(e.text))
		}
		b.WriteString("</li>")
		for ; depth > 1; depth-- {
			b.WriteString("</ul></li>")
		}
		b.WriteString("</ul>")
	}

	b.WriteString("</div>")
	return b.String()
}

// Document wraps an HTML fragment in a standalone UTF-8 document. css, when
// not empty, is inlined in a style element.
func Document(title string, body []byte, css string) []byte {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	if css != "" {
		b.WriteString("<style>\n")
		b.WriteString(css)
		b.WriteString("\n</style>\n")
	}
	b.WriteString("</head>\n<body>\n")
	b.Write(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.Bytes()
}
