// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pdiddy/equeo-export/internal/container"
	"github.com/pdiddy/equeo-export/pkg/types"
)

// WkhtmltopdfRenderer prints PDFs with wkhtmltopdf, run on the host or in a
// container. The document goes in on stdin and the PDF comes out on stdout.
type WkhtmltopdfRenderer struct {
	tool container.Tool
	cfg  types.PDFConfig
	// local tools can read the style sheet path; containers get it inlined.
	local bool
	css   string
}

// NewWkhtmltopdfRenderer wraps tool.
func NewWkhtmltopdfRenderer(tool container.Tool, cfg types.PDFConfig, local bool) (*WkhtmltopdfRenderer, error) {
	r := &WkhtmltopdfRenderer{tool: tool, cfg: cfg, local: local}
	if !local {
		css, err := readStyleSheet(cfg.StyleSheet)
		if err != nil {
			return nil, err
		}
		r.css = css
	}
	return r, nil
}

// Name returns the backend identifier.
func (r *WkhtmltopdfRenderer) Name() string {
	return string(types.BackendWkhtmltopdf) + " (" + r.tool.Name() + ")"
}

// Render pipes doc through wkhtmltopdf.
func (r *WkhtmltopdfRenderer) Render(ctx context.Context, title string, doc []byte, w io.Writer) error {
	styleSheet := ""
	if r.local {
		styleSheet = r.cfg.StyleSheet
	} else {
		doc = injectStyle(doc, r.css)
	}

	var out bytes.Buffer
	if err := r.tool.Run(ctx, WkhtmltopdfArgs(r.cfg, title, styleSheet), bytes.NewReader(doc), &out); err != nil {
		return fmt.Errorf("printing %q with wkhtmltopdf: %w", title, err)
	}
	if out.Len() == 0 {
		return fmt.Errorf("wkhtmltopdf produced empty output for %q", title)
	}
	_, err := out.WriteTo(w)
	return err
}

// Close is a no-op; each Render starts its own process.
func (r *WkhtmltopdfRenderer) Close() error { return nil }

// WkhtmltopdfArgs builds the command line for one document read from stdin
// and written to stdout.
func WkhtmltopdfArgs(cfg types.PDFConfig, title, styleSheet string) []string {
	args := []string{
		"--quiet",
		"--encoding", "UTF-8",
		"--footer-right", "[page]/[topage]",
		"--footer-center", title,
	}
	if cfg.FooterFontSize > 0 {
		args = append(args, "--footer-font-size", formatFloat(cfg.FooterFontSize))
	}
	if cfg.FooterSpacing > 0 {
		args = append(args, "--footer-spacing", formatFloat(cfg.FooterSpacing))
	}
	if cfg.FooterFontName != "" {
		args = append(args, "--footer-font-name", cfg.FooterFontName)
	}
	args = append(args,
		"--margin-top", formatFloat(cfg.MarginTop)+"mm",
		"--margin-bottom", formatFloat(cfg.MarginBottom)+"mm",
		"--margin-right", formatFloat(cfg.MarginRight)+"mm",
		"--margin-left", formatFloat(cfg.MarginLeft)+"mm",
	)
	if styleSheet != "" {
		args = append(args, "--user-style-sheet", styleSheet)
	}
	if cfg.Zoom > 0 {
		// A fixed zoom only holds if smart shrinking is off.
		args = append(args, "--disable-smart-shrinking", "--zoom", formatFloat(cfg.Zoom))
	}
	return append(args, "-", "-")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
