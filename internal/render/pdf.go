// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/equeo-export/internal/container"
	"github.com/pdiddy/equeo-export/pkg/types"
)

// PDFRenderer prints a standalone HTML document to PDF. Backends (headless
// Chrome, wkhtmltopdf) implement this interface.
type PDFRenderer interface {
	// Name identifies the backend in log lines.
	Name() string

	// Render prints doc to w. title is shown in the page footer.
	Render(ctx context.Context, title string, doc []byte, w io.Writer) error

	// Close releases browser processes or other resources.
	Close() error
}

// NewPDFRenderer builds the backend selected by cfg.Backend.
func NewPDFRenderer(ctx context.Context, cfg types.PDFConfig) (PDFRenderer, error) {
	switch cfg.Backend {
	case types.BackendChrome, "":
		return NewChromeRenderer(ctx, cfg)
	case types.BackendWkhtmltopdf:
		if cfg.ContainerImage != "" {
			rt, err := container.DetectRuntime()
			if err != nil {
				return nil, err
			}
			tool, err := container.ImageTool(rt, cfg.ContainerImage)
			if err != nil {
				return nil, err
			}
			return NewWkhtmltopdfRenderer(tool, cfg, false)
		}
		bin := cfg.WkhtmltopdfPath
		if bin == "" {
			bin = "wkhtmltopdf"
		}
		tool, err := container.HostTool(bin)
		if err != nil {
			return nil, err
		}
		return NewWkhtmltopdfRenderer(tool, cfg, true)
	default:
		return nil, fmt.Errorf("unsupported PDF backend %q: use chrome or wkhtmltopdf", cfg.Backend)
	}
}

// injectStyle inserts css as a style element right before </head>, or at
// the start of doc when it has no head.
func injectStyle(doc []byte, css string) []byte {
	if css == "" {
		return doc
	}
	style := []byte("<style>\n" + css + "\n</style>\n")
	if i := bytes.Index(doc, []byte("</head>")); i >= 0 {
		out := make([]byte, 0, len(doc)+len(style))
		out = append(out, doc[:i]...)
		out = append(out, style...)
		return append(out, doc[i:]...)
	}
	return append(style, doc...)
}

// readStyleSheet returns the contents of path, or "" when path is empty.
func readStyleSheet(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading PDF style sheet: %w", err)
	}
	return string(data), nil
}

const mmPerInch = 25.4

func mmToInches(mm float64) float64 {
	return mm / mmPerInch
}
