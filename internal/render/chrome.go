// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/pdiddy/equeo-export/pkg/types"
)

// A4 paper size in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// ChromeRenderer prints PDFs with headless Chrome over the DevTools
// protocol. One browser process serves every Render call until Close.
type ChromeRenderer struct {
	cfg           types.PDFConfig
	css           string
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromeRenderer starts a headless browser. CHROME_PATH or
// cfg.ChromePath selects the binary.
func NewChromeRenderer(ctx context.Context, cfg types.PDFConfig) (*ChromeRenderer, error) {
	css, err := readStyleSheet(cfg.StyleSheet)
	if err != nil {
		return nil, err
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = os.Getenv("CHROME_PATH")
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	opts = append(opts,
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser now so a missing Chrome fails before any fetching.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting headless chrome: %w", err)
	}

	return &ChromeRenderer{
		cfg:           cfg,
		css:           css,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Name returns the backend identifier.
func (c *ChromeRenderer) Name() string { return string(types.BackendChrome) }

// Render loads doc from a temporary file in a new tab and prints it.
func (c *ChromeRenderer) Render(ctx context.Context, title string, doc []byte, w io.Writer) error {
	tmp, err := os.CreateTemp("", "equeo-export-*.htm")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, writeErr := tmp.Write(injectStyle(doc, c.css))
	closeErr := tmp.Close()
	if writeErr != nil {
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	abs, err := filepath.Abs(tmpPath)
	if err != nil {
		return err
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	defer cancel()
	// Stop the tab when the caller's context is cancelled.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var pdf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("file://"+filepath.ToSlash(abs)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := c.printParams(title).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("printing %q with chrome: %w", title, err)
	}

	_, err = w.Write(pdf)
	return err
}

func (c *ChromeRenderer) printParams(title string) *page.PrintToPDFParams {
	scale := c.cfg.Zoom
	if scale <= 0 {
		scale = 1
	}
	// Chrome has no footer spacing option; add it to the bottom margin.
	bottom := c.cfg.MarginBottom + c.cfg.FooterSpacing
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(a4Width).
		WithPaperHeight(a4Height).
		WithMarginTop(mmToInches(c.cfg.MarginTop)).
		WithMarginBottom(mmToInches(bottom)).
		WithMarginLeft(mmToInches(c.cfg.MarginLeft)).
		WithMarginRight(mmToInches(c.cfg.MarginRight)).
		WithScale(scale).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate("<span></span>").
		WithFooterTemplate(footerTemplate(title, c.cfg))
}

// footerTemplate centres the title and right-aligns "page/total".
func footerTemplate(title string, cfg types.PDFConfig) string {
	font := cfg.FooterFontName
	if font == "" {
		font = "sans-serif"
	}
	size := cfg.FooterFontSize
	if size <= 0 {
		size = 10
	}
	return fmt.Sprintf(
		`<div style="width:100%%;display:flex;font-family:'%s';font-size:%gpt;margin:0 %gmm 0 %gmm;">`+
			`<span style="flex:1"></span>`+
			`<span style="flex:2;text-align:center">%s</span>`+
			`<span style="flex:1;text-align:right"><span class="pageNumber"></span>/<span class="totalPages"></span></span>`+
			`</div>`,
		html.EscapeString(font), size, cfg.MarginLeft, cfg.MarginRight, html.EscapeString(title))
}

// Close shuts the browser down.
func (c *ChromeRenderer) Close() error {
	c.browserCancel()
	c.allocCancel()
	return nil
}
