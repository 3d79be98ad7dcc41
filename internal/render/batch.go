// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	htmlDir = "html"
	pdfDir  = "pdf"
)

// Status is the outcome of rendering one Markdown file.
type Status string

const (
	StatusRendered Status = "rendered"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// BatchResult holds the outcome of a batch render run.
type BatchResult struct {
	Rendered int
	Skipped  int
	Failed   int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Rendered + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// FileRenderer re-renders Markdown files produced by an earlier export into
// outputDir/html and outputDir/pdf. PDF is nil for HTML-only runs.
type FileRenderer struct {
	HTML      *HTMLRenderer
	PDF       PDFRenderer
	OutputDir string
	// Force overwrites existing outputs.
	Force bool
}

// RenderFile renders a single Markdown file. The document title is the file
// name without extension, which is the sanitized program name.
func (f *FileRenderer) RenderFile(ctx context.Context, mdPath string, w io.Writer) Status {
	name := strings.TrimSuffix(filepath.Base(mdPath), filepath.Ext(mdPath))
	htmlPath := filepath.Join(f.OutputDir, htmlDir, name+".htm")
	pdfPath := filepath.Join(f.OutputDir, pdfDir, name+".pdf")

	if !f.Force && exists(htmlPath) && (f.PDF == nil || exists(pdfPath)) {
		fmt.Fprintf(w, "skipped:  %s (already rendered)\n", name)
		return StatusSkipped
	}

	if err := f.render(ctx, name, mdPath, htmlPath, pdfPath); err != nil {
		fmt.Fprintf(w, "failed:   %s (%v)\n", name, err)
		return StatusFailed
	}
	fmt.Fprintf(w, "rendered: %s\n", name)
	return StatusRendered
}

func (f *FileRenderer) render(ctx context.Context, name, mdPath, htmlPath, pdfPath string) error {
	md, err := os.ReadFile(mdPath)
	if err != nil {
		return err
	}
	doc, err := f.HTML.Render(name, md)
	if err != nil {
		return err
	}
	if err := writeFile(htmlPath, doc); err != nil {
		return err
	}
	if f.PDF == nil {
		return nil
	}
	var pdf bytes.Buffer
	if err := f.PDF.Render(ctx, name, doc, &pdf); err != nil {
		return err
	}
	return writeFile(pdfPath, pdf.Bytes())
}

// RenderBatch renders every path, printing per-file status to w and
// returning a summary. It stops early only when ctx is cancelled.
func (f *FileRenderer) RenderBatch(ctx context.Context, mdPaths []string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range mdPaths {
		if ctx.Err() != nil {
			break
		}
		switch f.RenderFile(ctx, p, w) {
		case StatusRendered:
			result.Rendered++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d rendered, %d skipped, %d failed (total: %d)\n",
		result.Rendered, result.Skipped, result.Failed, result.Total())
	return result
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
