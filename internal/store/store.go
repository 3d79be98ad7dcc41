// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store writes export outputs. A Sink receives each file under a
// path relative to the output root (md/NAME.md, html/NAME.htm, pdf/NAME.pdf);
// LocalSink puts it on disk and GCSSink mirrors it to a Cloud Storage bucket.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sink stores one output file.
type Sink interface {
	Put(ctx context.Context, relPath, contentType string, data []byte) error
}

// LocalSink writes files beneath a root directory.
type LocalSink struct {
	root string
}

// NewLocalSink returns a sink rooted at dir. The directory is created on
// first write.
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{root: dir}
}

// Path returns the absolute location of relPath under the sink root.
func (s *LocalSink) Path(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}

// Put writes data to root/relPath, creating parent directories. Existing
// files are overwritten.
func (s *LocalSink) Put(_ context.Context, relPath, _ string, data []byte) error {
	path := s.Path(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Multi writes to every sink in order and stops at the first error.
type Multi []Sink

// Put implements Sink.
func (m Multi) Put(ctx context.Context, relPath, contentType string, data []byte) error {
	for _, s := range m {
		if err := s.Put(ctx, relPath, contentType, data); err != nil {
			return err
		}
	}
	return nil
}

const maxFilenameBytes = 255

// SanitizeFilename makes name safe to use as a file name on common file
// systems. Path separators, reserved punctuation and control characters are
// removed, surrounding dots and spaces trimmed, and the result capped at 255
// bytes on a rune boundary. An empty result becomes "untitled".
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			continue
		case unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), ". ")

	if len(out) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimRight(out[:cut], ". ")
	}
	if out == "" {
		return "untitled"
	}
	return out
}
