// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/equeo-export/internal/catalog"
	"github.com/pdiddy/equeo-export/internal/render"
	"github.com/pdiddy/equeo-export/pkg/types"
)

// --- fakes ---

type fakeSource struct {
	programs  []types.Program
	longreads map[int64]bool
	pages     map[int64][]string
	bodies    map[string]string
	failOn    string
	calls     []string
}

func (f *fakeSource) fail(step string) error {
	f.calls = append(f.calls, step)
	if f.failOn == step {
		return fmt.Errorf("%s: status 500", step)
	}
	return nil
}

func (f *fakeSource) LearningPrograms(_ context.Context, moduleID string) ([]types.Program, error) {
	if err := f.fail("programs"); err != nil {
		return nil, err
	}
	return f.programs, nil
}

func (f *fakeSource) LongreadIDs(_ context.Context, ids []int64) ([]int64, error) {
	if err := f.fail("ids"); err != nil {
		return nil, err
	}
	var out []int64
	for _, id := range ids {
		if f.longreads[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeSource) LongreadPages(_ context.Context, ids []int64) ([]types.LongreadPage, error) {
	if err := f.fail("pages"); err != nil {
		return nil, err
	}
	var out []types.LongreadPage
	for _, id := range ids {
		for _, uuid := range f.pages[id] {
			out = append(out, types.LongreadPage{LongreadID: id, UUID: uuid, Title: "t-" + uuid})
		}
	}
	return out, nil
}

func (f *fakeSource) PageBody(_ context.Context, p types.LongreadPage) (string, error) {
	if err := f.fail("body"); err != nil {
		return "", err
	}
	return f.bodies[p.UUID], nil
}

type memSink struct {
	files map[string]string
	types map[string]string
}

func newMemSink() *memSink {
	return &memSink{files: map[string]string{}, types: map[string]string{}}
}

func (m *memSink) Put(_ context.Context, relPath, contentType string, data []byte) error {
	m.files[relPath] = string(data)
	m.types[relPath] = contentType
	return nil
}

type fakePDF struct {
	err    error
	titles []string
}

func (f *fakePDF) Name() string { return "fake" }

func (f *fakePDF) Render(_ context.Context, title string, doc []byte, w io.Writer) error {
	f.titles = append(f.titles, title)
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "%PDF-"+title)
	return err
}

func (f *fakePDF) Close() error { return nil }

type fakeRecorder struct {
	began     string
	finished  bool
	finishErr error
	programs  []catalog.Program
	pages     []catalog.Page
}

func (r *fakeRecorder) BeginRun(_ context.Context, moduleID string) (string, error) {
	r.began = moduleID
	return "run-1", nil
}

func (r *fakeRecorder) RecordProgram(_ context.Context, runID string, p catalog.Program) error {
	r.programs = append(r.programs, p)
	return nil
}

func (r *fakeRecorder) RecordPage(_ context.Context, runID string, p catalog.Page) error {
	r.pages = append(r.pages, p)
	return nil
}

func (r *fakeRecorder) FinishRun(_ context.Context, runID string, runErr error) error {
	r.finished = true
	r.finishErr = runErr
	return nil
}

// --- fixtures ---

func fixtureSource() *fakeSource {
	return &fakeSource{
		programs: []types.Program{
			{ID: 1, Name: "Продажи: основы", Sections: []types.Section{
				{ID: 10, Order: 2, Materials: []types.Material{{ID: 103, Name: "Итоги", Order: 1}}},
				{ID: 11, Order: 1, Materials: []types.Material{
					{ID: 102, Name: "Видео", Order: 2},
					{ID: 101, Name: "Введение", Order: 1},
				}},
			}},
			{ID: 2, Name: "Empty", Sections: []types.Section{{ID: 20}}},
		},
		longreads: map[int64]bool{101: true, 103: true},
		pages:     map[int64][]string{101: {"a", "b"}, 103: {"c"}},
		bodies:    map[string]string{"a": "# Цели\nтекст", "b": "вторая страница", "c": "конец"},
	}
}

func newDeps(t *testing.T, src Source, sink *memSink) Deps {
	t.Helper()
	html, err := render.NewHTMLRenderer(types.RenderConfig{})
	require.NoError(t, err)
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Deps{
		API:  src,
		HTML: html,
		PDF:  &fakePDF{},
		Sink: sink,
		Now: func() time.Time {
			tick = tick.Add(1500 * time.Millisecond)
			return tick
		},
	}
}

func allFormats() Config {
	return Config{ModuleID: "77", ExportConfig: types.ExportConfig{
		Formats: []types.OutputFormat{types.FormatMarkdown, types.FormatHTML, types.FormatPDF},
	}}
}

// --- tests ---

func TestRun_WritesAllFormats(t *testing.T) {
	src := fixtureSource()
	sink := newMemSink()
	var log bytes.Buffer

	result, err := Run(context.Background(), newDeps(t, src, sink), allFormats(), &log)
	require.NoError(t, err)

	wantMD := "[TOC] \n\n" +
		"# Введение\n\n\n## Цели\nтекст\n\nвторая страница\n" +
		"# Итоги\n\n\nконец\n"
	assert.Equal(t, wantMD, sink.files["md/Продажи основы.md"])
	assert.Equal(t, "text/markdown; charset=utf-8", sink.types["md/Продажи основы.md"])

	htm := sink.files["html/Продажи основы.htm"]
	assert.Contains(t, htm, "<title>Продажи: основы</title>")
	assert.Contains(t, htm, `<div class="toc">`)
	assert.NotContains(t, htm, "[TOC]")

	assert.Equal(t, "%PDF-Продажи: основы", sink.files["pdf/Продажи основы.pdf"])
	assert.Equal(t, "application/pdf", sink.types["pdf/Продажи основы.pdf"])

	// A program without longreads still gets its (TOC-only) documents.
	assert.Equal(t, "[TOC] \n\n", sink.files["md/Empty.md"])

	require.Len(t, result.Programs, 2)
	p := result.Programs[0]
	assert.Equal(t, 3, p.Materials)
	assert.Equal(t, 2, p.Longreads)
	assert.Empty(t, p.Missing)
	assert.Equal(t, []string{"md/Продажи основы.md", "html/Продажи основы.htm", "pdf/Продажи основы.pdf"}, p.Files)
	assert.Equal(t, 1500*time.Millisecond, result.Elapsed)

	wantLog := "[INFO] Prepared all the learning programs\n" +
		"[INFO] Processing program \"Продажи: основы\"\n" +
		"[INFO] Done\n" +
		"[INFO] Processing program \"Empty\"\n" +
		"[INFO] Done\n" +
		"[INFO] --- 1.5 seconds ---\n"
	assert.Equal(t, wantLog, log.String())
}

func TestRun_MarkdownOnly(t *testing.T) {
	sink := newMemSink()
	deps := newDeps(t, fixtureSource(), sink)
	deps.HTML, deps.PDF = nil, nil

	_, err := Run(context.Background(), deps, Config{ModuleID: "77"}, io.Discard)
	require.NoError(t, err)
	for path := range sink.files {
		assert.True(t, strings.HasPrefix(path, "md/"), path)
	}
	assert.Len(t, sink.files, 2)
}

func TestRun_PDFImpliesHTML(t *testing.T) {
	sink := newMemSink()
	cfg := Config{ModuleID: "77", ExportConfig: types.ExportConfig{Formats: []types.OutputFormat{types.FormatPDF}}}

	_, err := Run(context.Background(), newDeps(t, fixtureSource(), sink), cfg, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, sink.files, "html/Empty.htm")
	assert.Contains(t, sink.files, "pdf/Empty.pdf")
}

func TestRun_ProgramFilter(t *testing.T) {
	sink := newMemSink()
	cfg := allFormats()
	cfg.ProgramIDs = []int64{2}

	result, err := Run(context.Background(), newDeps(t, fixtureSource(), sink), cfg, io.Discard)
	require.NoError(t, err)
	require.Len(t, result.Programs, 1)
	assert.Equal(t, int64(2), result.Programs[0].ID)
	assert.NotContains(t, sink.files, "md/Продажи основы.md")
}

func TestRun_MissingContentWarns(t *testing.T) {
	src := fixtureSource()
	delete(src.pages, 103)
	var log bytes.Buffer

	result, err := Run(context.Background(), newDeps(t, src, newMemSink()), allFormats(), &log)
	require.NoError(t, err)
	assert.Equal(t, []int64{103}, result.Programs[0].Missing)
	assert.Contains(t, log.String(), "[WARN] 1 longreads without content skipped: [103]")
}

func TestRun_AbortsOnFirstError(t *testing.T) {
	tests := []struct {
		step    string
		wantErr string
	}{
		{"programs", "programs: status 500"},
		{"ids", `program "Продажи: основы": ids: status 500`},
		{"pages", `program "Продажи: основы": pages: status 500`},
		{"body", `program "Продажи: основы": body: status 500`},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			src := fixtureSource()
			src.failOn = tt.step
			sink := newMemSink()

			_, err := Run(context.Background(), newDeps(t, src, sink), allFormats(), io.Discard)
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
			assert.Empty(t, sink.files)
			assert.Equal(t, tt.step, src.calls[len(src.calls)-1])
		})
	}
}

func TestRun_PDFFailureAborts(t *testing.T) {
	sink := newMemSink()
	deps := newDeps(t, fixtureSource(), sink)
	deps.PDF = &fakePDF{err: errors.New("chrome crashed")}

	_, err := Run(context.Background(), deps, allFormats(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome crashed")
	// Markdown and HTML of the failing program were already written.
	assert.Contains(t, sink.files, "md/Продажи основы.md")
	assert.NotContains(t, sink.files, "md/Empty.md")
}

func TestRun_RequiresPDFRendererForPDF(t *testing.T) {
	deps := newDeps(t, fixtureSource(), newMemSink())
	deps.PDF = nil
	_, err := Run(context.Background(), deps, allFormats(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PDF renderer")
}

func TestRun_RecordsCatalog(t *testing.T) {
	rec := &fakeRecorder{}
	deps := newDeps(t, fixtureSource(), newMemSink())
	deps.Catalog = rec

	result, err := Run(context.Background(), deps, allFormats(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "77", rec.began)
	assert.True(t, rec.finished)
	assert.NoError(t, rec.finishErr)

	require.Len(t, rec.programs, 2)
	assert.Equal(t, "Продажи: основы", rec.programs[0].Name)
	assert.Equal(t, 2, rec.programs[0].Longreads)
	assert.Len(t, rec.programs[0].Files, 3)

	require.Len(t, rec.pages, 3)
	assert.Equal(t, catalog.Page{ProgramID: 1, LongreadID: 101, UUID: "a", Title: "t-a", BodyBytes: len("# Цели\nтекст")}, rec.pages[0])
}

func TestRun_RecordsFailure(t *testing.T) {
	rec := &fakeRecorder{}
	src := fixtureSource()
	src.failOn = "pages"
	deps := newDeps(t, src, newMemSink())
	deps.Catalog = rec

	_, err := Run(context.Background(), deps, allFormats(), io.Discard)
	require.Error(t, err)
	assert.True(t, rec.finished)
	assert.Equal(t, err, rec.finishErr)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, newDeps(t, fixtureSource(), newMemSink()), allFormats(), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectPrograms(t *testing.T) {
	ps := []types.Program{{ID: 3}, {ID: 1}, {ID: 2}}
	assert.Equal(t, ps, selectPrograms(ps, nil))
	assert.Equal(t, []types.Program{{ID: 3}, {ID: 2}}, selectPrograms(ps, []int64{2, 3}))
	assert.Empty(t, selectPrograms(ps, []int64{9}))
}
