// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export runs the full pipeline for one module: fetch the learning
// programs, pull every longread page of each program, assemble a Markdown
// document and write it out as Markdown, HTML and PDF.
//
// The run is sequential and aborts on the first error.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"time"

	"github.com/pdiddy/equeo-export/internal/assemble"
	"github.com/pdiddy/equeo-export/internal/catalog"
	"github.com/pdiddy/equeo-export/internal/render"
	"github.com/pdiddy/equeo-export/internal/store"
	"github.com/pdiddy/equeo-export/pkg/types"
)

// Source is the subset of the platform API the pipeline needs.
// *api.Client implements it.
type Source interface {
	LearningPrograms(ctx context.Context, moduleID string) ([]types.Program, error)
	LongreadIDs(ctx context.Context, materialIDs []int64) ([]int64, error)
	LongreadPages(ctx context.Context, longreadIDs []int64) ([]types.LongreadPage, error)
	PageBody(ctx context.Context, page types.LongreadPage) (string, error)
}

// Recorder stores a ledger of the run. *catalog.Catalog implements it.
type Recorder interface {
	BeginRun(ctx context.Context, moduleID string) (string, error)
	RecordProgram(ctx context.Context, runID string, p catalog.Program) error
	RecordPage(ctx context.Context, runID string, p catalog.Page) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

// Deps are the collaborators of a run. PDF and Catalog may be nil.
type Deps struct {
	API     Source
	HTML    *render.HTMLRenderer
	PDF     render.PDFRenderer
	Sink    store.Sink
	Catalog Recorder

	// Now defaults to time.Now.
	Now func() time.Time
}

// Config selects what a run exports.
type Config struct {
	ModuleID string
	types.ExportConfig
}

// ProgramResult describes one exported program.
type ProgramResult struct {
	ID        int64
	Name      string
	Files     []string
	Materials int
	Longreads int
	Missing   []int64
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    string
	Programs []ProgramResult
	Elapsed  time.Duration
}

// Run exports every learning program of cfg.ModuleID, or only those listed
// in cfg.ProgramIDs. Progress goes to w.
func Run(ctx context.Context, deps Deps, cfg Config, w io.Writer) (Result, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if deps.API == nil || deps.Sink == nil {
		return Result{}, errors.New("export: API and Sink are required")
	}
	if (cfg.Wants(types.FormatHTML) || cfg.Wants(types.FormatPDF)) && deps.HTML == nil {
		return Result{}, errors.New("export: HTML renderer required for html and pdf output")
	}
	if cfg.Wants(types.FormatPDF) && deps.PDF == nil {
		return Result{}, errors.New("export: pdf output requested but no PDF renderer configured")
	}

	start := now()
	var result Result

	if deps.Catalog != nil {
		id, err := deps.Catalog.BeginRun(ctx, cfg.ModuleID)
		if err != nil {
			return Result{}, err
		}
		result.RunID = id
	}

	err := run(ctx, deps, cfg, w, &result)

	if deps.Catalog != nil {
		if ferr := deps.Catalog.FinishRun(context.WithoutCancel(ctx), result.RunID, err); ferr != nil {
			fmt.Fprintf(w, "[WARN] %v\n", ferr)
		}
	}
	if err != nil {
		return result, err
	}

	result.Elapsed = now().Sub(start)
	fmt.Fprintf(w, "[INFO] --- %v seconds ---\n", result.Elapsed.Seconds())
	return result, nil
}

func run(ctx context.Context, deps Deps, cfg Config, w io.Writer, result *Result) error {
	programs, err := deps.API.LearningPrograms(ctx, cfg.ModuleID)
	if err != nil {
		return err
	}
	programs = selectPrograms(programs, cfg.ProgramIDs)
	fmt.Fprintf(w, "[INFO] Prepared all the learning programs\n")

	for _, p := range programs {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(w, "[INFO] Processing program %q\n", p.Name)

		pr, err := exportProgram(ctx, deps, cfg, p, result.RunID)
		if err != nil {
			return fmt.Errorf("program %q: %w", p.Name, err)
		}
		if len(pr.Missing) > 0 {
			fmt.Fprintf(w, "[WARN] %d longreads without content skipped: %v\n", len(pr.Missing), pr.Missing)
		}
		result.Programs = append(result.Programs, pr)

		if deps.Catalog != nil {
			if err := deps.Catalog.RecordProgram(ctx, result.RunID, catalog.Program{
				ProgramID: pr.ID,
				Name:      pr.Name,
				Files:     pr.Files,
				Materials: pr.Materials,
				Longreads: pr.Longreads,
				Missing:   len(pr.Missing),
			}); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "[INFO] Done\n")
	}
	return nil
}

// selectPrograms keeps the programs whose id is in ids, in API order.
// An empty ids keeps all.
func selectPrograms(programs []types.Program, ids []int64) []types.Program {
	if len(ids) == 0 {
		return programs
	}
	var out []types.Program
	for _, p := range programs {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out
}

func exportProgram(ctx context.Context, deps Deps, cfg Config, p types.Program, runID string) (ProgramResult, error) {
	pr := ProgramResult{ID: p.ID, Name: p.Name, Materials: p.MaterialCount()}

	longreadIDs, err := deps.API.LongreadIDs(ctx, assemble.MaterialIDs(p))
	if err != nil {
		return pr, err
	}
	pr.Longreads = len(longreadIDs)

	pages, err := deps.API.LongreadPages(ctx, longreadIDs)
	if err != nil {
		return pr, err
	}

	contents := make([]types.LongreadContent, 0, len(pages))
	for _, page := range pages {
		body, err := deps.API.PageBody(ctx, page)
		if err != nil {
			return pr, err
		}
		contents = append(contents, types.LongreadContent{LongreadID: page.LongreadID, UUID: page.UUID, Body: body})

		if deps.Catalog != nil {
			if err := deps.Catalog.RecordPage(ctx, runID, catalog.Page{
				ProgramID:  p.ID,
				LongreadID: page.LongreadID,
				UUID:       page.UUID,
				Title:      page.Title,
				BodyBytes:  len(body),
			}); err != nil {
				return pr, err
			}
		}
	}

	md, missing := assemble.Document(assemble.FilterLongreads(p, longreadIDs), assemble.GroupContents(contents))
	md = assemble.WithTOC(md)
	pr.Missing = missing

	name := store.SanitizeFilename(p.Name)
	put := func(f types.OutputFormat, data []byte) error {
		rel := path.Join(string(f), name+f.Extension())
		if err := deps.Sink.Put(ctx, rel, f.ContentType(), data); err != nil {
			return err
		}
		pr.Files = append(pr.Files, rel)
		return nil
	}

	if err := put(types.FormatMarkdown, []byte(md)); err != nil {
		return pr, err
	}
	if !cfg.Wants(types.FormatHTML) && !cfg.Wants(types.FormatPDF) {
		return pr, nil
	}

	doc, err := deps.HTML.Render(p.Name, []byte(md))
	if err != nil {
		return pr, err
	}
	if err := put(types.FormatHTML, doc); err != nil {
		return pr, err
	}
	if !cfg.Wants(types.FormatPDF) {
		return pr, nil
	}

	var pdf bytes.Buffer
	if err := deps.PDF.Render(ctx, p.Name, doc, &pdf); err != nil {
		return pr, err
	}
	if err := put(types.FormatPDF, pdf.Bytes()); err != nil {
		return pr, err
	}
	return pr, nil
}
