// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/equeo-export/internal/export"
	"github.com/pdiddy/equeo-export/internal/render"
	"github.com/pdiddy/equeo-export/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every learning program of the module",
	Long: `Export fetches the learning programs of the module, downloads the pages
of every longread material and writes one document per program:

  output/md/NAME.md    assembled Markdown with a [TOC] marker
  output/html/NAME.htm HTML with the table of contents expanded
  output/pdf/NAME.pdf  printed with headless Chrome or wkhtmltopdf

The run stops at the first failed request. Each run is recorded in
output/index/catalog.db unless --no-catalog is set.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("module", "", "module id (overrides config.ini)")
	exportCmd.Flags().IntSlice("program", nil, "export only these learning program ids (repeatable)")
	exportCmd.Flags().StringSlice("formats", []string{"md", "html", "pdf"}, "outputs to write: md, html, pdf (md is always written)")
	exportCmd.Flags().Bool("skip-pdf", false, "do not print PDFs")
	exportCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	exportCmd.Flags().Int("max-retries", 0, "retries with back-off on HTTP 429 (0 = fail immediately)")
	exportCmd.Flags().String("user-agent", "", "fixed User-Agent (default: a random browser)")
	exportCmd.Flags().String("pdf-backend", "", "PDF backend: chrome or wkhtmltopdf")
	exportCmd.Flags().String("wkhtmltopdf-image", "", "run wkhtmltopdf in this docker/podman image")
	exportCmd.Flags().String("pdf-css", "", "style sheet applied to PDFs (default ./pdf.css when present)")
	exportCmd.Flags().String("toc-title", "", "table of contents title (default Оглавление)")
	exportCmd.Flags().Int("toc-depth", 0, "deepest heading level in the table of contents (default 1)")
	exportCmd.Flags().String("gcs-bucket", "", "also upload outputs to this Cloud Storage bucket")
	exportCmd.Flags().String("gcs-prefix", "", "object prefix inside the bucket")
	exportCmd.Flags().String("gcs-credentials", "", "service account JSON for Cloud Storage")
	exportCmd.Flags().Bool("no-catalog", false, "do not record the run in the catalogue")

	rootCmd.AddCommand(exportCmd)
}

// exportFlagKeys maps export flags to their config keys.
var exportFlagKeys = map[string]string{
	"module":            "module_id",
	"program":           "programs",
	"formats":           "formats",
	"skip-pdf":          "skip_pdf",
	"max-retries":       "http.max_retries",
	"user-agent":        "http.user_agent",
	"pdf-backend":       "pdf.backend",
	"wkhtmltopdf-image": "pdf.container_image",
	"pdf-css":           "pdf.style_sheet",
	"toc-title":         "render.toc_title",
	"toc-depth":         "render.toc_depth",
	"gcs-bucket":        "gcs.bucket",
	"gcs-prefix":        "gcs.prefix",
	"gcs-credentials":   "gcs.credentials_file",
	"no-catalog":        "catalog.disabled",
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bindFlags(cmd, exportFlagKeys)

	// A zero --timeout keeps the configured default.
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		viper.Set("http.timeout", timeout)
	}

	client, apiCfg, err := newAPIClient()
	if err != nil {
		return err
	}
	if apiCfg.ModuleID == "" {
		return fmt.Errorf("no module id: pass --module or set module_id in config.ini")
	}

	cfg := export.Config{ModuleID: apiCfg.ModuleID, ExportConfig: exportConfig()}
	if viper.GetBool("skip_pdf") {
		cfg.Formats = slices.DeleteFunc(cfg.Formats, func(f types.OutputFormat) bool {
			return f == types.FormatPDF
		})
	}
	for _, f := range cfg.Formats {
		switch f {
		case types.FormatMarkdown, types.FormatHTML, types.FormatPDF:
		default:
			return fmt.Errorf("unknown format %q: use md, html or pdf", f)
		}
	}

	deps := export.Deps{API: client}

	if cfg.Wants(types.FormatHTML) || cfg.Wants(types.FormatPDF) {
		deps.HTML, err = render.NewHTMLRenderer(renderConfig())
		if err != nil {
			return err
		}
	}
	if cfg.Wants(types.FormatPDF) {
		pdf, err := render.NewPDFRenderer(ctx, pdfConfig())
		if err != nil {
			return err
		}
		defer pdf.Close()
		fmt.Fprintf(os.Stderr, "PDF backend: %s\n", pdf.Name())
		deps.PDF = pdf
	}

	sink, closeSink, err := outputSink(ctx, cfg.OutputDir)
	if err != nil {
		return err
	}
	defer closeSink()
	deps.Sink = sink

	cat, err := openCatalog(cfg.OutputDir)
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
		deps.Catalog = cat
	}

	_, err = export.Run(ctx, deps, cfg, os.Stdout)
	return err
}
