// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/equeo-export/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [markdown files...]",
	Short: "Re-render exported Markdown to HTML and PDF",
	Long: `Render converts Markdown files from an earlier export into HTML and PDF
without contacting the platform. With no arguments it renders every file in
output/md/. Files whose outputs already exist are skipped unless --force.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().Bool("force", false, "overwrite existing outputs")
	renderCmd.Flags().Bool("skip-pdf", false, "write HTML only")
	renderCmd.Flags().String("pdf-backend", "", "PDF backend: chrome or wkhtmltopdf")
	renderCmd.Flags().String("wkhtmltopdf-image", "", "run wkhtmltopdf in this docker/podman image")
	renderCmd.Flags().String("pdf-css", "", "style sheet applied to PDFs (default ./pdf.css when present)")
	renderCmd.Flags().String("toc-title", "", "table of contents title (default Оглавление)")
	renderCmd.Flags().Int("toc-depth", 0, "deepest heading level in the table of contents (default 1)")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	bindFlags(cmd, map[string]string{
		"pdf-backend":       "pdf.backend",
		"wkhtmltopdf-image": "pdf.container_image",
		"pdf-css":           "pdf.style_sheet",
		"toc-title":         "render.toc_title",
		"toc-depth":         "render.toc_depth",
	})

	outputDir := viper.GetString("output_dir")
	paths := args
	if len(paths) == 0 {
		var err error
		paths, err = filepath.Glob(filepath.Join(outputDir, "md", "*.md"))
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no Markdown files in %s", filepath.Join(outputDir, "md"))
		}
	}

	html, err := render.NewHTMLRenderer(renderConfig())
	if err != nil {
		return err
	}
	fr := &render.FileRenderer{HTML: html, OutputDir: outputDir}
	fr.Force, _ = cmd.Flags().GetBool("force")

	if skip, _ := cmd.Flags().GetBool("skip-pdf"); !skip {
		pdf, err := render.NewPDFRenderer(ctx, pdfConfig())
		if err != nil {
			return err
		}
		defer pdf.Close()
		fr.PDF = pdf
	}

	result := fr.RenderBatch(ctx, paths, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed rendering", result.Failed)
	}
	return ctx.Err()
}
