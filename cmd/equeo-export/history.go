// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/equeo-export/internal/catalog"
	"github.com/pdiddy/equeo-export/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded export runs",
	Long: `History lists the export runs recorded in output/index/catalog.db, newest
first. Use --run to list the programs written by one run, or --export to
write the whole catalogue to output/index/history.yaml or history.json.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("run", "", "show the programs of this run id")
	historyCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	historyCmd.Flags().String("export", "", "export format: yaml or json")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cat, err := catalog.Open(types.CatalogConfig{Path: viper.GetString("catalog.path")}, viper.GetString("output_dir"))
	if err != nil {
		return err
	}
	defer cat.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")

	switch format, _ := cmd.Flags().GetString("export"); format {
	case "":
	case "yaml":
		path, err := cat.ExportYAML(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Exported catalogue to %s\n", path)
		return nil
	case "json":
		path, err := cat.ExportJSON(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Exported catalogue to %s\n", path)
		return nil
	default:
		return fmt.Errorf("unsupported export format %q: use yaml or json", format)
	}

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		programs, err := cat.Programs(ctx, runID)
		if err != nil {
			return err
		}
		return formatRunPrograms(os.Stdout, programs, jsonOutput)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := cat.Runs(ctx, limit)
	if err != nil {
		return err
	}
	return formatRuns(os.Stdout, runs, jsonOutput)
}

func formatRuns(w io.Writer, runs []catalog.Run, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-19s  %-9s  %-8s  %-8s  %s\n",
		"Run", "Started", "Status", "Module", "Programs", "Duration")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%-36s  %-19s  %-9s  %-8s  %-8d  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.ModuleID, r.Programs, duration)
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
	}
	return nil
}

func formatRunPrograms(w io.Writer, programs []catalog.Program, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(programs)
	}

	if len(programs) == 0 {
		fmt.Fprintln(w, "No programs recorded for this run.")
		return nil
	}

	fmt.Fprintf(w, "%-10s  %-9s  %-9s  %-7s  %s\n", "ID", "Materials", "Longreads", "Missing", "Name")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, p := range programs {
		fmt.Fprintf(w, "%-10d  %-9d  %-9d  %-7d  %s\n", p.ProgramID, p.Materials, p.Longreads, p.Missing, p.Name)
		for _, f := range p.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	return nil
}
