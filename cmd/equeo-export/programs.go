// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/equeo-export/pkg/types"
)

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "List the learning programs of the module",
	Long: `Programs fetches the learning programs of the module and prints their
ids, names and material counts. Use the ids with export --program.`,
	RunE: runPrograms,
}

func init() {
	programsCmd.Flags().String("module", "", "module id (overrides config.ini)")
	programsCmd.Flags().Bool("json", false, "output the full program tree as JSON")

	rootCmd.AddCommand(programsCmd)
}

func runPrograms(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{"module": "module_id"})

	client, cfg, err := newAPIClient()
	if err != nil {
		return err
	}
	if cfg.ModuleID == "" {
		return fmt.Errorf("no module id: pass --module or set module_id in config.ini")
	}

	programs, err := client.LearningPrograms(cmd.Context(), cfg.ModuleID)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatPrograms(os.Stdout, programs, jsonOutput)
}

func formatPrograms(w io.Writer, programs []types.Program, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(programs)
	}

	if len(programs) == 0 {
		fmt.Fprintln(w, "No learning programs found.")
		return nil
	}

	fmt.Fprintf(w, "%-10s  %-8s  %-9s  %s\n", "ID", "Sections", "Materials", "Name")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, p := range programs {
		fmt.Fprintf(w, "%-10d  %-8d  %-9d  %s\n", p.ID, len(p.Sections), p.MaterialCount(), p.Name)
	}
	fmt.Fprintf(w, "\n%d program(s)\n", len(programs))
	return nil
}
