// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the equeo-export CLI. It exports the
// longread materials of an e-queo module as Markdown, HTML and PDF, one
// document per learning program.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/equeo-export/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds values loaded from the secrets directory at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the equeo-export CLI.
var rootCmd = &cobra.Command{
	Use:   "equeo-export",
	Short: "Export e-queo learning programs to Markdown, HTML and PDF",
	Long: `equeo-export downloads the longread materials of an e-queo module and
rebuilds each learning program as a single document with a table of contents.

Credentials come from config.ini ([e-queo] auth_token, module_id), from
EQUEO_EXPORT_AUTH_TOKEN / EQUEO_EXPORT_MODULE_ID, or from .secrets/auth-token
and .secrets/module-id. The auth token expires an hour after it is issued.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: equeo-export.yaml in . or ~/.config/equeo-export/)")
	rootCmd.PersistentFlags().String("config-ini", "config.ini", "INI file with the [e-queo] section")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of secret files (auth-token, module-id)")
	rootCmd.PersistentFlags().String("output-dir", "output", "base directory for md/, html/, pdf/ and index/")

	bindFlag(rootCmd.PersistentFlags().Lookup("config-ini"), "config_ini")
	bindFlag(rootCmd.PersistentFlags().Lookup("secrets-dir"), "secrets_dir")
	bindFlag(rootCmd.PersistentFlags().Lookup("output-dir"), "output_dir")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("equeo-export")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "equeo-export"))
		}
	}

	viper.SetEnvPrefix("EQUEO_EXPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
