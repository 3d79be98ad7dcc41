// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/equeo-export/internal/api"
	"github.com/pdiddy/equeo-export/internal/catalog"
	"github.com/pdiddy/equeo-export/internal/secrets"
	"github.com/pdiddy/equeo-export/internal/store"
	"github.com/pdiddy/equeo-export/pkg/types"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultStyleSheet = "pdf.css"
)

// bindFlag makes a flag the highest-priority source for key.
func bindFlag(f *pflag.Flag, key string) {
	if err := viper.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", f.Name, err))
	}
}

// bindFlags binds the flags of the running command. Several commands share
// keys, so binding happens at run time instead of in init.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		bindFlag(cmd.Flags().Lookup(flag), key)
	}
}

// setDefaults registers the values used when neither flags, environment
// nor the config file set a key.
func setDefaults(v *viper.Viper) {
	pdf := types.DefaultPDFConfig()
	v.SetDefault("api.base_url", api.DefaultBaseURL)
	v.SetDefault("http.timeout", defaultTimeout)
	v.SetDefault("pdf.backend", string(pdf.Backend))
	v.SetDefault("pdf.margin_top", pdf.MarginTop)
	v.SetDefault("pdf.margin_bottom", pdf.MarginBottom)
	v.SetDefault("pdf.margin_left", pdf.MarginLeft)
	v.SetDefault("pdf.margin_right", pdf.MarginRight)
	v.SetDefault("pdf.zoom", pdf.Zoom)
	v.SetDefault("pdf.footer_font_name", pdf.FooterFontName)
	v.SetDefault("pdf.footer_font_size", pdf.FooterFontSize)
	v.SetDefault("pdf.footer_spacing", pdf.FooterSpacing)
	v.SetDefault("pdf.wkhtmltopdf_path", pdf.WkhtmltopdfPath)
}

// credentials resolves the auth token and module id. Environment and config
// file values win over config.ini, which wins over the secrets directory.
func credentials() (secrets.Credentials, error) {
	creds := secrets.Credentials{
		AuthToken: viper.GetString("auth_token"),
		ModuleID:  viper.GetString("module_id"),
	}

	iniPath := viper.GetString("config_ini")
	if iniPath == "" {
		iniPath = "config.ini"
	}
	fromINI, err := secrets.LoadINI(iniPath)
	switch {
	case err == nil:
		creds = creds.Merge(fromINI)
	case secrets.IsNotExist(err) && !viper.IsSet("config_ini"):
		// config.ini is optional when credentials come from elsewhere.
	default:
		return creds, err
	}

	creds = creds.Merge(secrets.FromMap(loadedSecrets))
	if creds.AuthToken == "" {
		return creds, fmt.Errorf("no auth token: set auth_token in the [%s] section of %s", secrets.Section, iniPath)
	}
	return creds, nil
}

func apiConfig(creds secrets.Credentials) types.APIConfig {
	return types.APIConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    viper.GetDuration("http.timeout"),
			UserAgent:  viper.GetString("http.user_agent"),
			MaxRetries: viper.GetInt("http.max_retries"),
		},
		BaseURL:   viper.GetString("api.base_url"),
		AuthToken: creds.AuthToken,
		ModuleID:  creds.ModuleID,
	}
}

// newAPIClient builds the platform client from the resolved credentials.
func newAPIClient() (*api.Client, types.APIConfig, error) {
	creds, err := credentials()
	if err != nil {
		return nil, types.APIConfig{}, err
	}
	cfg := apiConfig(creds)
	client, err := api.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return client, cfg, nil
}

func renderConfig() types.RenderConfig {
	return types.RenderConfig{
		TOCTitle:   viper.GetString("render.toc_title"),
		TOCDepth:   viper.GetInt("render.toc_depth"),
		StyleSheet: viper.GetString("render.style_sheet"),
	}
}

func pdfConfig() types.PDFConfig {
	cfg := types.PDFConfig{
		Backend:         types.PDFBackend(viper.GetString("pdf.backend")),
		MarginTop:       viper.GetFloat64("pdf.margin_top"),
		MarginBottom:    viper.GetFloat64("pdf.margin_bottom"),
		MarginLeft:      viper.GetFloat64("pdf.margin_left"),
		MarginRight:     viper.GetFloat64("pdf.margin_right"),
		Zoom:            viper.GetFloat64("pdf.zoom"),
		FooterFontName:  viper.GetString("pdf.footer_font_name"),
		FooterFontSize:  viper.GetFloat64("pdf.footer_font_size"),
		FooterSpacing:   viper.GetFloat64("pdf.footer_spacing"),
		StyleSheet:      viper.GetString("pdf.style_sheet"),
		ChromePath:      viper.GetString("pdf.chrome_path"),
		WkhtmltopdfPath: viper.GetString("pdf.wkhtmltopdf_path"),
		ContainerImage:  viper.GetString("pdf.container_image"),
	}
	if cfg.StyleSheet == "" {
		if _, err := os.Stat(defaultStyleSheet); err == nil {
			cfg.StyleSheet = defaultStyleSheet
		}
	}
	return cfg
}

func exportConfig() types.ExportConfig {
	cfg := types.ExportConfig{
		OutputDir:  viper.GetString("output_dir"),
		ProgramIDs: toInt64s(viper.GetIntSlice("programs")),
	}
	for _, f := range viper.GetStringSlice("formats") {
		cfg.Formats = append(cfg.Formats, types.OutputFormat(f))
	}
	return cfg
}

func toInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func catalogConfig() types.CatalogConfig {
	return types.CatalogConfig{
		Path:     viper.GetString("catalog.path"),
		Disabled: viper.GetBool("catalog.disabled"),
	}
}

func publishConfig() types.PublishConfig {
	return types.PublishConfig{
		GCSBucket:       viper.GetString("gcs.bucket"),
		GCSPrefix:       viper.GetString("gcs.prefix"),
		CredentialsFile: viper.GetString("gcs.credentials_file"),
	}
}

// openCatalog opens the run catalogue, or returns nil when disabled.
func openCatalog(outputDir string) (*catalog.Catalog, error) {
	cfg := catalogConfig()
	if cfg.Disabled {
		return nil, nil
	}
	return catalog.Open(cfg, outputDir)
}

// outputSink returns the local sink, mirrored to Cloud Storage when a bucket
// is configured. closeFn releases the storage client.
func outputSink(ctx context.Context, outputDir string) (sink store.Sink, closeFn func() error, err error) {
	local := store.NewLocalSink(outputDir)
	pub := publishConfig()
	if !pub.Enabled() {
		return local, func() error { return nil }, nil
	}
	gcs, err := store.NewGCSSink(ctx, pub)
	if err != nil {
		return nil, nil, err
	}
	return store.Multi{local, gcs}, gcs.Close, nil
}
