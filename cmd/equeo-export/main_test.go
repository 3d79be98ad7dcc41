// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/equeo-export/internal/catalog"
	"github.com/pdiddy/equeo-export/pkg/types"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	setDefaults(viper.GetViper())
	loadedSecrets = nil
	t.Cleanup(func() {
		viper.Reset()
		loadedSecrets = nil
	})
}

func writeINI(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCredentials_FromINI(t *testing.T) {
	resetConfig(t)
	viper.Set("config_ini", writeINI(t, "[e-queo]\nauth_token = tok\nmodule_id = 99\n"))

	creds, err := credentials()
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.AuthToken)
	assert.Equal(t, "99", creds.ModuleID)
}

func TestCredentials_ConfigOverridesINI(t *testing.T) {
	resetConfig(t)
	viper.Set("config_ini", writeINI(t, "[e-queo]\nauth_token = tok\nmodule_id = 99\n"))
	viper.Set("module_id", "5")

	creds, err := credentials()
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.AuthToken)
	assert.Equal(t, "5", creds.ModuleID)
}

func TestCredentials_SecretsFallback(t *testing.T) {
	resetConfig(t)
	t.Chdir(t.TempDir())
	loadedSecrets = map[string]string{"auth-token": "from-file", "module-id": "3"}

	creds, err := credentials()
	require.NoError(t, err)
	assert.Equal(t, "from-file", creds.AuthToken)
	assert.Equal(t, "3", creds.ModuleID)
}

func TestCredentials_MissingSection(t *testing.T) {
	resetConfig(t)
	viper.Set("config_ini", writeINI(t, "[other]\nauth_token = tok\n"))

	_, err := credentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "section e-queo not found in the config.ini file")
}

func TestCredentials_NoToken(t *testing.T) {
	resetConfig(t)
	t.Chdir(t.TempDir())

	_, err := credentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no auth token")
}

func TestPDFConfig_Defaults(t *testing.T) {
	resetConfig(t)
	t.Chdir(t.TempDir())

	cfg := pdfConfig()
	want := types.DefaultPDFConfig()
	assert.Equal(t, want, cfg)
}

func TestPDFConfig_PicksUpLocalStyleSheet(t *testing.T) {
	resetConfig(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pdf.css"), []byte("body{}"), 0o644))

	assert.Equal(t, "pdf.css", pdfConfig().StyleSheet)
}

func TestExportConfig(t *testing.T) {
	resetConfig(t)
	viper.Set("output_dir", "out")
	viper.Set("formats", []string{"md", "pdf"})
	viper.Set("programs", []int{4, 8})

	cfg := exportConfig()
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, []types.OutputFormat{types.FormatMarkdown, types.FormatPDF}, cfg.Formats)
	assert.Equal(t, []int64{4, 8}, cfg.ProgramIDs)
}

func TestOutputSink_LocalOnlyWithoutBucket(t *testing.T) {
	resetConfig(t)
	sink, closeFn, err := outputSink(t.Context(), t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, sink)
	assert.NoError(t, closeFn())
}

func TestFormatPrograms(t *testing.T) {
	programs := []types.Program{
		{ID: 12, Name: "Продажи", Sections: []types.Section{
			{Materials: []types.Material{{ID: 1}, {ID: 2}}},
			{Materials: []types.Material{{ID: 3}}},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, formatPrograms(&buf, programs, false))
	assert.Contains(t, buf.String(), "12          2         3          Продажи")
	assert.Contains(t, buf.String(), "1 program(s)")

	buf.Reset()
	require.NoError(t, formatPrograms(&buf, nil, false))
	assert.Equal(t, "No learning programs found.\n", buf.String())

	buf.Reset()
	require.NoError(t, formatPrograms(&buf, programs, true))
	assert.Contains(t, buf.String(), `"name": "Продажи"`)
}

func TestFormatRuns(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	runs := []catalog.Run{
		{ID: "r1", ModuleID: "7", StartedAt: start, FinishedAt: start.Add(90 * time.Second), Status: catalog.StatusSucceeded, Programs: 3},
		{ID: "r2", ModuleID: "7", StartedAt: start, Status: catalog.StatusFailed, Error: "boom"},
	}

	var buf bytes.Buffer
	require.NoError(t, formatRuns(&buf, runs, false))
	out := buf.String()
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "  error: boom")

	buf.Reset()
	require.NoError(t, formatRuns(&buf, nil, false))
	assert.Equal(t, "No runs recorded.\n", buf.String())
}

func TestFormatRunPrograms(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatRunPrograms(&buf, []catalog.Program{
		{ProgramID: 1, Name: "A", Files: []string{"md/A.md"}, Materials: 2, Longreads: 1},
	}, false))
	assert.Contains(t, buf.String(), "  md/A.md")
}
