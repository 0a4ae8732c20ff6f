package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"wity/services/wityd/storage"
)

func TestAuditVerifiesAndExports(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "journal.sqlite")
	exportDir := filepath.Join(dir, "exports")

	store, err := storage.OpenConfigured("sqlite", journalPath, "")
	require.NoError(t, err)
	journal := storage.NewJournal(store, nil)
	for _, kind := range []string{"wity.migration.credited", "wity.stake.opened"} {
		_, err := journal.Append(context.Background(), kind, map[string]string{"account": "wty1test"})
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	cfgPath := filepath.Join(dir, "wityd.yaml")
	cfg := "journal:\n  driver: sqlite\n  path: \"" + journalPath + "\"\n  export_dir: \"" + exportDir + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run([]string{"-config", cfgPath, "-export"}, stdout, stderr)
	require.Equal(t, 0, code, stderr.String())

	var report auditReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.True(t, report.Verified)
	require.Equal(t, 2, report.EntriesHashed)
	require.Equal(t, 2, report.ExportedRows)
	_, err = os.Stat(report.ExportPath)
	require.NoError(t, err)
}

func TestAuditRejectsMissingConfig(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	require.Equal(t, 1, run([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, stdout, stderr))
	require.Contains(t, stderr.String(), "failed to load config")
}
