package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"wity/services/wityd/config"
	"wity/services/wityd/storage"
)

type auditReport struct {
	Verified      bool   `json:"verified"`
	EntriesHashed int    `json:"entriesHashed"`
	ChainError    string `json:"chainError,omitempty"`
	ExportPath    string `json:"exportPath,omitempty"`
	ExportedRows  int    `json:"exportedRows,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wity-audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "services/wityd/config.yaml", "Path to wityd configuration file")
	export := fs.Bool("export", false, "Write journal entries to a parquet file in the export directory")
	after := fs.Uint64("after", 0, "Export entries with a sequence greater than this cursor")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	store, err := storage.OpenConfigured(cfg.Journal.Driver, cfg.Journal.Path, cfg.Journal.DSN)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open journal: %v\n", err)
		return 1
	}
	defer store.Close()
	journal := storage.NewJournal(store, nil)

	ctx := context.Background()
	report := auditReport{}
	checked, err := journal.Verify(ctx)
	report.EntriesHashed = checked
	report.Verified = err == nil
	if err != nil {
		report.ChainError = err.Error()
	}

	if *export {
		if err := os.MkdirAll(cfg.Journal.ExportDir, 0o755); err != nil {
			fmt.Fprintf(stderr, "failed to create export dir: %v\n", err)
			return 1
		}
		name := fmt.Sprintf("journal-%s.parquet", time.Now().UTC().Format("20060102T150405Z"))
		path := filepath.Join(cfg.Journal.ExportDir, name)
		rows, err := journal.ExportParquet(ctx, path, *after)
		if err != nil {
			fmt.Fprintf(stderr, "failed to export journal: %v\n", err)
			return 1
		}
		report.ExportPath = path
		report.ExportedRows = rows
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "failed to encode report: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(output))
	if !report.Verified {
		return 2
	}
	return 0
}
