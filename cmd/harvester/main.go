// Package main provides the harvester command that discovers, downloads,
// and extracts agency documents in one run.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"docharvest/internal/agency"
	"docharvest/internal/config"
	"docharvest/internal/extract"
	"docharvest/internal/ingest"
	"docharvest/internal/logger"
	"docharvest/internal/recorddb"
	"docharvest/internal/report"
)

func main() {
	// 1. Define Command-Line Flags
	// ---------------------------
	configPath := flag.String("config", "", "Path to YAML configuration file")
	apiBase := flag.String("api-base", "", "Base URL of the agency directory API")
	downloadDir := flag.String("download-dir", "", "Directory for downloaded documents")
	metadataDir := flag.String("metadata-dir", "", "Directory for CSV metadata outputs")
	batchDir := flag.String("batch-dir", "", "Directory for compressed text batches")
	dbCSV := flag.String("db-csv", "", "Cumulative record database file name")
	runOutputCSV := flag.String("run-output-csv", "", "Per-run output CSV file name")
	limit := flag.Int("limit", -1, "Maximum new downloads this run (0 = unlimited)")
	sleepMs := flag.Int("sleep-ms", -1, "Pause in milliseconds between downloads")
	skipExtraction := flag.Bool("skip-extraction", false, "Skip the text extraction phase")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")

	flag.Parse()

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	applyOverrides(cfg, *apiBase, *downloadDir, *metadataDir, *batchDir, *dbCSV, *runOutputCSV, *logLevel, *limit, *sleepMs, *skipExtraction)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := logger.NewLoggerWithOptions(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	log.Info("🚀 Starting document harvest")
	log.Info(fmt.Sprintf("📍 Source: %s", cfg.API.BaseURL))
	log.Info(fmt.Sprintf("📂 Downloads: %s", cfg.Pipeline.DownloadDir))

	startTime := time.Now()

	for _, dir := range []string{cfg.Pipeline.DownloadDir, cfg.Pipeline.MetadataDir, cfg.Pipeline.BatchDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Error(fmt.Sprintf("❌ Failed to create directory %s: %v", dir, err))
			os.Exit(1)
		}
	}

	// 2. Record Database
	// ------------------
	log.Info("Phase 1: Loading record database...")

	rows, err := recorddb.Load(cfg.DatabasePath())
	if err != nil {
		log.Error(fmt.Sprintf("❌ Failed to load record database: %v", err))
		os.Exit(1)
	}

	rows, legacyAdded, legacySeeded, err := recorddb.MergeLegacy(rows, cfg.LegacyPath())
	if err != nil {
		log.Error(fmt.Sprintf("❌ Failed to merge legacy metadata: %v", err))
		os.Exit(1)
	}

	if legacySeeded {
		log.Info(fmt.Sprintf("ℹ️  Seeded empty database from legacy metadata (%d rows)", len(rows)))
	} else if legacyAdded > 0 {
		log.Info(fmt.Sprintf("ℹ️  Merged %d legacy rows missing from the database", legacyAdded))
	}

	index := recorddb.IndexByID(rows)

	log.Info(fmt.Sprintf("✅ Loaded %d records (%d with document ids)", len(rows), len(index)))

	// 3. Preflight Backfill
	// ---------------------
	log.Info("Phase 2: Preflight hash backfill...")

	client := agency.NewClient(cfg.API, &cfg.Retry)

	driver := ingest.NewDriver(client, client, ingest.Options{
		DownloadDir: cfg.Pipeline.DownloadDir,
		Limit:       cfg.Pipeline.Limit,
		Delay:       cfg.SleepBetweenDownloads(),
	}, log)

	preflighted := driver.Preflight(rows)
	log.Info(fmt.Sprintf("✅ Backfilled %d records from files already on disk", preflighted))

	// 4. Discovery & Download
	// -----------------------
	log.Info("Phase 3: Discovery and download...")

	result, err := driver.Discover(index)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Discovery failed: %v", err))
		os.Exit(1)
	}

	log.Info(fmt.Sprintf("✅ Downloaded %d new documents (%d attempted, %d backfilled)",
		len(result.NewRows), result.Attempted, result.Backfilled))

	if cfg.Pipeline.Limit > 0 && !result.LimitReached && len(result.NewRows) < cfg.Pipeline.Limit {
		log.Info(fmt.Sprintf("ℹ️  Limit requested %d but only %d new documents were found",
			cfg.Pipeline.Limit, len(result.NewRows)))
	}

	// 5. Persist Metadata
	// -------------------
	// A re-download of a known id appends a fresh row alongside the stale
	// one; collapse by id before save so the database stays keyed.
	rows = recorddb.DedupeByID(append(rows, result.NewRows...))

	if err := recorddb.Save(cfg.DatabasePath(), rows); err != nil {
		log.Error(fmt.Sprintf("❌ Failed to save record database: %v", err))
		os.Exit(1)
	}

	if err := recorddb.Save(cfg.RunOutputPath(), result.NewRows); err != nil {
		log.Error(fmt.Sprintf("❌ Failed to save run output: %v", err))
		os.Exit(1)
	}

	log.Info(fmt.Sprintf("✅ Saved %d records to %s", len(rows), cfg.DatabasePath()))

	// 6. Text Extraction
	// ------------------
	extracted := &extract.Result{}

	if cfg.Pipeline.SkipExtraction {
		log.Info("Phase 4: Text extraction skipped by configuration")
	} else {
		log.Info("Phase 4: Text extraction...")

		var paths []string
		for _, row := range result.NewRows {
			paths = append(paths, row.Get(recorddb.ColDownloadedPath))
		}

		extracted, err = extract.RunBatch(paths, cfg.Pipeline.BatchDir, extract.NewPDFExtractor(), log)
		if err != nil {
			log.Error(fmt.Sprintf("❌ Extraction failed: %v", err))
			os.Exit(1)
		}

		log.Info(fmt.Sprintf("✅ Extracted %d documents (%d skipped, %d errors)",
			extracted.Processed, extracted.Skipped, extracted.Errors))
	}

	// 7. Final Report
	// ---------------
	log.Info("✨ Harvest complete!")

	tbl := &report.Table{Headers: []string{"Metric", "Value"}}
	tbl.AddRow("Run ID", driver.RunID())
	tbl.AddRow("Records in database", fmt.Sprintf("%d", len(rows)))
	tbl.AddRow("Preflight backfills", fmt.Sprintf("%d", preflighted))
	tbl.AddRow("Discovery backfills", fmt.Sprintf("%d", result.Backfilled))
	tbl.AddRow("New downloads", fmt.Sprintf("%d", len(result.NewRows)))
	tbl.AddRow("Texts extracted", fmt.Sprintf("%d", extracted.Processed))
	tbl.AddRow("Duration", time.Since(startTime).Round(time.Second).String())

	fmt.Println()
	fmt.Print(tbl.Render())
}

// resolveConfig parses the YAML config when a path is given, defaults
// otherwise. Validation is deferred until flag overrides are applied,
// so values like the API base URL may come from either source.
func resolveConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}

	return config.ParseConfig(path)
}

func applyOverrides(cfg *config.Config, apiBase, downloadDir, metadataDir, batchDir, dbCSV, runOutputCSV, logLevel string, limit, sleepMs int, skipExtraction bool) {
	if apiBase != "" {
		cfg.API.BaseURL = apiBase
	}
	if downloadDir != "" {
		cfg.Pipeline.DownloadDir = downloadDir
	}
	if metadataDir != "" {
		cfg.Pipeline.MetadataDir = metadataDir
	}
	if batchDir != "" {
		cfg.Pipeline.BatchDir = batchDir
	}
	if dbCSV != "" {
		cfg.Pipeline.DatabaseFile = dbCSV
	}
	if runOutputCSV != "" {
		cfg.Pipeline.RunOutputFile = runOutputCSV
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if limit >= 0 {
		cfg.Pipeline.Limit = limit
	}
	if sleepMs >= 0 {
		cfg.Pipeline.SleepMs = sleepMs
	}
	if skipExtraction {
		cfg.Pipeline.SkipExtraction = true
	}
}
