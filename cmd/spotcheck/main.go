// Package main provides the spotcheck command that audits stored batch
// text against a fresh extraction of randomly sampled documents.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"docharvest/internal/config"
	"docharvest/internal/extract"
	"docharvest/internal/logger"
	"docharvest/internal/report"
	"docharvest/internal/spotcheck"
)

func main() {
	pdfDir := flag.String("pdf-dir", config.DefaultDownloadDir, "Directory holding downloaded PDF files")
	batchDir := flag.String("batch-dir", config.DefaultBatchDir, "Directory holding compressed text batches")
	samples := flag.Int("samples", 5, "Number of files to sample")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	log := logger.NewLogger(*logLevel)

	if *samples < 1 {
		log.Error("❌ -samples must be at least 1")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Info("🔍 Starting spot check")
	log.Info(fmt.Sprintf("📂 PDFs: %s", *pdfDir))
	log.Info(fmt.Sprintf("📦 Batches: %s", *batchDir))

	startTime := time.Now()

	result, err := spotcheck.Run(*pdfDir, *batchDir, *samples, extract.NewPDFExtractor(), log)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Spot check failed: %v", err))
		os.Exit(1)
	}

	tbl := &report.Table{Headers: []string{"Metric", "Value"}}
	tbl.AddRow("Stored records", fmt.Sprintf("%d", result.Records))
	tbl.AddRow("Candidates on disk", fmt.Sprintf("%d", result.Candidates))
	tbl.AddRow("Sampled", fmt.Sprintf("%d", result.Sampled))
	tbl.AddRow("Passed", fmt.Sprintf("%d", result.Passed))
	tbl.AddRow("Failed", fmt.Sprintf("%d", result.Failed))
	tbl.AddRow("Duration", time.Since(startTime).Round(time.Second).String())

	fmt.Println()
	fmt.Print(tbl.Render())

	if result.Failed > 0 {
		fmt.Println()

		for _, m := range result.Mismatches {
			switch {
			case m.Err != nil:
				fmt.Printf("  - %s: extraction failed: %v\n", m.Path, m.Err)
			case m.WantPages != m.GotPages:
				fmt.Printf("  - %s: page count changed from %d to %d\n", m.Path, m.WantPages, m.GotPages)
			default:
				fmt.Printf("  - %s: pages %v differ\n", m.Path, m.DiffPages)
			}
		}

		os.Exit(1)
	}

	log.Info("✨ Spot check passed")
}
