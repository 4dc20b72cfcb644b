package extract

import (
	"fmt"
	"os"
	"sort"
	"time"

	"docharvest/internal/batchstore"
	"docharvest/internal/logger"
	"docharvest/internal/models"
	"docharvest/pkg/hashutil"
)

// Result summarizes one batch extraction run.
type Result struct {
	BatchFile string
	Staged    int
	Processed int
	Skipped   int
	Errors    int
}

// RunBatch stages the given files into an isolated working set, extracts
// page text for every file whose hash is not already present in any
// existing batch, and writes at most one new batch file to batchDir.
// The hash check against the union of all prior batches is the
// authoritative dedup, independent of the record database. Per-file
// hashing or extraction failures are logged and skipped.
func RunBatch(paths []string, batchDir string, ex PageExtractor, log *logger.Logger) (*Result, error) {
	result := &Result{}

	if len(paths) == 0 {
		log.Info("No new downloads in this run; skipping text extraction")
		return result, nil
	}

	stagingDir, err := os.MkdirTemp("", "docharvest_staging_")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	staged, err := NewStager().Stage(stagingDir, paths)
	if err != nil {
		return nil, err
	}

	result.Staged = len(staged)
	if len(staged) == 0 {
		log.Info("No valid downloaded files available for extraction")
		return result, nil
	}

	known, err := batchstore.LoadHashSet(batchDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing batch hashes: %w", err)
	}

	log.Info("Starting batch extraction",
		"staged", len(staged), "known_hashes", len(known))

	sort.Strings(staged)

	var records []models.TextBatchRecord

	startTime := time.Now()

	for idx, path := range staged {
		fileLog := log.With("file", path, "index", fmt.Sprintf("%d/%d", idx+1, len(staged)))

		hash, err := hashutil.FileSHA256(path)
		if err != nil {
			fileLog.Error("Failed to hash staged file", "error", err)
			result.Errors++

			continue
		}

		if _, ok := known[hash]; ok {
			fileLog.Info("Skipping already-processed file", "sha256", hash)
			result.Skipped++

			continue
		}

		pages, err := ex.Pages(path)
		if err != nil {
			fileLog.Error("Failed to extract text", "error", err)
			result.Errors++

			continue
		}

		records = append(records, models.TextBatchRecord{
			SHA256:      hash,
			Pages:       pages,
			ProcessedAt: time.Now().UTC().Format(time.RFC3339),
		})

		// Guards against the same content staged twice in one run.
		known[hash] = struct{}{}
		result.Processed++

		elapsed := time.Since(startTime)
		remaining := time.Duration(0)
		if result.Processed > 0 {
			perFile := elapsed / time.Duration(result.Processed)
			remaining = perFile * time.Duration(len(staged)-idx-1)
		}

		fileLog.Info("Extracted pages",
			"pages", len(pages), "elapsed", elapsed.Round(time.Second),
			"remaining_estimate", remaining.Round(time.Second))
	}

	batchFile, err := batchstore.Write(batchDir, records)
	if err != nil {
		return nil, fmt.Errorf("failed to write batch file: %w", err)
	}

	result.BatchFile = batchFile

	if batchFile != "" {
		log.Info("Wrote batch file", "file", batchFile, "records", len(records))
	} else {
		log.Info("No new records to save")
	}

	return result, nil
}
