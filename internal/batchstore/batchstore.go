// Package batchstore reads and writes the append-only text-batch store:
// a directory of immutable, timestamp-named, zstd-compressed JSON files,
// one per ingestion run that produced new text.
package batchstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"docharvest/internal/logger"
	"docharvest/internal/models"
)

// BatchSuffix identifies batch files within the store directory.
const BatchSuffix = "_pdf_text.json.zst"

// timestampLayout names batch files chronologically under lexical sort.
const timestampLayout = "20060102_150405"

// LoadHashSet scans every batch file in dir and unions their hash keys.
// A batch file that fails to parse is logged and skipped; its hashes are
// lost to the dedup set, which is accepted in favor of keeping ingestion
// available. A missing directory yields an empty set.
func LoadHashSet(dir string, log *logger.Logger) (map[string]struct{}, error) {
	hashes := make(map[string]struct{})

	err := scan(dir, log, func(records []models.TextBatchRecord) {
		for _, rec := range records {
			if rec.SHA256 != "" {
				hashes[rec.SHA256] = struct{}{}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	return hashes, nil
}

// LoadAllRecords scans every batch file in dir and returns full records
// indexed by hash. Duplicate hashes across files violate the store
// invariant but can appear after manual intervention; the later-scanned
// file wins. Scan order is lexical file-name order, which the timestamp
// naming makes chronological.
func LoadAllRecords(dir string, log *logger.Logger) (map[string]models.TextBatchRecord, error) {
	records := make(map[string]models.TextBatchRecord)

	err := scan(dir, log, func(batch []models.TextBatchRecord) {
		for _, rec := range batch {
			if rec.SHA256 != "" {
				records[rec.SHA256] = rec
			}
		}
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Write persists records as exactly one new timestamp-named batch file
// and returns its path. Nothing is written when records is empty. The
// batch is staged to a temp file and renamed into place so concurrent
// readers never observe a partial file.
func Write(dir string, records []models.TextBatchRecord) (string, error) {
	return writeNamed(dir, time.Now().UTC().Format(timestampLayout)+BatchSuffix, records)
}

func writeNamed(dir, name string, records []models.TextBatchRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create batch directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".batch-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp batch file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := encodeBatch(tmp, records); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close batch file: %w", err)
	}

	finalPath := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to finalize batch file: %w", err)
	}

	return finalPath, nil
}

func encodeBatch(f *os.File, records []models.TextBatchRecord) error {
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	if err := json.NewEncoder(enc).Encode(records); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode batch records: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}

	return nil
}

// scan walks the batch files in lexical order and hands each parsed
// batch to visit. Unparseable files are warned about and skipped.
func scan(dir string, log *logger.Logger, visit func([]models.TextBatchRecord)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read batch directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), BatchSuffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)

		records, err := readBatch(path)
		if err != nil {
			log.Warn("Skipping unreadable batch file", "file", path, "error", err)
			continue
		}

		visit(records)
	}

	return nil
}

func readBatch(path string) ([]models.TextBatchRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	var records []models.TextBatchRecord
	if err := json.NewDecoder(dec).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode batch records: %w", err)
	}

	return records, nil
}
