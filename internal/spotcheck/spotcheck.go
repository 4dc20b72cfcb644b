// Package spotcheck audits the batch store: it re-extracts a random
// sample of documents and compares the result page-by-page against the
// stored records.
package spotcheck

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"docharvest/internal/batchstore"
	"docharvest/internal/extract"
	"docharvest/internal/logger"
	"docharvest/internal/models"
	"docharvest/pkg/hashutil"
)

// ErrNotADirectory indicates the audit target is not a usable directory.
var ErrNotADirectory = errors.New("not a directory")

// Mismatch describes one sampled file whose re-extraction differs from
// its stored record.
type Mismatch struct {
	Path      string
	SHA256    string
	WantPages int
	GotPages  int
	// DiffPages lists 1-based page indices that differ; populated only
	// when the page counts match.
	DiffPages []int
	// Err is set when re-extraction itself failed.
	Err error
}

// Result summarizes one audit.
type Result struct {
	Records    int
	Candidates int
	Sampled    int
	Passed     int
	Failed     int
	Mismatches []Mismatch
}

// candidate pairs an on-disk file with its stored record hash.
type candidate struct {
	path string
	hash string
}

// Run samples up to n files from pdfDir whose content hash has a batch
// record and verifies the stored text still matches a fresh extraction.
// A missing or non-directory pdfDir is fatal; per-file failures count as
// audit failures but do not interrupt the remaining samples.
func Run(pdfDir, batchDir string, n int, ex extract.PageExtractor, log *logger.Logger) (*Result, error) {
	info, err := os.Stat(pdfDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf directory %s: %w", pdfDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, pdfDir)
	}

	records, err := batchstore.LoadAllRecords(batchDir, log)
	if err != nil {
		return nil, err
	}

	result := &Result{Records: len(records)}

	if len(records) == 0 {
		log.Info("No records to spot check")
		return result, nil
	}

	candidates, err := collectCandidates(pdfDir, records, log)
	if err != nil {
		return nil, err
	}

	result.Candidates = len(candidates)

	if len(candidates) == 0 {
		log.Info("No files on disk match existing records")
		return result, nil
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	result.Sampled = n

	log.Info("Spot checking sampled files", "samples", n, "candidates", len(candidates))

	for _, c := range candidates[:n] {
		checkOne(c, records[c.hash].Pages, ex, result, log)
	}

	log.Info("Spot check complete", "passed", result.Passed, "failed", result.Failed)

	return result, nil
}

// collectCandidates hashes every PDF in pdfDir and keeps those whose
// hash has a stored record. Files that cannot be hashed are skipped.
func collectCandidates(pdfDir string, records map[string]models.TextBatchRecord, log *logger.Logger) ([]candidate, error) {
	entries, err := os.ReadDir(pdfDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf directory: %w", err)
	}

	var candidates []candidate

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		path := filepath.Join(pdfDir, entry.Name())

		hash, err := hashutil.FileSHA256(path)
		if err != nil {
			log.Warn("Skipping unhashable file", "path", path, "error", err)
			continue
		}

		if _, ok := records[hash]; ok {
			candidates = append(candidates, candidate{path: path, hash: hash})
		}
	}

	return candidates, nil
}

func checkOne(c candidate, want []string, ex extract.PageExtractor, result *Result, log *logger.Logger) {
	log.Info("Checking file", "path", c.path)

	got, err := ex.Pages(c.path)
	if err != nil {
		log.Error("Re-extraction failed", "path", c.path, "error", err)
		result.Failed++
		result.Mismatches = append(result.Mismatches, Mismatch{
			Path:   c.path,
			SHA256: c.hash,
			Err:    err,
		})

		return
	}

	if pagesEqual(got, want) {
		log.Info("Pages match", "path", c.path, "pages", len(got))
		result.Passed++

		return
	}

	mismatch := Mismatch{
		Path:      c.path,
		SHA256:    c.hash,
		WantPages: len(want),
		GotPages:  len(got),
	}

	// Which page differs is only meaningful when the counts agree.
	if len(got) == len(want) {
		for i := range got {
			if got[i] != want[i] {
				mismatch.DiffPages = append(mismatch.DiffPages, i+1)
			}
		}
		log.Error("Text mismatch", "path", c.path, "differing_pages", mismatch.DiffPages)
	} else {
		log.Error("Page count mismatch", "path", c.path,
			"expected", len(want), "got", len(got))
	}

	result.Failed++
	result.Mismatches = append(result.Mismatches, mismatch)
}

func pagesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
