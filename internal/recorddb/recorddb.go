// Package recorddb implements the cumulative record database: one CSV row
// per externally-identified document, keyed by ContentDocumentId.
package recorddb

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Baseline column names of the persisted format. Upstream-issued fields
// keep the upstream capitalization.
const (
	ColGeneratedFilename  = "generated_filename"
	ColAgencyName         = "agency_name"
	ColAgencyID           = "agency_id"
	ColFileExtension      = "FileExtension"
	ColCreatedDate        = "CreatedDate"
	ColTitle              = "Title"
	ColContentBodyID      = "ContentBodyId"
	ColID                 = "Id"
	ColContentDocumentID  = "ContentDocumentId"
	ColDownloadedFilename = "downloaded_filename"
	ColDownloadedPath     = "downloaded_path"
	ColSHA256             = "sha256"
	ColDownloadedAtUTC    = "downloaded_at_utc"
	ColDownloadStatus     = "download_status"
	ColIDMatchChecked     = "id_match_checked"
	ColRunID              = "run_id"
)

// baselineColumns is the canonical column order for saved files. Columns
// observed in loaded rows but not listed here are appended after these,
// sorted, so enrichment columns never get dropped.
var baselineColumns = []string{
	ColGeneratedFilename,
	ColAgencyName,
	ColAgencyID,
	ColFileExtension,
	ColCreatedDate,
	ColTitle,
	ColContentBodyID,
	ColID,
	ColContentDocumentID,
	ColDownloadedFilename,
	ColDownloadedPath,
	ColSHA256,
	ColDownloadedAtUTC,
	ColDownloadStatus,
	ColIDMatchChecked,
	ColRunID,
}

// Record is one row of the database. Rows are open maps so columns added
// by other tooling survive a load/save round trip.
type Record map[string]string

// Get returns the trimmed value of a column, or "" when absent.
func (r Record) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// ExternalID returns the document's upstream identifier.
func (r Record) ExternalID() string {
	return r.Get(ColContentDocumentID)
}

// SHA256 returns the recorded content hash, if any.
func (r Record) SHA256() string {
	return r.Get(ColSHA256)
}

// Load reads all rows from a CSV database file. A missing file yields an
// empty slice: the first run starts from nothing.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open record database: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows []Record

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		row := make(Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(fields) {
				row[col] = fields[i]
			} else {
				row[col] = ""
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// IndexByID builds the in-memory lookup keyed by ContentDocumentId. Rows
// without an id are unaddressable and excluded. Later rows win on
// duplicate ids.
func IndexByID(rows []Record) map[string]Record {
	byID := make(map[string]Record, len(rows))

	for _, row := range rows {
		if id := row.ExternalID(); id != "" {
			byID[id] = row
		}
	}

	return byID
}

// Save performs a deterministic full rewrite of the database file. Rows
// are sorted by (agency_id, ContentDocumentId) for reproducible diffs;
// the column set is the union of every key seen plus the baseline
// schema.
func Save(path string, rows []Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	columns := unionColumns(rows)

	sorted := make([]Record, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := sorted[i].Get(ColAgencyID), sorted[j].Get(ColAgencyID)
		if ai != aj {
			return ai < aj
		}
		return sorted[i].ExternalID() < sorted[j].ExternalID()
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create record database: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	fields := make([]string, len(columns))
	for _, row := range sorted {
		for i, col := range columns {
			fields[i] = row[col]
		}
		if err := writer.Write(fields); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush record database: %w", err)
	}

	return f.Close()
}

// unionColumns returns the baseline schema followed by any extra columns
// observed across rows, extras sorted for a stable header.
func unionColumns(rows []Record) []string {
	known := make(map[string]bool, len(baselineColumns))
	for _, col := range baselineColumns {
		known[col] = true
	}

	var extras []string
	for _, row := range rows {
		for col := range row {
			if col != "" && !known[col] {
				known[col] = true
				extras = append(extras, col)
			}
		}
	}

	sort.Strings(extras)

	columns := make([]string, 0, len(baselineColumns)+len(extras))
	columns = append(columns, baselineColumns...)
	columns = append(columns, extras...)

	return columns
}

// DedupeByID collapses rows to at most one per ContentDocumentId, the
// last occurrence winning. A re-downloaded document appends a fresh row
// while its stale predecessor is still in the slice; collapsing before
// save keeps the database keyed. Rows without an id are kept as-is.
func DedupeByID(rows []Record) []Record {
	out := make([]Record, 0, len(rows))
	pos := make(map[string]int, len(rows))

	for _, row := range rows {
		id := row.ExternalID()
		if id == "" {
			out = append(out, row)
			continue
		}

		if i, ok := pos[id]; ok {
			out[i] = row
			continue
		}

		pos[id] = len(out)
		out = append(out, row)
	}

	return out
}

// MergeLegacy reconciles the historical storage location with the primary
// database. When the primary is empty the legacy rows seed it wholesale;
// otherwise legacy rows whose id is not already tracked are appended.
// Existing rows are never overwritten by legacy ones. Returns the merged
// rows, the number of rows taken from the legacy file, and whether the
// primary was seeded from scratch.
func MergeLegacy(rows []Record, legacyPath string) ([]Record, int, bool, error) {
	legacyRows, err := Load(legacyPath)
	if err != nil {
		return rows, 0, false, fmt.Errorf("failed to load legacy database: %w", err)
	}

	if len(legacyRows) == 0 {
		return rows, 0, false, nil
	}

	if len(rows) == 0 {
		return legacyRows, len(legacyRows), true, nil
	}

	currentIDs := make(map[string]bool, len(rows))
	for _, row := range rows {
		if id := row.ExternalID(); id != "" {
			currentIDs[id] = true
		}
	}

	added := 0
	for _, row := range legacyRows {
		id := row.ExternalID()
		if id == "" || currentIDs[id] {
			continue
		}
		rows = append(rows, row)
		currentIDs[id] = true
		added++
	}

	return rows, added, false, nil
}

// ResolveLocalPath returns the first on-disk file matching the row's
// recorded locations, in priority order: absolute downloaded_path,
// downloaded_path relative to the download dir, downloaded_filename,
// generated_filename. Returns "" when none exists; the database holds a
// reference only, the file may have moved since it was recorded.
func ResolveLocalPath(row Record, downloadDir string) string {
	var candidates []string

	if p := row.Get(ColDownloadedPath); p != "" {
		if filepath.IsAbs(p) {
			candidates = append(candidates, p)
		} else {
			candidates = append(candidates, filepath.Join(downloadDir, p))
		}
	}
	if name := row.Get(ColDownloadedFilename); name != "" {
		candidates = append(candidates, filepath.Join(downloadDir, name))
	}
	if name := row.Get(ColGeneratedFilename); name != "" {
		candidates = append(candidates, filepath.Join(downloadDir, name))
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}

	return ""
}
