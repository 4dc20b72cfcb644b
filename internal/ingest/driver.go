// Package ingest orchestrates discovery and download: it decides, per
// document id, what is already known, what can be repaired from disk,
// and what genuinely needs a network fetch.
package ingest

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docharvest/internal/agency"
	"docharvest/internal/logger"
	"docharvest/internal/models"
	"docharvest/internal/recorddb"
	"docharvest/pkg/hashutil"
)

// Options configures a single ingestion run.
type Options struct {
	DownloadDir string
	// Limit caps genuine new downloads for the run; 0 means unlimited.
	// Backfill repairs never count against it.
	Limit int
	// Delay is the courtesy pause after each successful download.
	Delay time.Duration
}

// Driver executes the preflight and discovery phases of one run.
type Driver struct {
	api        agency.DirectoryAPI
	downloader agency.Downloader
	log        *logger.Logger
	opts       Options
	runID      string
}

// Result summarizes the discovery phase.
type Result struct {
	// NewRows holds one record per genuine download, in download order.
	NewRows      []recorddb.Record
	Backfilled   int
	Attempted    int
	LimitReached bool
}

// NewDriver creates a driver for one run. Each run gets a fresh id that
// is stamped into every row it creates.
func NewDriver(api agency.DirectoryAPI, downloader agency.Downloader, opts Options, log *logger.Logger) *Driver {
	runID := uuid.NewString()

	return &Driver{
		api:        api,
		downloader: downloader,
		log:        log.With("run_id", runID),
		opts:       opts,
		runID:      runID,
	}
}

// RunID returns the identifier stamped into rows created by this run.
func (d *Driver) RunID() string {
	return d.runID
}

// Preflight backfills the content hash for every row that references a
// resolvable local file but was never hashed, so the id→hash index is
// maximally complete before discovery starts. Rows repaired here get
// status backfilled_preflight unless a status was already recorded.
// Returns the number of rows updated.
func (d *Driver) Preflight(rows []recorddb.Record) int {
	updated := 0

	for _, row := range rows {
		if row.ExternalID() == "" || row.SHA256() != "" {
			continue
		}

		localPath := recorddb.ResolveLocalPath(row, d.opts.DownloadDir)
		if localPath == "" {
			continue
		}

		hash, err := hashutil.FileSHA256(localPath)
		if err != nil {
			d.log.Warn("Preflight failed to hash local file", "path", localPath, "error", err)
			continue
		}

		d.repairRow(row, localPath, hash)
		if row.Get(recorddb.ColDownloadStatus) == "" {
			row[recorddb.ColDownloadStatus] = models.StatusBackfilledPreflight
		}
		updated++
	}

	return updated
}

// Discover walks the agency directory and its content listings,
// downloading only what is missing. index is mutated in place: repaired
// rows keep their identity, new rows are registered under their id.
// Failure to list agencies aborts the run; failure to list one agency's
// content skips that agency only.
func (d *Driver) Discover(index map[string]recorddb.Record) (*Result, error) {
	agencies, err := d.api.ListAgencies()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agency information: %w", err)
	}

	d.log.Info("Fetched agency directory", "agencies", len(agencies))

	result := &Result{}

	for _, ag := range agencies {
		if d.limitReached(result) {
			result.LimitReached = true
			break
		}

		if ag.AgencyID == "" {
			continue
		}

		items, err := d.api.ListContent(ag.AgencyID)
		if err != nil {
			// One unavailable agency must not abort the whole run.
			d.log.Warn("Skipping agency with failed content listing",
				"agency_id", ag.AgencyID, "error", err)
			continue
		}

		for _, item := range items {
			if d.limitReached(result) {
				result.LimitReached = true
				break
			}

			d.processItem(ag, item, index, result)
		}
	}

	return result, nil
}

func (d *Driver) processItem(ag models.Agency, item models.ContentItem, index map[string]recorddb.Record, result *Result) {
	id := item.ContentDocumentID
	if id == "" {
		return
	}

	if existing, ok := index[id]; ok {
		if existing.SHA256() != "" {
			// Fully known, nothing to fetch.
			return
		}

		// Known id without a hash: a prior run was interrupted between
		// download and bookkeeping. Repair from disk when possible.
		if localPath := recorddb.ResolveLocalPath(existing, d.opts.DownloadDir); localPath != "" {
			hash, err := hashutil.FileSHA256(localPath)
			if err != nil {
				d.log.Warn("Failed to hash existing local file", "path", localPath, "error", err)
				return
			}

			d.repairRow(existing, localPath, hash)
			existing[recorddb.ColDownloadStatus] = models.StatusBackfilledExisting
			result.Backfilled++

			d.log.Info("Backfilled existing record from disk", "document_id", id, "path", localPath)

			return
		}
	}

	// Genuine new download.
	result.Attempted++

	outPath, err := d.downloader.Fetch(agency.DownloadRequest{
		DocumentID:  id,
		AgencyName:  ag.AgencyName,
		Title:       item.Title,
		CreatedDate: item.CreatedDate,
		Extension:   item.FileExtension,
		TargetDir:   d.opts.DownloadDir,
	})
	if err != nil {
		d.log.Warn("Download failed; document stays undiscovered until the next run",
			"document_id", id, "error", err)
		return
	}

	hash, err := hashutil.FileSHA256(outPath)
	if err != nil {
		d.log.Warn("Failed to hash downloaded file", "path", outPath, "error", err)
		return
	}

	row := d.buildRow(ag, item, outPath, hash)
	result.NewRows = append(result.NewRows, row)
	index[id] = row

	limitLabel := "?"
	if d.opts.Limit > 0 {
		limitLabel = fmt.Sprintf("%d", d.opts.Limit)
	}
	d.log.Info("Downloaded new file",
		"document_id", id, "progress", fmt.Sprintf("%d/%s", len(result.NewRows), limitLabel))

	if d.opts.Delay > 0 {
		time.Sleep(d.opts.Delay)
	}
}

func (d *Driver) limitReached(result *Result) bool {
	return d.opts.Limit > 0 && len(result.NewRows) >= d.opts.Limit
}

// repairRow records a hash/path pairing established from state already
// on disk. Status provenance is left to the caller.
func (d *Driver) repairRow(row recorddb.Record, localPath, hash string) {
	row[recorddb.ColDownloadedPath] = localPath
	row[recorddb.ColDownloadedFilename] = filepath.Base(localPath)
	if row.Get(recorddb.ColGeneratedFilename) == "" {
		row[recorddb.ColGeneratedFilename] = filepath.Base(localPath)
	}
	row[recorddb.ColSHA256] = hash
	row[recorddb.ColIDMatchChecked] = "true"
}

func (d *Driver) buildRow(ag models.Agency, item models.ContentItem, outPath, hash string) recorddb.Record {
	base := filepath.Base(outPath)

	return recorddb.Record{
		recorddb.ColGeneratedFilename:  base,
		recorddb.ColAgencyName:         ag.AgencyName,
		recorddb.ColAgencyID:           ag.AgencyID,
		recorddb.ColFileExtension:      item.FileExtension,
		recorddb.ColCreatedDate:        item.CreatedDate,
		recorddb.ColTitle:              item.Title,
		recorddb.ColContentBodyID:      item.ContentBodyID,
		recorddb.ColID:                 item.ID,
		recorddb.ColContentDocumentID:  item.ContentDocumentID,
		recorddb.ColDownloadedFilename: base,
		recorddb.ColDownloadedPath:     outPath,
		recorddb.ColSHA256:             hash,
		recorddb.ColDownloadedAtUTC:    time.Now().UTC().Format(time.RFC3339),
		recorddb.ColDownloadStatus:     models.StatusDownloaded,
		recorddb.ColIDMatchChecked:     "true",
		recorddb.ColRunID:              d.runID,
	}
}
