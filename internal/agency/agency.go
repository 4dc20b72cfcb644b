// Package agency implements the collaborators around the remote agency
// directory API: the directory/content listing client and the per-file
// downloader.
package agency

import "docharvest/internal/models"

// DirectoryAPI lists agencies and their content documents.
type DirectoryAPI interface {
	ListAgencies() ([]models.Agency, error)
	ListContent(agencyID string) ([]models.ContentItem, error)
}

// DownloadRequest carries everything needed to fetch one document.
type DownloadRequest struct {
	DocumentID  string
	AgencyName  string
	Title       string
	CreatedDate string
	Extension   string
	TargetDir   string
}

// Downloader fetches one document to disk and returns its local path.
type Downloader interface {
	Fetch(req DownloadRequest) (string, error)
}
