// Package models defines data structures shared across the harvest pipeline.
package models

// Download provenance values stored in the download_status column.
const (
	StatusDownloaded          = "downloaded"
	StatusBackfilledPreflight = "backfilled_preflight"
	StatusBackfilledExisting  = "backfilled_existing"
)

// Agency is one entry from the remote directory listing.
type Agency struct {
	AgencyID   string `json:"agencyId"`
	AgencyName string `json:"AgencyName"`
}

// ContentItem is one document reference in an agency's content listing.
// Field names mirror the upstream API payload.
type ContentItem struct {
	ContentDocumentID string `json:"ContentDocumentId"`
	Title             string `json:"Title"`
	CreatedDate       string `json:"CreatedDate"`
	FileExtension     string `json:"FileExtension"`
	ContentBodyID     string `json:"ContentBodyId"`
	ID                string `json:"Id"`
}
