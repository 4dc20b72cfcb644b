package models

// TextBatchRecord is one page-extracted document persisted inside a
// batch file. SHA256 is the primary key across the union of all batches.
type TextBatchRecord struct {
	SHA256      string   `json:"sha256"`
	Pages       []string `json:"text"`
	ProcessedAt string   `json:"dateprocessed"`
}
