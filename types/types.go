package types

// ImageRecord holds the metadata extracted for a single processed image.
// Records are immutable once written; re-ingesting the same identity
// supersedes the stored record instead of mutating it.
type ImageRecord struct {
	Identity    string            `json:"identity"`
	SizeKB      float64           `json:"size_kb"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Format      string            `json:"format"`
	Mode        string            `json:"mode"`
	ExtractedAt string            `json:"extracted_at"`
	Exif        map[string]string `json:"exif,omitempty"`
}

// Result sources for combined search.
const (
	SourceText     = "text"
	SourceMetadata = "metadata"
)

// SearchResult is a single ranked hit. Transient, never persisted.
type SearchResult struct {
	Identity string  `json:"identity"`
	Score    float64 `json:"score"`
	Source   string  `json:"source"`
}

// LedgerStats is a read-only snapshot of ingestion ledger counters.
type LedgerStats struct {
	TotalAccepted   int `json:"total_accepted"`
	TotalDuplicates int `json:"total_duplicates"`
}

// ItemFailure records a single per-item failure inside a batch.
type ItemFailure struct {
	Identity string `json:"identity"`
	Reason   string `json:"reason"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	RunID      string        `json:"run_id"`
	Accepted   int           `json:"accepted"`
	Duplicates int           `json:"duplicates"`
	Failed     []ItemFailure `json:"failed,omitempty"`
}

// EnrichReport summarizes the metadata/OCR/embedding stage of a run.
type EnrichReport struct {
	Described int           `json:"described"`
	Texts     int           `json:"texts"`
	Embedded  int           `json:"embedded"`
	Failed    []ItemFailure `json:"failed,omitempty"`
}
