package domain

import "time"

// CV statuses.
const (
	CVStatusUploaded  = "uploaded"
	CVStatusProcessed = "processed"
	CVStatusError     = "error"
)

// CV represents an uploaded résumé document. The heavy content lives in the
// vector index under SourceID; this record only tracks ownership and metadata.
type CV struct {
	ID               string    `json:"id"                db:"id"`
	UserID           string    `json:"user_id"           db:"user_id"`
	SourceID         string    `json:"source_id"         db:"source_id"`
	Filename         string    `json:"filename"          db:"filename"`
	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	FileSize         int64     `json:"file_size"         db:"file_size"`
	ContentType      string    `json:"content_type"      db:"content_type"`
	ChunkCount       int       `json:"chunk_count"       db:"chunk_count"`
	Status           string    `json:"status"            db:"status"`
	CreatedAt        time.Time `json:"created_at"        db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"        db:"updated_at"`
}

// CVOption is the short form used to populate selection dropdowns.
type CVOption struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	Label    string `json:"label"`
}
