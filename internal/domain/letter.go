package domain

import "time"

// Letter statuses.
const (
	LetterStatusGenerated = "generated"
	LetterStatusError     = "error"
)

// Letter is a generated cover letter, persisted after a successful generation.
type Letter struct {
	ID             string    `json:"id"              db:"id"`
	CVID           string    `json:"cv_id"           db:"cv_id"`
	SourceID       string    `json:"source_id"       db:"source_id"` // redundant with CV for faster queries
	JobTitle       string    `json:"job_title"       db:"job_title"`
	JobDescription string    `json:"job_description" db:"job_description"`
	JobURL         string    `json:"job_url"         db:"job_url"`
	Requirements   string    `json:"requirements"    db:"requirements"`
	Content        string    `json:"content"         db:"content"`
	ModelUsed      string    `json:"model_used"      db:"model_used"`
	GenerationMS   int64     `json:"generation_ms"   db:"generation_ms"`
	Status         string    `json:"status"          db:"status"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
}
