package models

import "time"

// Generation status values stored in history.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// GenerationRecord is one row of generation history.
type GenerationRecord struct {
	ID         int64     `json:"id" db:"id"`
	SourceID   string    `json:"source_id" db:"source_id"`
	Title      string    `json:"title" db:"title"`
	Author     string    `json:"author,omitempty" db:"author"`
	Identifier string    `json:"identifier,omitempty" db:"identifier"`
	Filename   string    `json:"filename,omitempty" db:"filename"`
	SizeBytes  int64     `json:"size_bytes" db:"size_bytes"`
	Digest     string    `json:"digest,omitempty" db:"digest"`
	Status     string    `json:"status" db:"status"`
	ErrorCode  ErrorCode `json:"error_code,omitempty" db:"error_code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
