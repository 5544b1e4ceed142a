// Package storage defines the persistence interface for generation history.
package storage

import (
	"context"

	"github.com/hyperjump/tategaki/internal/models"
)

// Storage defines generation history operations.
type Storage interface {
	// RecordGeneration inserts rec and sets its ID (and CreatedAt when zero).
	RecordGeneration(ctx context.Context, rec *models.GenerationRecord) error
	// ListGenerations returns records newest first.
	ListGenerations(ctx context.Context, offset, limit int) ([]*models.GenerationRecord, error)
	// ListBySource returns the records of one source, newest first.
	ListBySource(ctx context.Context, sourceID string, limit int) ([]*models.GenerationRecord, error)
	// CountGenerations counts records with the given status; empty status counts all.
	CountGenerations(ctx context.Context, status string) (int64, error)

	Close() error
}
