package ports

import (
	"context"

	"datalens/domain/core"
)

// StateStore is the small key-value state kept across workspace sessions:
// per-dataset notes and guided tour progress.
type StateStore interface {
	// LoadNotes returns the saved notes for a dataset, or core.ErrNotesNotFound
	LoadNotes(ctx context.Context, id core.DatasetID) (string, error)

	// SaveNotes replaces the notes for a dataset
	SaveNotes(ctx context.Context, id core.DatasetID, notes string) error

	// TourSeen reports whether the named tour has been completed or skipped
	TourSeen(ctx context.Context, tour string) (bool, error)

	// MarkTourSeen records that the named tour should not open by itself again
	MarkTourSeen(ctx context.Context, tour string) error

	// Close releases the underlying storage
	Close() error
}
