package memory

import (
	"context"
	"testing"

	"datalens/domain/core"
	"datalens/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.StateStore = (*StateStore)(nil)

func TestNotesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStateStore()

	_, err := s.LoadNotes(ctx, "1")
	assert.True(t, core.IsNotFoundError(err))

	require.NoError(t, s.SaveNotes(ctx, "1", "check outliers"))
	notes, err := s.LoadNotes(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "check outliers", notes)
}

func TestTourFlags(t *testing.T) {
	ctx := context.Background()
	s := NewStateStore()

	seen, err := s.TourSeen(ctx, "workspace")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.MarkTourSeen(ctx, "workspace"))
	seen, _ = s.TourSeen(ctx, "workspace")
	assert.True(t, seen)
	assert.NoError(t, s.Close())
}
