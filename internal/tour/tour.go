// Package tour sequences the workspace guided tour: a fixed list of anchors
// with a tooltip each, shown automatically only on a first visit.
package tour

import (
	"context"
	"sync"

	"datalens/internal"
	"datalens/ports"
)

// Name is the key the tour's first-visit flag is stored under
const Name = "analysis-workspace"

// Step points the tooltip at one workspace anchor
type Step struct {
	Anchor string
	Title  string
	Body   string
}

// Steps is the fixed tour, in display order
var Steps = []Step{
	{"dataset", "Dataset overview", "Row counts, duplicates, missing values and per-column statistics for the loaded dataset."},
	{"clean-toggle", "Raw or cleaned", "Switch between the raw data and a cleaned copy with duplicates removed and missing values filled."},
	{"calc-type", "Calculation type", "Pick descriptive, inferential or correlation analysis."},
	{"operation", "Operation", "Choose the statistic to compute. Changing it clears the selected columns."},
	{"columns", "Columns", "Only columns whose type suits the operation are offered."},
	{"filter", "Row filter", "Optionally restrict rows: choose a column, a comparison and a value."},
	{"notes", "Notes", "Notes are saved automatically for this dataset."},
	{"run", "Run analysis", "Send the analysis to the server. The button is disabled while work is pending."},
	{"chart", "Category chart", "Bar or donut view of a categorical column's distribution."},
}

// Tour is the tour's position. Index is -1 while the tour is closed.
type Tour struct {
	mu     sync.Mutex
	index  int
	store  ports.StateStore
	logger *internal.Logger
}

// New creates a closed tour. store may be nil, in which case the tour opens
// on every Begin.
func New(store ports.StateStore, logger *internal.Logger) *Tour {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Tour{index: -1, store: store, logger: logger.With("Tour")}
}

// Begin opens the tour if it has not been seen before
func (t *Tour) Begin(ctx context.Context) bool {
	if t.store != nil {
		seen, err := t.store.TourSeen(ctx, Name)
		if err != nil {
			t.logger.Warn("failed to read tour flag: %v", err)
			return false
		}
		if seen {
			return false
		}
	}
	t.Restart()
	return true
}

// Restart opens the tour at the first step regardless of the stored flag
func (t *Tour) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = 0
}

// Current returns the active step
func (t *Tour) Current() (Step, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.index < 0 {
		return Step{}, -1, false
	}
	return Steps[t.index], t.index, true
}

// Active reports whether the tour is open
func (t *Tour) Active() bool {
	_, _, ok := t.Current()
	return ok
}

// Next advances; stepping past the last anchor finishes the tour
func (t *Tour) Next(ctx context.Context) {
	t.mu.Lock()
	if t.index < 0 {
		t.mu.Unlock()
		return
	}
	t.index++
	done := t.index >= len(Steps)
	t.mu.Unlock()
	if done {
		t.finish(ctx)
	}
}

// Prev steps back, staying on the first anchor
func (t *Tour) Prev() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.index > 0 {
		t.index--
	}
}

// Skip closes the tour and marks it seen
func (t *Tour) Skip(ctx context.Context) {
	t.finish(ctx)
}

func (t *Tour) finish(ctx context.Context) {
	t.mu.Lock()
	t.index = -1
	t.mu.Unlock()
	if t.store == nil {
		return
	}
	if err := t.store.MarkTourSeen(ctx, Name); err != nil {
		t.logger.Warn("failed to store tour flag: %v", err)
	}
}
