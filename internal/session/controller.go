// Package session drives one dataset through the analysis workspace: initial
// load, raw/clean toggling, error and access states, the chart context and
// notes restore.
package session

import (
	"context"
	"sync"

	"datalens/domain/analysis"
	"datalens/domain/core"
	"datalens/domain/dataset"
	"datalens/internal"
	"datalens/internal/chart"
	"datalens/internal/errors"
	"datalens/ports"
)

// User-facing messages
const (
	MsgLoadFailed   = "Could not load dataset"
	MsgToggleFailed = "Failed to update dataset cleaning"
	MsgBusy         = "Dataset is still loading"
)

// ChartType selects how a categorical distribution is drawn
type ChartType = chart.Kind

const (
	ChartBar = chart.Bar
	ChartPie = chart.Pie
)

// ChartContext is the categorical chart selection. ActiveCategory is empty
// when no category is selected; otherwise it names a key of the current
// overview's categorical stats.
type ChartContext struct {
	ActiveCategory string
	ChartType      ChartType
}

// State is a snapshot of the controller. Snapshots are taken under the
// controller lock, so Dataset and Clean always belong together.
type State struct {
	DatasetID    core.DatasetID
	Loading      bool
	Cleaning     bool
	Err          string
	AccessDenied bool
	Dataset      *dataset.Overview
	Clean        bool
	Chart        ChartContext
	Generation   uint64
}

// Busy reports whether a fetch is pending; submit and toggle are disabled
func (s State) Busy() bool {
	return s.Loading || s.Cleaning
}

// OnDatasetLoaded derives the chart context for a newly arrived overview.
// The active category becomes the first categorical column, or none when the
// overview has no categorical stats. The chart type carries over.
func OnDatasetLoaded(ov *dataset.Overview, prev ChartContext) ChartContext {
	next := ChartContext{ChartType: prev.ChartType}
	if next.ChartType == "" {
		next.ChartType = ChartBar
	}
	if cols := ov.CategoricalColumns(); len(cols) > 0 {
		next.ActiveCategory = cols[0]
	}
	return next
}

// Controller owns the dataset overview for one workspace
type Controller struct {
	mu      sync.Mutex
	state   State
	gen     uint64
	gateway ports.DatasetGateway
	store   ports.StateStore
	config  *analysis.Store
	logger  *internal.Logger
}

// NewController creates a controller for dataset id. store may be nil, in
// which case notes are neither restored nor persisted.
func NewController(id core.DatasetID, gateway ports.DatasetGateway, store ports.StateStore, config *analysis.Store, logger *internal.Logger) *Controller {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Controller{
		state:   State{DatasetID: id, Clean: config.State().Clean, Chart: ChartContext{ChartType: ChartBar}},
		gateway: gateway,
		store:   store,
		config:  config,
		logger:  logger.With("Session"),
	}
}

// State returns the current snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a load or toggle is in flight
func (c *Controller) Busy() bool {
	return c.State().Busy()
}

// Load fetches the overview with the configuration's current clean flag and
// restores saved notes unless notes were already entered. A 403 moves the controller into the access-denied
// state; any other failure sets "Could not load dataset".
func (c *Controller) Load(ctx context.Context) (State, error) {
	c.mu.Lock()
	gen := c.begin()
	c.state.Loading = true
	c.state.Cleaning = false
	c.state.AccessDenied = false
	id := c.state.DatasetID
	normalize := c.config.State().Clean
	c.mu.Unlock()

	c.logger.Debug("loading dataset %s (normalize=%t, generation %d)", id, normalize, gen)
	ov, err := c.gateway.Overview(ctx, id, normalize)

	var notes string
	var haveNotes bool
	if err == nil && c.store != nil {
		saved, nerr := c.store.LoadNotes(ctx, id)
		switch {
		case nerr == nil:
			notes, haveNotes = saved, true
		case !core.IsNotFoundError(nerr):
			c.logger.Warn("failed to restore notes for dataset %s: %v", id, nerr)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("dropping stale load response (generation %d, current %d)", gen, c.gen)
		return c.state, nil
	}
	c.state.Loading = false

	if err != nil {
		if errors.HasCode(err, errors.CodeAccessDenied) {
			c.state.AccessDenied = true
			c.state.Err = ""
			c.logger.Info("access denied for dataset %s", id)
			return c.state, err
		}
		c.state.Err = MsgLoadFailed
		c.logger.Error("failed to load dataset %s: %v", id, err)
		return c.state, errors.FetchFailed(MsgLoadFailed, err)
	}

	c.commit(ov)
	// text typed while the load was pending wins over the saved notes
	if haveNotes && c.config.State().Notes == "" {
		c.config.Dispatch(analysis.NotesAction(notes))
	}
	c.logger.Info("loaded dataset %s (%d rows, normalized=%t)", id, ov.Stats.TotalRows, ov.Normalized)
	return c.state, nil
}

// ToggleClean re-fetches the dataset with the flipped clean flag. It is
// refused while a load or toggle is pending. On failure the previous dataset
// stays displayed.
func (c *Controller) ToggleClean(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.state.Busy() {
		st := c.state
		c.mu.Unlock()
		return st, errors.Busy(MsgBusy)
	}
	gen := c.begin()
	c.state.Cleaning = true
	id := c.state.DatasetID
	target := !c.state.Clean
	c.mu.Unlock()

	c.logger.Debug("switching dataset %s to normalize=%t (generation %d)", id, target, gen)
	ov, err := c.gateway.Overview(ctx, id, target)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("dropping stale toggle response (generation %d, current %d)", gen, c.gen)
		return c.state, nil
	}
	c.state.Cleaning = false

	if err != nil {
		c.state.Err = MsgToggleFailed
		c.logger.Error("failed to switch dataset %s cleaning: %v", id, err)
		return c.state, errors.FetchFailed(MsgToggleFailed, err)
	}

	c.commit(ov)
	return c.state, nil
}

// SetActiveCategory selects the category to chart. The empty string clears
// the selection; any other value must be a categorical column of the current
// overview.
func (c *Controller) SetActiveCategory(column string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if column != "" && !c.state.Dataset.HasCategory(column) {
		return c.state, errors.Wrapf(errors.NotFound("category"), "no categorical stats for column %q", column)
	}
	c.state.Chart.ActiveCategory = column
	return c.state, nil
}

// SetChartType switches between bar and pie
func (c *Controller) SetChartType(t ChartType) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t != ChartBar && t != ChartPie {
		return c.state, errors.InvalidInput("unknown chart type: " + string(t))
	}
	c.state.Chart.ChartType = t
	return c.state, nil
}

// ActiveDistribution returns the distribution to chart, if any
func (c *Controller) ActiveDistribution() (dataset.Distribution, ChartType, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Chart.ActiveCategory == "" {
		return dataset.Distribution{}, c.state.Chart.ChartType, false
	}
	d, ok := c.state.Dataset.Distribution(c.state.Chart.ActiveCategory)
	return d, c.state.Chart.ChartType, ok && d.Len() > 0
}

// PersistNotes saves settled notes text for the dataset
func (c *Controller) PersistNotes(ctx context.Context, notes string) error {
	if c.store == nil {
		return nil
	}
	id := c.State().DatasetID
	if err := c.store.SaveNotes(ctx, id, notes); err != nil {
		c.logger.Warn("failed to save notes for dataset %s: %v", id, err)
		return errors.Wrap(err, "failed to save notes")
	}
	return nil
}

// DismissError clears the visible error message
func (c *Controller) DismissError() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Err = ""
	return c.state
}

// begin starts a new fetch generation; caller holds mu
func (c *Controller) begin() uint64 {
	c.gen++
	c.state.Generation = c.gen
	return c.gen
}

// commit installs a new overview with its clean flag and chart context in one
// step; caller holds mu
func (c *Controller) commit(ov *dataset.Overview) {
	c.state.Dataset = ov
	c.state.Err = ""
	c.state.AccessDenied = false
	c.state.Clean = ov.Normalized
	c.state.Chart = OnDatasetLoaded(ov, c.state.Chart)
	c.config.Dispatch(analysis.CleanAction(ov.Normalized))
}
