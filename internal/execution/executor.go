// Package execution validates and submits analysis requests and holds the
// result view state.
package execution

import (
	"context"
	"sync"

	"datalens/domain/analysis"
	"datalens/domain/core"
	"datalens/internal"
	"datalens/internal/errors"
	"datalens/ports"
)

// User-facing messages
const (
	MsgAnalysisFailed = "Analysis failed"
	MsgPending        = "An analysis is already running"
	MsgDatasetBusy    = "Dataset is still loading"
)

// View is the workspace panel currently shown
type View int

const (
	ViewConfigure View = iota
	ViewResults
)

func (v View) String() string {
	if v == ViewResults {
		return "results"
	}
	return "configure"
}

// Gate disables submission while it reports busy, e.g. during a clean toggle
type Gate interface {
	Busy() bool
}

// State is a snapshot of the executor
type State struct {
	Pending bool
	Err     string
	Result  analysis.Result
	Request *analysis.Request
	View    View
}

// Executor runs at most one analysis at a time
type Executor struct {
	mu      sync.Mutex
	state   State
	gen     uint64
	gateway ports.DatasetGateway
	gate    Gate
	logger  *internal.Logger
}

// NewExecutor creates an executor. gate may be nil.
func NewExecutor(gateway ports.DatasetGateway, gate Gate, logger *internal.Logger) *Executor {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Executor{
		gateway: gateway,
		gate:    gate,
		logger:  logger.With("Executor"),
	}
}

// State returns the current snapshot
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CanSubmit reports whether the run control is enabled
func (e *Executor) CanSubmit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.state.Pending && (e.gate == nil || !e.gate.Busy())
}

// Submit validates cfg and runs it against dataset id. filterValue is the
// debounced filter value. Validation failures never reach the backend and
// leave the previous result in place. A backend error message is surfaced
// verbatim, otherwise "Analysis failed". On success the view switches to
// results.
func (e *Executor) Submit(ctx context.Context, id core.DatasetID, cfg analysis.Config, filterValue string) (State, error) {
	e.mu.Lock()
	if e.state.Pending {
		st := e.state
		e.mu.Unlock()
		return st, errors.Busy(MsgPending)
	}
	if e.gate != nil && e.gate.Busy() {
		st := e.state
		e.mu.Unlock()
		return st, errors.Busy(MsgDatasetBusy)
	}

	req, err := analysis.BuildRequest(cfg, filterValue)
	if err != nil {
		err = errors.WithCode(errors.CodeValidationError, err)
		e.state.Err = errors.UserMessage(err)
		st := e.state
		e.mu.Unlock()
		return st, err
	}

	e.gen++
	gen := e.gen
	e.state.Pending = true
	e.state.Err = ""
	e.state.Result = nil
	e.state.Request = &req
	e.mu.Unlock()

	e.logger.Info("running %s on dataset %s (normalize=%t, filtered=%t)", req.Operation, id, req.Normalize, req.Filter != nil)
	res, err := e.gateway.Perform(ctx, id, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		e.logger.Debug("discarding %s result from a reset workspace", req.Operation)
		return e.state, nil
	}
	e.state.Pending = false

	if err != nil {
		msg := MsgAnalysisFailed
		if errors.HasCode(err, errors.CodeAnalysisFailed) {
			if m := errors.UserMessage(err); m != "" {
				msg = m
			}
		}
		e.state.Err = msg
		e.logger.Warn("%s failed: %v", req.Operation, err)
		return e.state, errors.AnalysisFailed(msg, err)
	}

	e.state.Result = res
	e.state.View = ViewResults
	return e.state, nil
}

// BackToConfigure returns to the configuration panel, keeping the result
func (e *Executor) BackToConfigure() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.View = ViewConfigure
	return e.state
}

// Reset drops all result state; an execution still in flight is discarded
// when it completes.
func (e *Executor) Reset() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.state = State{}
	return e.state
}
