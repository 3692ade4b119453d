package analysis

import (
	"sync"
)

// Config is the analysis configuration a user builds up before running an
// operation. The zero value is the initial state.
type Config struct {
	CalcType       CalcType
	Operation      Operation
	Column         string
	Column1        string
	Column2        string
	FilterColumn   string
	FilterOperator FilterOperator
	FilterValue    string
	Notes          string
	Clean          bool
}

// HasFilter reports whether all three filter parts are set
func (c Config) HasFilter() bool {
	return c.FilterColumn != "" && c.FilterOperator != FilterNone && c.FilterValue != ""
}

// ActionType identifies a configuration change
type ActionType string

const (
	SetCalcType       ActionType = "SET_CALC_TYPE"
	SetOperation      ActionType = "SET_OPERATION"
	SetColumn         ActionType = "SET_COLUMN"
	SetColumn1        ActionType = "SET_COLUMN1"
	SetColumn2        ActionType = "SET_COLUMN2"
	SetFilterColumn   ActionType = "SET_FILTER_COLUMN"
	SetFilterOperator ActionType = "SET_FILTER_OPERATOR"
	SetFilterValue    ActionType = "SET_FILTER_VALUE"
	SetNotes          ActionType = "SET_NOTES"
	SetClean          ActionType = "SET_CLEAN"
)

// Action is one change applied through Reduce
type Action struct {
	Type  ActionType
	Value string
	Clean bool
}

func CalcTypeAction(c CalcType) Action     { return Action{Type: SetCalcType, Value: string(c)} }
func OperationAction(op Operation) Action  { return Action{Type: SetOperation, Value: string(op)} }
func ColumnAction(col string) Action       { return Action{Type: SetColumn, Value: col} }
func Column1Action(col string) Action      { return Action{Type: SetColumn1, Value: col} }
func Column2Action(col string) Action      { return Action{Type: SetColumn2, Value: col} }
func FilterColumnAction(col string) Action { return Action{Type: SetFilterColumn, Value: col} }
func FilterValueAction(v string) Action    { return Action{Type: SetFilterValue, Value: v} }
func NotesAction(notes string) Action      { return Action{Type: SetNotes, Value: notes} }
func CleanAction(clean bool) Action        { return Action{Type: SetClean, Clean: clean} }
func FilterOperatorAction(op FilterOperator) Action {
	return Action{Type: SetFilterOperator, Value: string(op)}
}

// Reduce applies action to state and returns the new configuration.
//
// Changing the calculation type clears the operation and every column
// selection. Changing the operation clears the column selections. Filter
// fields, notes and the clean flag never cascade. Unknown actions return
// state unchanged.
func Reduce(state Config, action Action) Config {
	switch action.Type {
	case SetCalcType:
		state.CalcType = CalcType(action.Value)
		state.Operation = ""
		state.Column, state.Column1, state.Column2 = "", "", ""
	case SetOperation:
		state.Operation = Operation(action.Value)
		state.Column, state.Column1, state.Column2 = "", "", ""
	case SetColumn:
		state.Column = action.Value
	case SetColumn1:
		state.Column1 = action.Value
	case SetColumn2:
		state.Column2 = action.Value
	case SetFilterColumn:
		state.FilterColumn = action.Value
	case SetFilterOperator:
		state.FilterOperator = FilterOperator(action.Value)
	case SetFilterValue:
		state.FilterValue = action.Value
	case SetNotes:
		state.Notes = action.Value
	case SetClean:
		state.Clean = action.Clean
	}
	return state
}

// Store serialises dispatches so every reader sees a whole configuration
type Store struct {
	mu    sync.RWMutex
	state Config
}

// NewStore creates a store seeded with initial
func NewStore(initial Config) *Store {
	return &Store{state: initial}
}

// Dispatch applies action and returns the resulting configuration
func (s *Store) Dispatch(action Action) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
	return s.state
}

// State returns the current configuration
func (s *Store) State() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
