package execution

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"datalens/domain/analysis"
	"datalens/domain/core"
	"datalens/domain/dataset"
	"datalens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Overview(ctx context.Context, id core.DatasetID, normalize bool) (*dataset.Overview, error) {
	args := m.Called(ctx, id, normalize)
	ov, _ := args.Get(0).(*dataset.Overview)
	return ov, args.Error(1)
}

func (m *MockGateway) Perform(ctx context.Context, id core.DatasetID, req analysis.Request) (analysis.Result, error) {
	args := m.Called(ctx, id, req)
	res, _ := args.Get(0).(analysis.Result)
	return res, args.Error(1)
}

func (m *MockGateway) Download(ctx context.Context, id core.DatasetID, columns []string, normalize bool) ([]byte, error) {
	args := m.Called(ctx, id, columns, normalize)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type flagGate struct{ busy atomic.Bool }

func (g *flagGate) Busy() bool { return g.busy.Load() }

func TestSubmitValidationNeverCallsBackend(t *testing.T) {
	gw := &MockGateway{}
	ex := NewExecutor(gw, nil, nil)

	st, err := ex.Submit(context.Background(), "1", analysis.Config{Operation: analysis.OpTTest, Column1: "a"}, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
	assert.ErrorIs(t, err, analysis.ErrIncomplete)
	assert.Equal(t, "Please select two columns", st.Err)
	assert.False(t, st.Pending)

	st, _ = ex.Submit(context.Background(), "1", analysis.Config{Operation: analysis.OpMedian}, "")
	assert.Equal(t, "Please select a column", st.Err)

	gw.AssertNotCalled(t, "Perform", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitSuccessSwitchesToResults(t *testing.T) {
	gw := &MockGateway{}
	want := analysis.Descriptive{Op: analysis.OpMean, Value: 42}
	gw.On("Perform", mock.Anything, core.DatasetID("1"), mock.MatchedBy(func(r analysis.Request) bool {
		return r.Column == "age" && r.Normalize && r.Filter != nil && r.Filter.Value == "north"
	})).Return(want, nil).Once()
	ex := NewExecutor(gw, nil, nil)

	cfg := analysis.Config{
		CalcType: analysis.CalcDescriptive, Operation: analysis.OpMean, Column: "age", Clean: true,
		FilterColumn: "region", FilterOperator: analysis.FilterEq, FilterValue: "nor",
	}
	st, err := ex.Submit(context.Background(), "1", cfg, "north")
	require.NoError(t, err)

	assert.Equal(t, ViewResults, st.View)
	assert.Equal(t, want, st.Result)
	assert.Empty(t, st.Err)
	require.NotNil(t, st.Request)
	assert.Equal(t, analysis.OpMean, st.Request.Operation)

	st = ex.BackToConfigure()
	assert.Equal(t, ViewConfigure, st.View)
	assert.Equal(t, want, st.Result)
	gw.AssertExpectations(t)
}

func TestSubmitUnknownColumnSurfacesBackendMessage(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Perform", mock.Anything, core.DatasetID("1"), mock.Anything).
		Return(nil, errors.AnalysisFailed("Column 'age' not found in dataset", fmt.Errorf("status 400"))).Once()
	ex := NewExecutor(gw, nil, nil)

	// the resolver would never offer "age", but validation only checks presence
	cfg := analysis.Config{CalcType: analysis.CalcDescriptive, Operation: analysis.OpMean, Column: "age"}
	st, err := ex.Submit(context.Background(), "1", cfg, "")
	require.Error(t, err)
	assert.Equal(t, "Column 'age' not found in dataset", st.Err)
	assert.Equal(t, ViewConfigure, st.View)
	gw.AssertExpectations(t)
}

func TestSubmitTransportFailureIsGeneric(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Perform", mock.Anything, mock.Anything, mock.Anything).Return(nil, fmt.Errorf("dial tcp: refused"))
	ex := NewExecutor(gw, nil, nil)

	st, err := ex.Submit(context.Background(), "1", analysis.Config{Operation: analysis.OpMode, Column: "x"}, "")
	require.Error(t, err)
	assert.Equal(t, MsgAnalysisFailed, st.Err)
	assert.Equal(t, errors.CodeAnalysisFailed, errors.GetCode(err))
}

func TestSubmitRefusedWhileGateBusy(t *testing.T) {
	gw := &MockGateway{}
	gate := &flagGate{}
	gate.busy.Store(true)
	ex := NewExecutor(gw, gate, nil)

	assert.False(t, ex.CanSubmit())
	_, err := ex.Submit(context.Background(), "1", analysis.Config{Operation: analysis.OpMean, Column: "a"}, "")
	assert.Equal(t, errors.CodeBusy, errors.GetCode(err))
	gw.AssertNotCalled(t, "Perform", mock.Anything, mock.Anything, mock.Anything)

	gate.busy.Store(false)
	assert.True(t, ex.CanSubmit())
}

func TestSingleInFlightExecution(t *testing.T) {
	gw := &MockGateway{}
	release := make(chan struct{})
	gw.On("Perform", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(analysis.Mode{Values: []string{"north"}}, nil).Once()
	ex := NewExecutor(gw, nil, nil)
	cfg := analysis.Config{Operation: analysis.OpMode, Column: "region"}

	done := make(chan State)
	go func() {
		st, _ := ex.Submit(context.Background(), "1", cfg, "")
		done <- st
	}()
	require.Eventually(t, func() bool { return ex.State().Pending }, time.Second, time.Millisecond)
	assert.False(t, ex.CanSubmit())

	_, err := ex.Submit(context.Background(), "1", cfg, "")
	assert.Equal(t, errors.CodeBusy, errors.GetCode(err))

	close(release)
	st := <-done
	assert.False(t, st.Pending)
	assert.Equal(t, ViewResults, st.View)
	gw.AssertNumberOfCalls(t, "Perform", 1)
}

func TestResetDiscardsInFlightResult(t *testing.T) {
	gw := &MockGateway{}
	release := make(chan struct{})
	gw.On("Perform", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(analysis.TTest{TStatistic: 1}, nil).Once()
	ex := NewExecutor(gw, nil, nil)

	done := make(chan struct{})
	go func() {
		ex.Submit(context.Background(), "1", analysis.Config{Operation: analysis.OpTTest, Column1: "a", Column2: "b"}, "")
		close(done)
	}()
	require.Eventually(t, func() bool { return ex.State().Pending }, time.Second, time.Millisecond)

	ex.Reset()
	close(release)
	<-done

	st := ex.State()
	assert.Nil(t, st.Result)
	assert.Equal(t, ViewConfigure, st.View)
	assert.False(t, st.Pending)
}

func TestValidationErrorKeepsPreviousResult(t *testing.T) {
	gw := &MockGateway{}
	prev := analysis.Descriptive{Op: analysis.OpMedian, Value: 3}
	gw.On("Perform", mock.Anything, mock.Anything, mock.Anything).Return(prev, nil).Once()
	ex := NewExecutor(gw, nil, nil)

	_, err := ex.Submit(context.Background(), "1", analysis.Config{Operation: analysis.OpMedian, Column: "a"}, "")
	require.NoError(t, err)

	st, err := ex.Submit(context.Background(), "1", analysis.Config{Operation: analysis.OpPearson}, "")
	require.Error(t, err)
	assert.Equal(t, prev, st.Result)
	assert.Equal(t, "Please select two columns", st.Err)
}
