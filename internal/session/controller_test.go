package session

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"datalens/adapters/memory"
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

func regionOverview(normalized bool) *dataset.Overview {
	return &dataset.Overview{
		DatasetID:  "1",
		Title:      "sales",
		Schema:     dataset.Schema{{Name: "region", Type: dataset.TypeObject}, {Name: "units", Type: dataset.TypeInt64}},
		Normalized: normalized,
		Stats: dataset.Stats{
			TotalRows: 15,
			Categorical: []dataset.Distribution{
				{Column: "region", Buckets: []dataset.Bucket{{Label: "north", Count: 10}, {Label: "south", Count: 5}}},
				{Column: "channel", Buckets: []dataset.Bucket{{Label: "web", Count: 15}}},
			},
		},
	}
}

func newController(gw *MockGateway) (*Controller, *analysis.Store, *memory.StateStore) {
	store := memory.NewStateStore()
	cfg := analysis.NewStore(analysis.Config{})
	return NewController("1", gw, store, cfg, nil), cfg, store
}

func TestLoadSuccessDefaultsActiveCategoryAndSyncsClean(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(regionOverview(true), nil).Once()
	c, cfg, _ := newController(gw)

	st, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.False(t, st.Loading)
	assert.Empty(t, st.Err)
	assert.Equal(t, "region", st.Chart.ActiveCategory)
	assert.Equal(t, ChartBar, st.Chart.ChartType)
	assert.True(t, st.Clean)
	assert.True(t, cfg.State().Clean)
	gw.AssertExpectations(t)
}

func TestLoadRestoresNotes(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(regionOverview(false), nil)
	c, cfg, store := newController(gw)
	require.NoError(t, store.SaveNotes(context.Background(), "1", "seasonal dip in Q3"))

	_, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "seasonal dip in Q3", cfg.State().Notes)
}

func TestLoadKeepsNotesEnteredWhileLoading(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(regionOverview(false), nil)
	c, cfg, store := newController(gw)
	require.NoError(t, store.SaveNotes(context.Background(), "1", "seasonal dip in Q3"))
	cfg.Dispatch(analysis.NotesAction("north is flat"))

	_, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "north is flat", cfg.State().Notes)
}

func TestLoadForbiddenIsAccessDenied(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(nil, errors.AccessDenied("no"))
	c, _, _ := newController(gw)

	st, err := c.Load(context.Background())
	require.Error(t, err)
	assert.True(t, st.AccessDenied)
	assert.Empty(t, st.Err)
	assert.Nil(t, st.Dataset)
	assert.False(t, st.Loading)
}

func TestLoadFailureSetsMessage(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(nil, fmt.Errorf("connection refused"))
	c, _, _ := newController(gw)

	st, err := c.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgLoadFailed, st.Err)
	assert.Equal(t, MsgLoadFailed, errors.UserMessage(err))
	assert.Nil(t, st.Dataset)
	assert.False(t, st.AccessDenied)

	assert.Empty(t, c.DismissError().Err)
}

func TestLoadWithoutCategoricalStatsHasNoActiveCategory(t *testing.T) {
	ov := regionOverview(false)
	ov.Stats.Categorical = nil
	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(ov, nil)
	c, _, _ := newController(gw)

	st, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Chart.ActiveCategory)

	_, _, ok := c.ActiveDistribution()
	assert.False(t, ok)
}

func TestToggleCleanReplacesDatasetAndFlag(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(regionOverview(false), nil).Once()
	cleaned := regionOverview(true)
	cleaned.Stats.TotalRows = 13
	gw.On("Overview", mock.Anything, core.DatasetID("1"), true).Return(cleaned, nil).Once()
	c, cfg, _ := newController(gw)

	_, err := c.Load(context.Background())
	require.NoError(t, err)
	_, err = c.SetActiveCategory("channel")
	require.NoError(t, err)

	st, err := c.ToggleClean(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Clean)
	assert.True(t, cfg.State().Clean)
	assert.Equal(t, 13, st.Dataset.Stats.TotalRows)
	// a new payload resets the active category to its first key
	assert.Equal(t, "region", st.Chart.ActiveCategory)
	gw.AssertExpectations(t)
}

func TestToggleFailureKeepsPreviousDataset(t *testing.T) {
	gw := &MockGateway{}
	raw := regionOverview(false)
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(raw, nil).Once()
	gw.On("Overview", mock.Anything, core.DatasetID("1"), true).Return(nil, fmt.Errorf("502")).Once()
	c, cfg, _ := newController(gw)

	_, err := c.Load(context.Background())
	require.NoError(t, err)

	st, err := c.ToggleClean(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgToggleFailed, st.Err)
	assert.Same(t, raw, st.Dataset)
	assert.False(t, st.Clean)
	assert.False(t, cfg.State().Clean)
	assert.False(t, st.Cleaning)
}

func TestToggleWhileCleaningIsRefusedAndCommitIsWhole(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(regionOverview(false), nil).Once()
	release := make(chan struct{})
	gw.On("Overview", mock.Anything, core.DatasetID("1"), true).
		Run(func(mock.Arguments) { <-release }).
		Return(regionOverview(true), nil).Once()
	c, _, _ := newController(gw)

	_, err := c.Load(context.Background())
	require.NoError(t, err)

	done := make(chan State)
	go func() {
		st, _ := c.ToggleClean(context.Background())
		done <- st
	}()
	require.Eventually(t, func() bool { return c.State().Cleaning }, time.Second, time.Millisecond)

	// controls stay disabled and the visible state is still entirely the old one
	assert.True(t, c.Busy())
	st, err := c.ToggleClean(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeBusy, errors.GetCode(err))
	assert.False(t, st.Clean)
	assert.False(t, st.Dataset.Normalized)

	close(release)
	final := <-done
	assert.False(t, final.Busy())
	assert.True(t, final.Clean)
	assert.True(t, final.Dataset.Normalized)
	gw.AssertExpectations(t)
}

func TestStaleLoadResponseIsDropped(t *testing.T) {
	gw := &MockGateway{}
	slow := make(chan struct{})
	stale := regionOverview(false)
	stale.Title = "stale"
	fresh := regionOverview(false)
	fresh.Title = "fresh"

	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).
		Run(func(mock.Arguments) { <-slow }).
		Return(stale, nil).Once()
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(fresh, nil).Once()
	c, _, _ := newController(gw)

	first := make(chan State)
	go func() {
		st, _ := c.Load(context.Background())
		first <- st
	}()
	require.Eventually(t, func() bool { return c.State().Generation == 1 }, time.Second, time.Millisecond)
	// let the first call reach the blocking mock before issuing the second
	time.Sleep(20 * time.Millisecond)

	st, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", st.Dataset.Title)

	close(slow)
	<-first
	assert.Equal(t, "fresh", c.State().Dataset.Title)
}

func TestSetActiveCategoryMustReferenceOverview(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(regionOverview(false), nil)
	c, _, _ := newController(gw)

	_, err := c.SetActiveCategory("region")
	assert.Error(t, err, "no dataset loaded yet")

	_, err = c.Load(context.Background())
	require.NoError(t, err)

	_, err = c.SetActiveCategory("units")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	st, err := c.SetActiveCategory("")
	require.NoError(t, err)
	assert.Empty(t, st.Chart.ActiveCategory)
}

func TestScenarioActiveCategoryPieAngles(t *testing.T) {
	ov, err := dataset.ParseOverview([]byte(`{"dataset_id": 1, "schema": {"region": "object"},
		"overview": {"categorical_stats": {"region": {"north": 10, "south": 5}}}, "normalized": false}`))
	require.NoError(t, err)

	gw := &MockGateway{}
	gw.On("Overview", mock.Anything, core.DatasetID("1"), false).Return(ov, nil)
	c, _, _ := newController(gw)

	st, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "region", st.Chart.ActiveCategory)

	_, err = c.SetChartType(ChartPie)
	require.NoError(t, err)
	_, err = c.SetChartType("radar")
	assert.Error(t, err)

	dist, kind, ok := c.ActiveDistribution()
	require.True(t, ok)
	assert.Equal(t, ChartPie, kind)

	// slice angles follow the counts in data order
	total := dist.Total()
	assert.InDelta(t, 2*math.Pi*10/15, 2*math.Pi*dist.Buckets[0].Count/total, 1e-9)
	assert.InDelta(t, 2*math.Pi*5/15, 2*math.Pi*dist.Buckets[1].Count/total, 1e-9)
}

func TestPersistNotes(t *testing.T) {
	gw := &MockGateway{}
	c, _, store := newController(gw)

	require.NoError(t, c.PersistNotes(context.Background(), "draft"))
	notes, err := store.LoadNotes(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "draft", notes)

	bare := NewController("2", gw, nil, analysis.NewStore(analysis.Config{}), nil)
	assert.NoError(t, bare.PersistNotes(context.Background(), "ignored"))
}
