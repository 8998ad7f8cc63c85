package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/eurometrics/internal/core"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context) (*core.Table, error) {
	args := m.Called(ctx)
	tbl, _ := args.Get(0).(*core.Table)
	return tbl, args.Error(1)
}

func f64(v float64) *float64 { return &v }

func baseTable() *core.Table {
	return core.NewTable([]string{"region", "year", "gdp_eur_millions"}, []core.IndicatorRecord{
		{Region: "FR", Year: 2019, GDP: f64(1)},
		{Region: "FR", Year: 2020, GDP: f64(2)},
		{Region: "DE", Year: 2020, GDP: f64(3)},
	})
}

func newStore(l *mockLoader) *Store {
	return NewStore(l, NewLoadLimiter(2, time.Second))
}

func TestStore_CreateLoadsOnce(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Load", mock.Anything).Return(baseTable(), nil).Once()
	store := newStore(loader)

	s := store.Create(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := s.State(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 3, st.View.Len())
		}()
	}
	wg.Wait()

	loader.AssertNumberOfCalls(t, "Load", 1)
	got, ok := store.Get(s.ID)
	assert.True(t, ok)
	assert.Same(t, s, got)
}

func TestSession_CachesFailure(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Load", mock.Anything).Return(&core.Table{}, errors.New("dial tcp: connection refused")).Once()
	s := newStore(loader).Create(context.Background())

	for i := 0; i < 3; i++ {
		st, err := s.State(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrSourceUnavailable, "foreign errors are wrapped as source failures")
		assert.True(t, st.Base.Empty())
	}
	loader.AssertNumberOfCalls(t, "Load", 1)
}

func TestSession_Reload(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Load", mock.Anything).Return(&core.Table{}, core.ErrSourceUnavailable).Once()
	loader.On("Load", mock.Anything).Return(baseTable(), nil).Once()
	s := newStore(loader).Create(context.Background())

	_, err := s.State(context.Background())
	require.Error(t, err)

	require.NoError(t, s.Reload(context.Background()))
	st, err := s.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"FR", "DE"}, st.Regions)
	loader.AssertNumberOfCalls(t, "Load", 2)
}

func TestSession_UpdateFilter(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Load", mock.Anything).Return(baseTable(), nil).Once()
	s := newStore(loader).Create(context.Background())

	st, err := s.UpdateFilter(context.Background(), func(f *core.FilterState) error {
		return f.SetRegions([]string{"DE"})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, st.View.Len())
	assert.True(t, st.Selected("DE"))
	assert.False(t, st.Selected("FR"))

	st, err = s.UpdateFilter(context.Background(), func(f *core.FilterState) error {
		return f.SetYearRange(2020, 2019)
	})
	assert.ErrorIs(t, err, core.ErrInvalidFilter)
	assert.Equal(t, core.YearRange{Lo: 2019, Hi: 2020}, st.Selection.Years)
}

func TestSessions_AreIsolated(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Load", mock.Anything).Return(baseTable(), nil).Twice()
	store := newStore(loader)

	a := store.Create(context.Background())
	b := store.Create(context.Background())
	_, err := a.UpdateFilter(context.Background(), func(f *core.FilterState) error {
		return f.SetRegions(nil)
	})
	require.NoError(t, err)

	st, err := b.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.View.Len())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_Sweep(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Load", mock.Anything).Return(baseTable(), nil)
	store := newStore(loader)

	old := store.Create(context.Background())
	old.mu.Lock()
	old.lastSeen = time.Now().Add(-time.Hour)
	old.mu.Unlock()
	fresh := store.Create(context.Background())

	store.sweepOnce(time.Now(), 30*time.Minute)

	_, ok := store.Get(old.ID)
	assert.False(t, ok)
	_, ok = store.Get(fresh.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestStore_SweepDoesNotBlockDuringLoad(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Load", mock.Anything).Return(baseTable(), nil).Once()
	store := newStore(loader)
	s := store.Create(context.Background())

	loading := make(chan struct{})
	release := make(chan struct{})
	loader.On("Load", mock.Anything).Return(baseTable(), nil).Run(func(mock.Arguments) {
		close(loading)
		<-release
	}).Once()

	reloaded := make(chan error, 1)
	go func() { reloaded <- s.Reload(context.Background()) }()
	<-loading

	swept := make(chan int, 1)
	go func() { swept <- store.Sweep(time.Now().Add(time.Hour)) }()
	time.Sleep(20 * time.Millisecond) // let Sweep reach the session lock

	// Sweep waits on the loading session; lookups must not wait with it.
	got := make(chan bool, 1)
	go func() {
		_, ok := store.Get(s.ID)
		got <- ok
	}()
	select {
	case ok := <-got:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Get blocked behind Sweep")
	}
	assert.Equal(t, 1, store.Len())

	close(release)
	require.NoError(t, <-reloaded)
	assert.Equal(t, 1, <-swept)
	assert.Equal(t, 0, store.Len())
}

func TestLoadLimiter(t *testing.T) {
	limiter := NewLoadLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))
	assert.Equal(t, 1, limiter.ActiveCount())
	assert.Equal(t, 0, limiter.Available())

	err := limiter.Acquire(ctx)
	assert.ErrorIs(t, err, ErrTooManyLoads)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, limiter.Acquire(cancelled), context.Canceled)

	limiter.Release()
	assert.Equal(t, 1, limiter.Available())

	drainCtx, stop := context.WithTimeout(ctx, time.Second)
	defer stop()
	assert.NoError(t, limiter.WaitForDrain(drainCtx))
}

func TestLoadLimiter_Defaults(t *testing.T) {
	limiter := NewLoadLimiter(0, 0)
	assert.Equal(t, DefaultMaxConcurrentLoads, limiter.Available())
}

func TestSession_LimiterTimeoutIsNotCached(t *testing.T) {
	loader := &mockLoader{}
	loader.On("Load", mock.Anything).Return(baseTable(), nil).Once()
	limiter := NewLoadLimiter(1, 10*time.Millisecond)
	require.NoError(t, limiter.Acquire(context.Background()))

	s := NewStore(loader, limiter).Create(context.Background())
	_, err := s.State(context.Background())
	assert.ErrorIs(t, err, ErrTooManyLoads)

	limiter.Release()
	st, err := s.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Base.Len())
}
