package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SizingSignal/internal/model"
	"SizingSignal/internal/recorder"
	"SizingSignal/internal/request"
	"SizingSignal/internal/strategy"
)

type fakeRunner struct {
	err  error
	reqs []request.Request
}

func (f *fakeRunner) Run(_ context.Context, req request.Request) (*model.SummaryTable, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	var fv model.FeatureVector
	fv[model.FeatureVolatilityMinusLast] = 0.2
	return &model.SummaryTable{
		Horizon:     req.Horizon,
		GeneratedAt: time.Date(2024, 5, 6, 22, 30, 0, 0, time.UTC),
		Rows: []model.InvestmentSuggestion{{
			Ticker:      req.Tickers[0],
			Features:    map[model.Horizon]model.FeatureVector{req.Horizon: fv},
			Investments: map[model.Horizon]float64{req.Horizon: 90},
		}},
	}, nil
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMessenger) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

type recordingRecorder struct {
	recorder.NoopRecorder
	snaps []*recorder.RunSnapshot
}

func (r *recordingRecorder) RecordRun(s *recorder.RunSnapshot) (string, error) {
	r.snaps = append(r.snaps, s)
	return "run-1", nil
}

type fakeHistory struct {
	runs    []recorder.RunSummary
	amounts map[string][]model.ProjectedRow
}

func (f fakeHistory) RecentRuns(int) ([]recorder.RunSummary, error) { return f.runs, nil }

func (f fakeHistory) FindRun(prefix string) (*recorder.RunSummary, error) {
	for i := range f.runs {
		if strings.HasPrefix(f.runs[i].ID, prefix) {
			return &f.runs[i], nil
		}
	}
	return nil, recorder.ErrRunNotFound
}

func (f fakeHistory) Investments(runID string, _ model.Horizon) ([]model.ProjectedRow, error) {
	return f.amounts[runID], nil
}

func newTestScheduler(r Runner, m *fakeMessenger, rec recorder.Recorder, hist HistoryReader) *Scheduler {
	wl := Watchlist{Tickers: "aapl; msft", Positions: "1000;2000", Horizon: "weekly"}
	return NewScheduler(context.Background(), r, strategy.NewEngine(strategy.DefaultWeights), m, rec, hist, wl)
}

func TestRunNow_RecordsAndNotifies(t *testing.T) {
	runner := &fakeRunner{}
	msgs := &fakeMessenger{}
	rec := &recordingRecorder{}
	s := newTestScheduler(runner, msgs, rec, nil)

	table, err := s.RunNow(context.Background(), "cron", "")
	require.NoError(t, err)
	require.Len(t, runner.reqs, 1)
	assert.Equal(t, []string{"AAPL", "MSFT"}, runner.reqs[0].Tickers)
	assert.Equal(t, []float64{1000, 2000}, runner.reqs[0].Values)
	assert.Equal(t, model.HorizonWeekly, runner.reqs[0].Horizon)

	require.Len(t, rec.snaps, 1)
	assert.Equal(t, "cron", rec.snaps[0].Trigger)
	assert.Same(t, table, rec.snaps[0].Table)
	assert.Equal(t, strategy.DefaultWeights, rec.snaps[0].Weights)

	require.Len(t, msgs.sent, 1)
	assert.Contains(t, msgs.sent[0], "Weekly Investment")
	assert.Same(t, table, s.Last())
}

func TestRunNow_Failure(t *testing.T) {
	msgs := &fakeMessenger{}
	s := newTestScheduler(&fakeRunner{err: errors.New("boom")}, msgs, nil, nil)

	_, err := s.RunNow(context.Background(), "cron", "")
	assert.Error(t, err)
	require.Len(t, msgs.sent, 1)
	assert.Contains(t, msgs.sent[0], "boom")
	assert.Nil(t, s.Last())
}

func TestRunNow_InvalidWatchlist(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestScheduler(runner, &fakeMessenger{}, nil, nil)
	s.Watchlist.Positions = "1000;abc"

	_, err := s.RunNow(context.Background(), "cron", "")
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
	assert.Empty(t, runner.reqs)
}

func TestRunNow_Busy(t *testing.T) {
	s := newTestScheduler(&fakeRunner{}, &fakeMessenger{}, nil, nil)
	s.runMu.Lock()
	defer s.runMu.Unlock()

	_, err := s.RunNow(context.Background(), "telegram", "")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestHandleCommand(t *testing.T) {
	runner := &fakeRunner{}
	msgs := &fakeMessenger{}
	hist := fakeHistory{runs: []recorder.RunSummary{{ID: "abc12345-run", Trigger: "cron", Horizon: model.HorizonDaily, Rows: 2}}}
	s := newTestScheduler(runner, msgs, nil, hist)
	ctx := context.Background()

	assert.Equal(t, "No run yet, send /run first", s.HandleCommand(ctx, "explain", "aapl"))

	assert.Empty(t, s.HandleCommand(ctx, "run", "monthly"))
	require.Len(t, runner.reqs, 1)
	assert.Equal(t, model.HorizonMonthly, runner.reqs[0].Horizon)

	out := s.HandleCommand(ctx, "explain", "aapl")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "Volatility minus last return: +0.2000 (×0.45) = +0.0900")
	assert.Contains(t, out, "Monthly Investment: 90.00")

	assert.Contains(t, s.HandleCommand(ctx, "explain", "tsla"), "not in the last run")
	assert.Contains(t, s.HandleCommand(ctx, "run", "hourly"), "unknown horizon")
	assert.Contains(t, s.HandleCommand(ctx, "history", ""), "cron: 2 rows")
	assert.Contains(t, s.HandleCommand(ctx, "start", ""), "/run")
}

func TestHandleCommand_StoredRun(t *testing.T) {
	hist := fakeHistory{
		runs: []recorder.RunSummary{{ID: "abc12345-run", Trigger: "cron", Horizon: model.HorizonWeekly, Rows: 1}},
		amounts: map[string][]model.ProjectedRow{
			"abc12345-run": {{Ticker: "NVDA", Amount: 31.25}},
		},
	}
	s := newTestScheduler(&fakeRunner{}, &fakeMessenger{}, nil, hist)
	ctx := context.Background()

	out := s.HandleCommand(ctx, "history", " abc1 ")
	assert.Contains(t, out, "Run abc12345")
	assert.Contains(t, out, "Weekly Investment")
	assert.Contains(t, out, "31.25")

	assert.Equal(t, "No run zzz", s.HandleCommand(ctx, "history", "zzz"))
}

func TestHandleCommand_HistoryUnavailable(t *testing.T) {
	s := newTestScheduler(&fakeRunner{}, &fakeMessenger{}, nil, nil)
	assert.Contains(t, s.HandleCommand(context.Background(), "history", ""), "not available")
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler(&fakeRunner{}, &fakeMessenger{}, nil, nil)
	assert.NoError(t, s.RegisterAll("0 30 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterAll("not a cron"))
}
