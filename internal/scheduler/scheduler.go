package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"SizingSignal/internal/model"
	"SizingSignal/internal/notifier"
	"SizingSignal/internal/recorder"
	"SizingSignal/internal/request"
	"SizingSignal/internal/strategy"
)

// Runner produces a summary table for a request.
type Runner interface {
	Run(ctx context.Context, req request.Request) (*model.SummaryTable, error)
}

// Messenger delivers formatted messages.
type Messenger interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// HistoryReader lists stored runs and reads back their amounts.
type HistoryReader interface {
	RecentRuns(limit int) ([]recorder.RunSummary, error)
	FindRun(prefix string) (*recorder.RunSummary, error)
	Investments(runID string, h model.Horizon) ([]model.ProjectedRow, error)
}

// Watchlist is the batch a scheduled run sizes, in text input form.
type Watchlist struct {
	Tickers   string
	Positions string
	Horizon   string
}

// Scheduler runs the watchlist on a cron schedule and on command.
type Scheduler struct {
	Cron       *cron.Cron
	Runner     Runner
	Engine     *strategy.Engine
	Notifier   Messenger
	Recorder   recorder.Recorder
	History    HistoryReader
	Watchlist  Watchlist
	MaxRetries int
	Ctx        context.Context

	runMu sync.Mutex
	mu    sync.Mutex
	last  *model.SummaryTable
}

// NewScheduler creates a new Scheduler. notify and hist may be nil.
func NewScheduler(ctx context.Context, runner Runner, engine *strategy.Engine, notify Messenger, rec recorder.Recorder, hist HistoryReader, wl Watchlist) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		Runner:     runner,
		Engine:     engine,
		Notifier:   notify,
		Recorder:   rec,
		History:    hist,
		Watchlist:  wl,
		MaxRetries: 3,
		Ctx:        ctx,
	}
}

// RegisterAll registers the watchlist run.
func (s *Scheduler) RegisterAll(runCron string) error {
	if _, err := s.Cron.AddFunc(runCron, s.scheduledRun); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) scheduledRun() {
	if _, err := s.RunNow(s.Ctx, "cron", ""); err != nil {
		log.Error().Err(err).Msg("scheduled run failed")
	}
}

// ErrBusy is returned when a run is already in progress.
var ErrBusy = errors.New("a run is already in progress")

// RunNow sizes the watchlist, records the run and sends the summary. An empty horizon
// uses the watchlist horizon.
func (s *Scheduler) RunNow(ctx context.Context, trigger, horizon string) (*model.SummaryTable, error) {
	if !s.runMu.TryLock() {
		return nil, ErrBusy
	}
	defer s.runMu.Unlock()

	if horizon == "" {
		horizon = s.Watchlist.Horizon
	}
	req, err := request.New(s.Watchlist.Tickers, s.Watchlist.Positions, horizon)
	if err != nil {
		return nil, err
	}

	log.Info().Str("trigger", trigger).Str("horizon", horizon).Msg("running watchlist")
	started := time.Now()
	table, err := s.Runner.Run(ctx, req)
	if err != nil {
		s.trySend(ctx, fmt.Sprintf("❌ Sizing run failed: %s", html.EscapeString(err.Error())))
		return nil, err
	}

	s.mu.Lock()
	s.last = table
	s.mu.Unlock()

	id, err := s.Recorder.RecordRun(&recorder.RunSnapshot{
		Trigger:  trigger,
		Table:    table,
		Weights:  s.Engine.Weights,
		Duration: time.Since(started),
	})
	if err != nil {
		log.Error().Err(err).Msg("record run")
	} else if id != "" {
		log.Info().Str("run_id", id).Msg("run recorded")
	}

	s.trySend(ctx, notifier.FormatSummary(table))
	return table, nil
}

// Last returns the most recent table, or nil.
func (s *Scheduler) Last() *model.SummaryTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command, args string) string {
	switch strings.ToLower(command) {
	case "run":
		if _, err := s.RunNow(ctx, "telegram", args); err != nil {
			return fmt.Sprintf("❌ %s", html.EscapeString(err.Error()))
		}
		return ""
	case "explain":
		return s.explain(args)
	case "history":
		return s.history(strings.TrimSpace(args))
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) history(id string) string {
	if s.History == nil {
		return "History is not available without a database"
	}
	if id == "" {
		runs, err := s.History.RecentRuns(10)
		if err != nil {
			log.Error().Err(err).Msg("read history")
			return "❌ could not read history"
		}
		return notifier.FormatHistory(runs)
	}

	run, err := s.History.FindRun(id)
	if err != nil {
		if errors.Is(err, recorder.ErrRunNotFound) {
			return fmt.Sprintf("No run %s", html.EscapeString(id))
		}
		return fmt.Sprintf("❌ %s", html.EscapeString(err.Error()))
	}
	rows, err := s.History.Investments(run.ID, run.Horizon)
	if err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("read run")
		return "❌ could not read run"
	}
	return notifier.FormatStoredRun(run, rows)
}

func (s *Scheduler) explain(args string) string {
	ticker := strings.ToUpper(strings.TrimSpace(args))
	if ticker == "" {
		return "Usage: /explain TICKER"
	}
	last := s.Last()
	if last == nil {
		return "No run yet, send /run first"
	}
	for _, row := range last.Rows {
		if row.Ticker == ticker {
			fv := row.Features[last.Horizon]
			return notifier.FormatBreakdown(row.Ticker, last.Horizon, s.Engine.Contributions(fv), row.Investments[last.Horizon])
		}
	}
	return fmt.Sprintf("%s is not in the last run", html.EscapeString(ticker))
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, s.MaxRetries); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
