package recorder

import (
	"time"

	"SizingSignal/internal/model"
)

// RunSnapshot is one finished pipeline run.
type RunSnapshot struct {
	Trigger  string // "cli", "cron" or "telegram"
	Table    *model.SummaryTable
	Weights  model.Weights
	Duration time.Duration
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(snap *RunSnapshot) (string, error)
	Close() error
}
