package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SizingSignal/internal/notifier"
	"SizingSignal/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the watchlist on a schedule and answer Telegram commands",
	RunE:  serve,
}

var serveRunOnStart bool

func init() {
	serveCmd.Flags().BoolVar(&serveRunOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "run the watchlist once at startup")
}

func serve(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Info().Msg("sizer starting")

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, engine, cached := buildPipeline(cfg)

	rec, sr := openRecorder(cfg)
	defer rec.Close()
	var hist scheduler.HistoryReader
	if sr != nil {
		hist = sr
	}

	var (
		tn     *notifier.TelegramNotifier
		notify scheduler.Messenger
	)
	if cfg.TelegramEnabled() {
		var err error
		tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			return err
		}
		notify = tn
	} else {
		log.Warn().Msg("telegram not configured, summaries are only logged")
	}

	wl := scheduler.Watchlist{
		Tickers:   cfg.Watchlist.Tickers,
		Positions: cfg.Watchlist.Positions,
		Horizon:   cfg.Watchlist.Horizon,
	}
	sched := scheduler.NewScheduler(ctx, p, engine, notify, rec, hist, wl)
	sched.MaxRetries = cfg.Telegram.MaxRetries
	if err := sched.RegisterAll(cfg.Schedule.RunCron); err != nil {
		return err
	}
	if _, err := sched.Cron.AddFunc("0 */10 * * * *", func() {
		if n := cached.Purge(); n > 0 {
			log.Debug().Int("entries", n).Msg("purged expired cache entries")
		}
	}); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go func() {
			if err := tn.StartPolling(ctx, sched.HandleCommand); err != nil {
				log.Error().Err(err).Msg("telegram polling")
			}
		}()
		log.Info().Msg("telegram polling started")
	}

	if serveRunOnStart {
		log.Info().Msg("run-on-start enabled, sizing the watchlist now")
		go func() {
			if _, err := sched.RunNow(ctx, "startup", ""); err != nil {
				log.Error().Err(err).Msg("startup run failed")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.RunCron).Msg("sizer is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}
