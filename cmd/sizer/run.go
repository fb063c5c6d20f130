package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SizingSignal/internal/recorder"
	"SizingSignal/internal/report"
	"SizingSignal/internal/request"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Size a batch of tickers once and print the table",
	Long: `Fetches price history for each ticker, computes the feature vector for the
requested horizon and prints the suggested investment per ticker.

Tickers and position values are ";" separated, e.g.
  sizer run --tickers "AAPL; MSFT" --positions "1000;2500,5" --horizon weekly`,
	RunE: runOnce,
}

var (
	runTickers   string
	runPositions string
	runHorizon   string
	runCSV       string
	runDetailCSV string
	runRecord    bool
)

func init() {
	runCmd.Flags().StringVarP(&runTickers, "tickers", "t", "", "tickers, \";\" separated (default: config watchlist)")
	runCmd.Flags().StringVarP(&runPositions, "positions", "p", "", "position values, \";\" separated (default: config watchlist)")
	runCmd.Flags().StringVar(&runHorizon, "horizon", "", "daily, weekly, monthly or yearly (default: config watchlist)")
	runCmd.Flags().StringVar(&runCSV, "csv", "", "write the summary table to this CSV file")
	runCmd.Flags().StringVar(&runDetailCSV, "detail-csv", "", "write every feature and statistic to this CSV file")
	runCmd.Flags().BoolVar(&runRecord, "record", false, "store the run in the configured SQLite database")
}

func runOnce(cmd *cobra.Command, args []string) error {
	tickers, positions, horizon := runTickers, runPositions, runHorizon
	if tickers == "" {
		tickers = cfg.Watchlist.Tickers
	}
	if positions == "" {
		positions = cfg.Watchlist.Positions
	}
	if horizon == "" {
		horizon = cfg.Watchlist.Horizon
	}

	req, err := request.New(tickers, positions, horizon)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, engine, _ := buildPipeline(cfg)
	started := time.Now()
	table, err := p.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	if err := report.WriteTable(os.Stdout, table); err != nil {
		return fmt.Errorf("print table: %w", err)
	}
	if runCSV != "" {
		if err := report.SaveCSV(runCSV, table, report.WriteSummaryCSV); err != nil {
			return err
		}
		log.Info().Str("path", runCSV).Msg("summary CSV written")
	}
	if runDetailCSV != "" {
		if err := report.SaveCSV(runDetailCSV, table, report.WriteDetailCSV); err != nil {
			return err
		}
		log.Info().Str("path", runDetailCSV).Msg("detail CSV written")
	}

	if runRecord {
		rec, _ := openRecorder(cfg)
		defer rec.Close()
		if _, err := rec.RecordRun(&recorder.RunSnapshot{
			Trigger:  "cli",
			Table:    table,
			Weights:  engine.Weights,
			Duration: time.Since(started),
		}); err != nil {
			log.Error().Err(err).Msg("record run")
		}
	}
	return nil
}
