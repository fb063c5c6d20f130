package notifier

import (
	"fmt"
	"html"
	"strings"

	"SizingSignal/internal/model"
	"SizingSignal/internal/recorder"
	"SizingSignal/internal/report"
)

// FormatSummary formats a summary table into a Telegram message.
func FormatSummary(t *model.SummaryTable) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Position sizing</b> | %s | %s\n\n",
		t.Horizon.Title(), t.GeneratedAt.Format("2006-01-02 15:04")))

	if t.Empty() {
		b.WriteString(report.NoData + "\n")
	} else {
		b.WriteString(fmt.Sprintf("<b>%s</b>\n", model.ColumnName(t.Horizon)))
		for _, r := range t.Project(t.Horizon) {
			b.WriteString(fmt.Sprintf("  <code>%-6s</code> %s\n", html.EscapeString(r.Ticker), report.FormatAmount(r.Amount)))
		}
	}

	if len(t.Skipped) > 0 {
		b.WriteString("\n⚠️ <b>Skipped:</b>\n")
		for _, s := range t.Skipped {
			b.WriteString(fmt.Sprintf("  %s: %s\n", html.EscapeString(s.Ticker), html.EscapeString(s.Reason)))
		}
	}
	return b.String()
}

// FormatBreakdown lists the weighted terms behind one ticker's amount.
func FormatBreakdown(ticker string, h model.Horizon, contributions []model.FeatureContribution, amount float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s</b> | %s\n\n", html.EscapeString(ticker), h.Title()))
	total := 0.0
	for _, c := range contributions {
		b.WriteString(fmt.Sprintf("  %s: %+.4f (×%.2f) = %+.4f\n", c.Name, c.Raw, c.Weight, c.Weighted))
		total += c.Weighted
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  Score: %+.4f\n", total))
	b.WriteString(fmt.Sprintf("  %s: %s\n", model.ColumnName(h), report.FormatAmount(amount)))
	return b.String()
}

// FormatHistory formats stored run headers, newest first.
func FormatHistory(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded yet"
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("  <code>%s</code> %s %s %s: %d rows, %d skipped\n",
			shortID(r.ID), r.Timestamp.Format("2006-01-02 15:04"), r.Horizon.Title(),
			html.EscapeString(r.Trigger), r.Rows, r.Skipped))
	}
	return b.String()
}

// FormatStoredRun lists the amounts recorded for one run.
func FormatStoredRun(run *recorder.RunSummary, rows []model.ProjectedRow) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>Run %s</b> | %s | %s\n\n",
		shortID(run.ID), run.Horizon.Title(), run.Timestamp.Format("2006-01-02 15:04")))
	if len(rows) == 0 {
		b.WriteString(report.NoData + "\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("<b>%s</b>\n", model.ColumnName(run.Horizon)))
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  <code>%-6s</code> %s\n", html.EscapeString(r.Ticker), report.FormatAmount(r.Amount)))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "<b>Commands</b>\n" +
		"/run [horizon] - size the watchlist now\n" +
		"/explain TICKER - feature breakdown from the last run\n" +
		"/history [id] - recent runs, or the amounts of one run\n" +
		"/help - this message"
}
