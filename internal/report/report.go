// Package report renders summary tables for the console and as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"SizingSignal/internal/model"
)

// NoData is printed in place of an empty table.
const NoData = "No data to display"

// FormatAmount renders v with two decimals. Undefined values print as "NaN", "+Inf" or "-Inf".
func FormatAmount(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// WriteTable prints the {Ticker, "<Horizon> Investment"} projection.
func WriteTable(w io.Writer, t *model.SummaryTable) error {
	if t == nil || t.Empty() {
		_, err := fmt.Fprintln(w, NoData)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Ticker\t%s\t\n", model.ColumnName(t.Horizon))
	for _, r := range t.Project(t.Horizon) {
		fmt.Fprintf(tw, "%s\t%s\t\n", r.Ticker, FormatAmount(r.Amount))
	}
	return tw.Flush()
}

// WriteSummaryCSV writes the projected table.
func WriteSummaryCSV(w io.Writer, t *model.SummaryTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Ticker", model.ColumnName(t.Horizon)}); err != nil {
		return err
	}
	for _, r := range t.Project(t.Horizon) {
		if err := cw.Write([]string{r.Ticker, FormatAmount(r.Amount)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDetailCSV writes one row per ticker with every intermediate value: trendline
// projections, moving averages, per-horizon statistics, features and amounts.
func WriteDetailCSV(w io.Writer, t *model.SummaryTable) error {
	keys := maKeys(t.Rows)

	header := []string{"Ticker", "Position Value", "Latest Close", "All-Time High", "Spread From Peak", "Market Cap",
		"Trend P1", "Trend P2", "Trend P3"}
	for _, k := range keys {
		header = append(header, k.Label())
	}
	for _, h := range model.Horizons {
		p := h.Title() + " "
		header = append(header, p+"Last Return", p+"Worst Return", p+"Std Dev", p+"Geo Mean Return", p+"Risk-Adjusted Return")
		for _, name := range model.FeatureNames {
			header = append(header, p+name)
		}
		header = append(header, model.ColumnName(h))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range t.Rows {
		rec := []string{
			r.Ticker,
			num(r.PositionValue),
			num(r.LatestClose),
			num(r.AllTimeHigh),
			num(r.SpreadFromPeak),
			"",
			num(r.Trend.P1),
			num(r.Trend.P2),
			num(r.Trend.P3),
		}
		if r.MarketCap != nil {
			rec[5] = num(*r.MarketCap)
		}
		for _, k := range keys {
			v, ok := r.MovingAverages[k]
			if !ok {
				v = math.NaN()
			}
			rec = append(rec, num(v))
		}
		for _, h := range model.Horizons {
			st := r.Stats[h]
			rec = append(rec, num(st.LastReturn), num(st.WorstReturn), num(st.StdDev), num(st.GeoMeanReturn), num(st.RiskAdjustedReturn))
			fv := r.Features[h]
			for _, v := range fv {
				rec = append(rec, num(v))
			}
			rec = append(rec, FormatAmount(r.Investments[h]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV creates path and fills it with write.
func SaveCSV(path string, t *model.SummaryTable, write func(io.Writer, *model.SummaryTable) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// maKeys collects every MA key in the table, ordered by horizon then period.
func maKeys(rows []model.InvestmentSuggestion) []model.MAKey {
	seen := map[model.MAKey]bool{}
	var keys []model.MAKey
	for _, r := range rows {
		for k := range r.MovingAverages {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	order := map[model.Horizon]int{}
	for i, h := range model.Horizons {
		order[h] = i
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Horizon != keys[j].Horizon {
			return order[keys[i].Horizon] < order[keys[j].Horizon]
		}
		return keys[i].Period < keys[j].Period
	})
	return keys
}
