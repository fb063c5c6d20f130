package report

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SizingSignal/internal/model"
)

func sampleTable() *model.SummaryTable {
	mcap := 2.5e12
	return &model.SummaryTable{
		Horizon: model.HorizonWeekly,
		Rows: []model.InvestmentSuggestion{
			{
				Ticker:        "AAPL",
				PositionValue: 1000,
				LatestClose:   190,
				AllTimeHigh:   200,
				MarketCap:     &mcap,
				Trend:         model.TrendlineResult{P1: 150, P2: 180, P3: 185},
				MovingAverages: model.MovingAverageSet{
					{Period: 200, Horizon: model.HorizonDaily}: 170,
					{Period: 100, Horizon: model.HorizonWeekly}: 160,
					{Period: 100, Horizon: model.HorizonDaily}: 175,
				},
				Investments: map[model.Horizon]float64{model.HorizonWeekly: 12.345},
			},
			{
				Ticker:      "MSFT",
				Investments: map[model.Horizon]float64{model.HorizonWeekly: math.NaN()},
			},
		},
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.35", FormatAmount(12.345))
	assert.Equal(t, "-3.10", FormatAmount(-3.1))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "NaN", FormatAmount(math.NaN()))
	assert.Equal(t, "+Inf", FormatAmount(math.Inf(1)))
	assert.Equal(t, "-Inf", FormatAmount(math.Inf(-1)))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleTable()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Weekly Investment")
	assert.Contains(t, lines[1], "AAPL")
	assert.Contains(t, lines[1], "12.35")
	assert.Contains(t, lines[2], "NaN")
}

func TestWriteTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, &model.SummaryTable{Horizon: model.HorizonDaily}))
	assert.Equal(t, NoData+"\n", buf.String())
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, sampleTable()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Ticker", "Weekly Investment"},
		{"AAPL", "12.35"},
		{"MSFT", "NaN"},
	}, records)
}

func TestWriteDetailCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDetailCSV(&buf, sampleTable()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	assert.Equal(t, []string{"MA100daily", "MA200daily", "MA100weekly"}, header[9:12])
	assert.Contains(t, header, "Yearly Volatility minus last return")
	assert.Contains(t, header, "Monthly Investment")

	aapl := records[1]
	assert.Len(t, aapl, len(header))
	assert.Equal(t, "2.5e+12", aapl[5])
	assert.Equal(t, "180", aapl[7])
	assert.Equal(t, []string{"175", "170", "160"}, aapl[9:12])

	msft := records[2]
	assert.Equal(t, "", msft[5])
	assert.Equal(t, []string{"NaN", "NaN", "NaN"}, msft[9:12])
}

func TestSaveCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	require.NoError(t, SaveCSV(path, sampleTable(), WriteSummaryCSV))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Ticker,Weekly Investment\n"))

	assert.Error(t, SaveCSV(filepath.Join(t.TempDir(), "missing", "x.csv"), sampleTable(), WriteSummaryCSV))
}
