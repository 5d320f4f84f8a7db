package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forecastkit/magi"
	"github.com/forecastkit/magi/accuracy"
	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func readCSV(t *testing.T, path string) *timedataset.Table {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	tbl, err := timedataset.ReadCSV(f)
	require.NoError(t, err)
	return tbl
}

// generated writes the default synthetic table into a fresh working directory
func generated(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "gen.csv")
	_, err := run(t, "generate", "-o", path)
	require.NoError(t, err)
	return path
}

func TestGenerate(t *testing.T) {
	path := generated(t)
	tbl := readCSV(t, path)
	assert.Equal(t, []string{"ts0", "ts1", "ts2", "ts3", "ts4"}, tbl.Names())
	assert.Len(t, tbl.Index(), 24)

	out, err := run(t, "generate", "--columns", "2", "--rows", "4", "--freq", "QS", "--end", "2020-10-01", "--format", "json")
	require.NoError(t, err)
	var decoded timedataset.Table
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded.NumColumns())
	assert.Len(t, decoded.Index(), 4)
}

func TestForecastTable(t *testing.T) {
	input := generated(t)
	dir := filepath.Dir(input)

	testData := map[string]struct {
		args     []string
		expected int
	}{
		"predicted": {args: []string{"--select", "predicted"}, expected: 6},
		"full fit":  {args: nil, expected: 30},
		"fitted":    {args: []string{"--fit"}, expected: 24},
		"residuals": {args: []string{"--residuals"}, expected: 24},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			output := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".csv")
			args := append([]string{"forecast", "naive", "-i", input, "--horizon", "6", "-o", output}, td.args...)
			_, err := run(t, args...)
			require.NoError(t, err)

			tbl := readCSV(t, output)
			assert.Equal(t, 5, tbl.NumColumns())
			assert.Len(t, tbl.Index(), td.expected)
		})
	}
}

func TestForecastSeries(t *testing.T) {
	input := generated(t)
	plotPath := filepath.Join(filepath.Dir(input), "fc.html")

	out, err := run(t, "forecast", "thetaf", "-i", input, "--series", "ts0", "--horizon", "6", "--format", "json", "--plot", plotPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"method": "Theta"`)
	assert.Contains(t, out, `"full_actuals"`)

	page, err := os.ReadFile(plotPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Forecast Fit")

	out, err = run(t, "forecast", "thetaf", "-i", input, "--series", "ts0", "--horizon", "6", "--pred")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 7)
	assert.Equal(t, "time,ts0", lines[0])
}

func TestDecompose(t *testing.T) {
	input := generated(t)
	out, err := run(t, "decompose", "-i", input, "--series", "ts1", "--horizon", "3", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"method": "prophet"`)
	assert.Contains(t, out, `"components"`)

	out, err = run(t, "decompose", "-i", input, "--horizon", "3", "--select", "predicted")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)
}

func TestClean(t *testing.T) {
	input := generated(t)
	out, err := run(t, "clean", "-i", input)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "time,ts0,ts1,ts2,ts3,ts4\n"))
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 25)
}

func TestReadTableLogsRange(t *testing.T) {
	input := generated(t)
	index := readCSV(t, input).Index()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	cmd.SetArgs([]string{"clean", "-i", input})
	require.NoError(t, cmd.Execute())

	logs := stderr.String()
	assert.Contains(t, logs, "read table")
	assert.Contains(t, logs, "rows=24")
	assert.Contains(t, logs, "start="+index[0].Format(time.RFC3339))
	assert.Contains(t, logs, "end="+index[len(index)-1].Format(time.RFC3339))
}

func TestAccuracy(t *testing.T) {
	input := generated(t)
	dir := filepath.Dir(input)
	fitted := filepath.Join(dir, "fitted.csv")
	_, err := run(t, "forecast", "naive", "-i", input, "--fit", "-o", fitted)
	require.NoError(t, err)

	out, err := run(t, "accuracy", "--actual", input, "--predicted", input)
	require.NoError(t, err)
	for _, name := range []string{"MAPE", "SMAPE", "ThielsU", "ACF1"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "0.000000")
	assert.Contains(t, out, "NaN")

	out, err = run(t, "accuracy", "--actual", input, "--predicted", fitted, "--separate", "--format", "json")
	require.NoError(t, err)
	var report struct {
		Table struct {
			Columns []string         `json:"columns"`
			Metrics []map[string]any `json:"metrics"`
		} `json:"table"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, []string{"ts0", "ts1", "ts2", "ts3", "ts4"}, report.Table.Columns)
	require.Len(t, report.Table.Metrics, 5)
	assert.Contains(t, report.Table.Metrics[0], "MAE")

	out, err = run(t, "accuracy", "--actual", input, "--predicted", fitted, "--separate")
	require.NoError(t, err)
	header := strings.Split(out, "\n")[1]
	for _, name := range []string{"metric", "ts0", "ts4"} {
		assert.Contains(t, header, " "+name+" ")
	}
}

func TestRenderReportKeepsColumnNames(t *testing.T) {
	report := &accuracy.Report{Table: &accuracy.MetricsTable{
		Columns: []string{"store_a", "ts4"},
		Metrics: []accuracy.Metrics{{MAE: 1}, {MAE: 2}},
	}}
	var buf bytes.Buffer
	require.NoError(t, renderReport(&buf, report))
	out := buf.String()
	assert.Contains(t, out, " store_a ")
	assert.Contains(t, out, " ts4 ")
	assert.NotContains(t, out, "STORE A")
	assert.NotContains(t, out, "TS 4")
}

func TestProfileStoppedOnFailure(t *testing.T) {
	input := generated(t)
	dir := t.TempDir()

	_, err := run(t, "forecast", "naive", "--profile", "cpu", "--profile-path", dir)
	require.ErrorIs(t, err, ErrNoInput)
	info, err := os.Stat(filepath.Join(dir, "cpu.pprof"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// a second profiled run only starts when the first one was stopped
	_, err = run(t, "clean", "-i", input, "--profile", "cpu", "--profile-path", dir)
	require.NoError(t, err)
}

func TestCommandErrors(t *testing.T) {
	input := generated(t)

	testData := map[string]struct {
		args []string
		err  error
	}{
		"no input":          {args: []string{"forecast", "naive"}, err: ErrNoInput},
		"unknown selection": {args: []string{"forecast", "naive", "-i", input, "--select", "forecast_df"}, err: magi.ErrUnknownSelection},
		"conflicting flags": {args: []string{"forecast", "naive", "-i", input, "--pred", "--fit"}, err: magi.ErrConflictingSelections},
		"unknown model":     {args: []string{"forecast", "nosuchmodel(rdata)", "-i", input}, err: errs.ErrBackendExecution},
		"bad horizon":       {args: []string{"forecast", "naive", "-i", input, "--horizon=-1"}, err: magi.ErrNonPositiveHorizon},
		"bad format":        {args: []string{"generate", "--format", "xml"}, err: ErrUnknownFormat},
		"missing column":    {args: []string{"forecast", "naive", "-i", input, "--series", "ts9"}, err: timedataset.ErrUnknownColumn},
		"bad policy":        {args: []string{"clean", "-i", input, "--policy", "retry"}, err: magi.ErrUnknownPolicy},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, td.args...)
			assert.ErrorIs(t, err, td.err)
		})
	}

	_, err := run(t, "generate", "--profile", "block")
	assert.ErrorContains(t, err, "unknown profile mode")
}

func TestConfigFile(t *testing.T) {
	input := generated(t)
	cfg := filepath.Join(filepath.Dir(input), "magi.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("forecast:\n  horizon: 4\nlogging:\n  format: json\n"), 0o600))

	out, err := run(t, "forecast", "naive", "-i", input, "--config", cfg, "--pred")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)

	// flags win over the file
	out, err = run(t, "forecast", "naive", "-i", input, "--config", cfg, "--pred", "--horizon", "2")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}
