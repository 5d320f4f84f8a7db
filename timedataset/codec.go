package timedataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrNoHeader      = errors.New("csv input has no header row")
	ErrUnparsedTime  = errors.New("unable to parse time")
	ErrUnparsedValue = errors.New("unable to parse value")
)

// TimeLayouts are tried in order when parsing the index column of a csv file
var TimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
}

type datasetJSON struct {
	Name string      `json:"name,omitempty"`
	T    []time.Time `json:"time"`
	Y    []*float64  `json:"values"`
}

func toNullable(y []float64) []*float64 {
	res := make([]*float64, len(y))
	for i := range y {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		v := y[i]
		res[i] = &v
	}
	return res
}

func fromNullable(y []*float64) []float64 {
	res := make([]float64, len(y))
	for i, v := range y {
		if v == nil {
			res[i] = math.NaN()
			continue
		}
		res[i] = *v
	}
	return res
}

// MarshalJSON encodes missing observations as null
func (td *TimeDataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(datasetJSON{
		Name: td.Name,
		T:    td.T,
		Y:    toNullable(td.Y),
	})
}

// UnmarshalJSON decodes null observations as NaN
func (td *TimeDataset) UnmarshalJSON(data []byte) error {
	var raw datasetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.T) != len(raw.Y) {
		return fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(raw.T), len(raw.Y), ErrDatasetLenMismatch,
		)
	}
	td.Name = raw.Name
	td.T = raw.T
	td.Y = fromNullable(raw.Y)
	return nil
}

type tableColumnJSON struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

type tableJSON struct {
	Index   []time.Time       `json:"index"`
	Columns []tableColumnJSON `json:"columns"`
}

// MarshalJSON encodes the table on its outer joined index with columns in order
func (tb *Table) MarshalJSON() ([]byte, error) {
	index, values, err := tb.Rows()
	if err != nil {
		return nil, err
	}
	raw := tableJSON{
		Index:   index,
		Columns: make([]tableColumnJSON, 0, len(values)),
	}
	for i, name := range tb.names {
		raw.Columns = append(raw.Columns, tableColumnJSON{
			Name:   name,
			Values: toNullable(values[i]),
		})
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes a table written by MarshalJSON. Every column shares the decoded index.
func (tb *Table) UnmarshalJSON(data []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	names := make([]string, 0, len(raw.Columns))
	values := make([][]float64, 0, len(raw.Columns))
	for _, col := range raw.Columns {
		names = append(names, col.Name)
		values = append(values, fromNullable(col.Values))
	}
	res, err := NewTableFromColumns(raw.Index, names, values)
	if err != nil {
		return err
	}
	*tb = *res
	return nil
}

// ReadCSV parses a table where the first column is the time index and each remaining column
// is a series. Empty cells and NA/NaN markers are read as missing observations.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("unable to read csv header, %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("expected a time column and at least one series, got %d columns, %w", len(header), ErrNoHeader)
	}

	var t []time.Time
	values := make([][]float64, len(header)-1)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read csv line %d, %w", line+1, err)
		}
		line++

		ts, err := parseTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d, %w", line, err)
		}
		t = append(t, ts)
		for i := 1; i < len(record); i++ {
			v, err := parseValue(record[i])
			if err != nil {
				return nil, fmt.Errorf("line %d column %q, %w", line, header[i], err)
			}
			values[i-1] = append(values[i-1], v)
		}
	}
	return NewTableFromColumns(t, header[1:], values)
}

// WriteCSV writes the table on its outer joined index. Missing observations are written as
// empty cells.
func WriteCSV(w io.Writer, tb *Table) error {
	index, values, err := tb.Rows()
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	header := append([]string{"time"}, tb.Names()...)
	if err := writer.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for i, t := range index {
		record[0] = t.Format(time.RFC3339)
		for j := range values {
			v := values[j][i]
			if math.IsNaN(v) {
				record[j+1] = ""
				continue
			}
			record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q, %w", s, ErrUnparsedTime)
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q, %w", s, ErrUnparsedValue)
	}
	return v, nil
}
