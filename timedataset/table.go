package timedataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrDuplicateColumn = errors.New("column already exists in table")
	ErrUnknownColumn   = errors.New("column does not exist in table")
	ErrNilColumn       = errors.New("nil column")
)

// Table is an ordered collection of named series. Columns keep their own time index; the
// table index is the union of every column index.
type Table struct {
	names []string
	cols  map[string]*TimeDataset
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{cols: make(map[string]*TimeDataset)}
}

// NewTableFromColumns builds a table where every column shares the index t. values[i] holds
// the observations of names[i].
func NewTableFromColumns(t []time.Time, names []string, values [][]float64) (*Table, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf(
			"%d column names but %d value columns, %w",
			len(names), len(values), ErrDatasetLenMismatch,
		)
	}
	tbl := NewTable()
	for i, name := range names {
		ds, err := NewNamedDataset(name, t, values[i])
		if err != nil {
			return nil, err
		}
		if err := tbl.Add(name, ds); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// Add appends a column. The dataset is stored as is; callers hand over ownership.
func (tb *Table) Add(name string, ds *TimeDataset) error {
	if ds == nil {
		return fmt.Errorf("column %q, %w", name, ErrNilColumn)
	}
	if tb.cols == nil {
		tb.cols = make(map[string]*TimeDataset)
	}
	if _, exists := tb.cols[name]; exists {
		return fmt.Errorf("column %q, %w", name, ErrDuplicateColumn)
	}
	ds.Name = name
	tb.names = append(tb.names, name)
	tb.cols[name] = ds
	return nil
}

// Names returns the column names in insertion order
func (tb *Table) Names() []string {
	if tb == nil {
		return nil
	}
	names := make([]string, len(tb.names))
	copy(names, tb.names)
	return names
}

// NumColumns returns the number of columns
func (tb *Table) NumColumns() int {
	if tb == nil {
		return 0
	}
	return len(tb.names)
}

// Column returns the series stored under name
func (tb *Table) Column(name string) (*TimeDataset, error) {
	if tb == nil {
		return nil, fmt.Errorf("column %q, %w", name, ErrUnknownColumn)
	}
	ds, exists := tb.cols[name]
	if !exists {
		return nil, fmt.Errorf("column %q, %w", name, ErrUnknownColumn)
	}
	return ds, nil
}

// Index returns the sorted union of all column timestamps
func (tb *Table) Index() []time.Time {
	if tb == nil {
		return nil
	}
	seen := make(map[int64]time.Time)
	for _, name := range tb.names {
		for _, t := range tb.cols[name].T {
			seen[t.UnixNano()] = t
		}
	}
	index := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		index = append(index, t)
	}
	sort.Slice(index, func(i, j int) bool {
		return index[i].Before(index[j])
	})
	return index
}

// Aligned returns the values of a column on the given index, NaN where the column has no
// observation at that time.
func (tb *Table) Aligned(name string, index []time.Time) ([]float64, error) {
	ds, err := tb.Column(name)
	if err != nil {
		return nil, err
	}
	lookup := make(map[int64]float64, len(ds.T))
	for i, t := range ds.T {
		lookup[t.UnixNano()] = ds.Y[i]
	}
	res := make([]float64, len(index))
	for i, t := range index {
		v, exists := lookup[t.UnixNano()]
		if !exists {
			v = math.NaN()
		}
		res[i] = v
	}
	return res, nil
}

// Rows returns the outer joined index together with one value slice per column in column
// order.
func (tb *Table) Rows() ([]time.Time, [][]float64, error) {
	index := tb.Index()
	values := make([][]float64, 0, tb.NumColumns())
	for _, name := range tb.names {
		col, err := tb.Aligned(name, index)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, col)
	}
	return index, values, nil
}

// Copy returns a deep copy of the table
func (tb *Table) Copy() *Table {
	if tb == nil {
		return nil
	}
	res := NewTable()
	for _, name := range tb.names {
		res.names = append(res.names, name)
		res.cols[name] = tb.cols[name].Copy()
	}
	return res
}
