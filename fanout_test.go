package magi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityTask(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
	return series, nil
}

func TestFanOutOrdering(t *testing.T) {
	opt := timedataset.NewDefaultTableOptions()
	opt.NumColumns = 8
	tbl, err := timedataset.GenerateTable(opt)
	require.NoError(t, err)
	names := tbl.Names()

	// later columns finish first
	task := func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
		var idx int
		_, err := fmt.Sscanf(name, "ts%d", &idx)
		if err != nil {
			return nil, err
		}
		time.Sleep(time.Duration(len(names)-idx) * 5 * time.Millisecond)
		return series, nil
	}

	res, err := FanOut(context.Background(), tbl, task, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Equal(t, names, res.Table.Names())
	for _, name := range names {
		in, err := tbl.Column(name)
		require.NoError(t, err)
		out, err := res.Table.Column(name)
		require.NoError(t, err)
		assert.Equal(t, in.Y, out.Y)
		assert.Equal(t, name, out.Name)
	}
}

func TestFanOutDoesNotShareColumns(t *testing.T) {
	tbl, err := timedataset.GenerateTable(nil)
	require.NoError(t, err)
	orig := tbl.Copy()

	task := func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
		series.Y[0] = -1
		return series, nil
	}
	_, err = FanOut(context.Background(), tbl, task, nil)
	require.NoError(t, err)

	for _, name := range tbl.Names() {
		got, err := tbl.Column(name)
		require.NoError(t, err)
		want, err := orig.Column(name)
		require.NoError(t, err)
		assert.Equal(t, want.Y, got.Y)
	}
}

func TestFanOutOuterJoin(t *testing.T) {
	tbl, err := timedataset.GenerateTable(nil)
	require.NoError(t, err)

	// every column but the first moves one period later
	task := func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
		if name == "ts0" {
			return series, nil
		}
		return timedataset.Reindex(name, series.T[0], series.Y, timedataset.Monthly, timedataset.ModeContinuation)
	}

	res, err := FanOut(context.Background(), tbl, task, nil)
	require.NoError(t, err)
	index := res.Table.Index()
	assert.Len(t, index, 25)

	first, err := res.Table.Aligned("ts0", index)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(first[24]))

	shifted, err := res.Table.Aligned("ts1", index)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(shifted[0]))
	assert.False(t, math.IsNaN(shifted[24]))
}

func TestFanOutPolicies(t *testing.T) {
	tbl, err := timedataset.GenerateTable(nil)
	require.NoError(t, err)
	errFailed := errors.New("column failed")

	task := func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
		if name == "ts1" || name == "ts3" {
			return nil, errFailed
		}
		return series, nil
	}

	t.Run("fail fast", func(t *testing.T) {
		_, err := FanOut(context.Background(), tbl, task, nil)
		require.ErrorIs(t, err, errFailed)

		var colErr *errs.ColumnError
		require.ErrorAs(t, err, &colErr)
		assert.Contains(t, []string{"ts1", "ts3"}, colErr.Column)
	})

	t.Run("isolate", func(t *testing.T) {
		opt := NewDefaultOptions()
		opt.Policy = Isolate
		res, err := FanOut(context.Background(), tbl, task, opt)
		require.NoError(t, err)
		assert.Equal(t, []string{"ts0", "ts2", "ts4"}, res.Table.Names())
		assert.Equal(t, []string{"ts1", "ts3"}, res.Failed())
		for _, f := range res.Failures {
			assert.ErrorIs(t, f, errFailed)
		}
	})
}

func TestFanOutNilOutput(t *testing.T) {
	tbl, err := timedataset.GenerateTable(nil)
	require.NoError(t, err)
	task := func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
		return nil, nil
	}
	_, err = FanOut(context.Background(), tbl, task, nil)
	assert.ErrorIs(t, err, errs.ErrBackendExecution)
}

func TestFanOutWorkers(t *testing.T) {
	opt := timedataset.NewDefaultTableOptions()
	opt.NumColumns = 12
	tbl, err := timedataset.GenerateTable(opt)
	require.NoError(t, err)

	var inFlight, maxInFlight atomic.Int32
	task := func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return series, nil
	}

	fopt := NewDefaultOptions()
	fopt.Workers = 3
	res, err := FanOut(context.Background(), tbl, task, fopt)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Table.NumColumns())
	assert.LessOrEqual(t, maxInFlight.Load(), int32(3))
}

func TestFanOutCancelled(t *testing.T) {
	tbl, err := timedataset.GenerateTable(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, policy := range []FailurePolicy{FailFast, Isolate} {
		opt := NewDefaultOptions()
		opt.Policy = policy
		_, err = FanOut(ctx, tbl, identityTask, opt)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestFanOutInvalid(t *testing.T) {
	_, err := FanOut(context.Background(), nil, identityTask, nil)
	assert.ErrorIs(t, err, ErrNoTable)

	tbl, err := timedataset.GenerateTable(nil)
	require.NoError(t, err)
	opt := NewDefaultOptions()
	opt.Workers = -1
	_, err = FanOut(context.Background(), tbl, identityTask, opt)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}
