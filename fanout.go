package magi

import (
	"context"
	"errors"
	"fmt"

	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
	"golang.org/x/sync/errgroup"
)

var ErrNoTable = errors.New("no table or uninitialized")

// Task computes the output column for a single input column. Each task receives its own copy
// of the column.
type Task func(ctx context.Context, name string, series *timedataset.TimeDataset) (*timedataset.TimeDataset, error)

// FanOut runs task for every column of tbl concurrently and joins the outputs into a table
// with the columns in input order. Failures are wrapped in *errs.ColumnError and handled
// according to the policy in opt.
func FanOut(ctx context.Context, tbl *timedataset.Table, task Task, opt *Options) (*TableResult, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if tbl == nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNoTable)
	}

	names := tbl.Names()
	slots := make([]*timedataset.TimeDataset, len(names))
	failures := make([]*errs.ColumnError, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if opt.Workers > 0 {
		g.SetLimit(opt.Workers)
	}
	for i, name := range names {
		col, err := tbl.Column(name)
		if err != nil {
			return nil, err
		}
		series := col.Copy()

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := task(gctx, name, series)
			if err == nil && out == nil {
				err = fmt.Errorf("%w: %w", errs.ErrBackendExecution, ErrNoResult)
			}
			if err != nil {
				colErr := columnError(name, err)
				if opt.Policy == Isolate && !isCancellation(err) {
					opt.Logger.Warn("leaving failed column out of table",
						"column", name,
						"error", err,
					)
					failures[i] = colErr
					return nil
				}
				return colErr
			}
			out.Name = name
			slots[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &TableResult{Table: timedataset.NewTable()}
	for i, name := range names {
		if failures[i] != nil {
			res.Failures = append(res.Failures, failures[i])
			continue
		}
		if err := res.Table.Add(name, slots[i]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func columnError(name string, err error) *errs.ColumnError {
	var colErr *errs.ColumnError
	if errors.As(err, &colErr) {
		return colErr
	}
	return &errs.ColumnError{Column: name, Err: err}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
