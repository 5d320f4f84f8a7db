package magi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forecastkit/magi/errs"
	"github.com/forecastkit/magi/timedataset"
)

var (
	ErrUnknownSelection      = errors.New("unknown result selection")
	ErrConflictingSelections = errors.New("more than one result selection requested")
	ErrNoSelection           = errors.New("no result selection requested")
)

// Selection picks which series of a Result becomes the column of a table run
type Selection int

const (
	// SelectFullFit is the fitted values followed by the point forecast
	SelectFullFit Selection = iota

	// SelectFullActuals is the observed values followed by the point forecast
	SelectFullActuals

	SelectPredicted
	SelectFitted
	SelectResiduals
)

var selectionNames = map[Selection]string{
	SelectFullFit:     "full_fit",
	SelectFullActuals: "full_actuals",
	SelectPredicted:   "predicted",
	SelectFitted:      "fitted",
	SelectResiduals:   "residuals",
}

func (s Selection) String() string {
	if name, exists := selectionNames[s]; exists {
		return name
	}
	return fmt.Sprintf("Selection(%d)", int(s))
}

// Selections returns every selection in declaration order
func Selections() []Selection {
	return []Selection{SelectFullFit, SelectFullActuals, SelectPredicted, SelectFitted, SelectResiduals}
}

// ParseSelection maps a selection name to its Selection. Dashes and underscores are
// interchangeable, and an empty name selects the full fit.
func ParseSelection(s string) (Selection, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if name == "" {
		return SelectFullFit, nil
	}
	for sel, selName := range selectionNames {
		if selName == name {
			return sel, nil
		}
	}
	return 0, fmt.Errorf("%q, %w: %w", s, errs.ErrConfiguration, ErrUnknownSelection)
}

// SelectionFromFlags maps the boolean selection flags onto a Selection. fitPred is the default
// and is overridden by exactly one of the other flags; setting more than one of them is
// contradictory.
func SelectionFromFlags(fitPred, actualPred, pred, fit, residuals bool) (Selection, error) {
	var picked []Selection
	for sel, set := range map[Selection]bool{
		SelectFullActuals: actualPred,
		SelectPredicted:   pred,
		SelectFitted:      fit,
		SelectResiduals:   residuals,
	} {
		if set {
			picked = append(picked, sel)
		}
	}
	switch {
	case len(picked) == 1:
		return picked[0], nil
	case len(picked) > 1:
		return 0, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrConflictingSelections)
	case fitPred:
		return SelectFullFit, nil
	}
	return 0, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrNoSelection)
}

// Select returns the series of the result named by sel
func (r *Result) Select(sel Selection) (*timedataset.TimeDataset, error) {
	if r == nil {
		return nil, ErrNoResult
	}
	var ds *timedataset.TimeDataset
	switch sel {
	case SelectFullFit:
		ds = r.FullFit
	case SelectFullActuals:
		ds = r.FullActuals
	case SelectPredicted:
		ds = r.Predicted
	case SelectFitted:
		ds = r.Fitted
	case SelectResiduals:
		ds = r.Residuals
	default:
		return nil, fmt.Errorf("%s, %w: %w", sel, errs.ErrConfiguration, ErrUnknownSelection)
	}
	if ds == nil {
		return nil, fmt.Errorf("%s, %w", sel, ErrNoResult)
	}
	return ds.Copy(), nil
}
