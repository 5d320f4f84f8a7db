package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnError(t *testing.T) {
	inner := fmt.Errorf("unable to forecast, %w", ErrEmptySeries)
	err := error(&ColumnError{Column: "ts1", Spec: "thetaf", Err: inner})

	assert.ErrorIs(t, err, ErrEmptySeries)
	assert.Equal(t, `column "ts1", model "thetaf": unable to forecast, no non-missing observation in series`, err.Error())

	var colErr *ColumnError
	assert.True(t, errors.As(err, &colErr))
	assert.Equal(t, "ts1", colErr.Column)

	noSpec := &ColumnError{Column: "ts2", Err: ErrTypeMismatch}
	assert.Equal(t, `column "ts2": type mismatch`, noSpec.Error())
}

func TestBackend(t *testing.T) {
	assert.Nil(t, Backend("naive", nil))

	err := Backend("auto.arima(rdata)", errors.New("non-stationary seasonal AR part"))
	assert.ErrorIs(t, err, ErrBackendExecution)
	assert.Contains(t, err.Error(), "non-stationary seasonal AR part")
	assert.Contains(t, err.Error(), "auto.arima(rdata)")

	// already classified errors are not wrapped twice
	assert.Equal(t, err, Backend("other", err))
}
