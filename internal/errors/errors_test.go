package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"linkbias/domain/core"
)

func TestCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{core.NewInsufficientPopulationError(1050, 1000), CodeInsufficientPopulation},
		{core.NewInvalidPrecisionError(1.2), CodeInvalidPrecision},
		{fmt.Errorf("%w: 0", core.ErrInvalidSampleSize), CodeInvalidSampleSize},
		{core.NewFitError("ols", "singular"), CodeFitFailure},
		{core.NewConfigError("trials", "must be > 0"), CodeConfigInvalid},
		{core.ErrRunNotFound, CodeNotFound},
		{fmt.Errorf("boom"), CodeInternalError},
		{Busy("full"), CodeBusy},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CodeFor(tc.err), "%v", tc.err)
	}
}

func TestWrap_KeepsDomainCode(t *testing.T) {
	err := Wrap(core.NewFitError("huber", "no convergence"), "trial 3")
	assert.Equal(t, CodeFitFailure, GetCode(err))
	assert.ErrorIs(t, err, core.ErrFitFailure)
	assert.Contains(t, err.Error(), "trial 3")

	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, fmt.Errorf("bad body"))
	assert.True(t, IsAppError(err))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}
