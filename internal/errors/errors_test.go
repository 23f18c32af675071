package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	assert.ErrorIs(t, NotFound("item missing"), ErrNotFound)
	assert.ErrorIs(t, Validationf("bad value %d", 3), ErrValidation)
	assert.ErrorIs(t, Conflict("duplicate"), ErrConflict)
	assert.ErrorIs(t, RateLimited("slow down"), ErrRateLimited)
	assert.ErrorIs(t, Internal("boom"), ErrInternal)

	assert.NotErrorIs(t, NotFound("x"), ErrConflict)
}

func TestWrapPreservesCodeAndCause(t *testing.T) {
	cause := fmt.Errorf("disk error")
	err := Wrap(cause, CodeInternal, "writing item")

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "writing item")
	assert.Contains(t, err.Error(), "disk error")
}

func TestWrappedSentinelSurvivesFmtErrorf(t *testing.T) {
	err := fmt.Errorf("fetch page: %w", ErrRateLimited)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 404, NotFound("x").HTTPStatus())
	assert.Equal(t, 400, Validation("x").HTTPStatus())
	assert.Equal(t, 409, Conflict("x").HTTPStatus())
	assert.Equal(t, 429, RateLimited("x").HTTPStatus())
	assert.Equal(t, 500, Internal("x").HTTPStatus())
}
