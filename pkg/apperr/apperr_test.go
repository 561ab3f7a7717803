package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("program not found")))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	wrapped := fmt.Errorf("load: %w", Forbidden("not your roster"))
	assert.Equal(t, KindForbidden, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindForbidden))
	assert.False(t, Is(nil, KindForbidden))
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("ctx: %w", Validation("title is required"))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestRevocationPendingIsDistinctFromUpstream(t *testing.T) {
	id := uuid.New()
	cause := errors.New("idp timeout")
	err := RevocationPending(cause, id)

	assert.True(t, errors.Is(err, ErrRevocationPending))
	assert.False(t, errors.Is(err, ErrUpstream))
	assert.ErrorIs(t, err, cause)
	require.NotNil(t, DetailsOf(err))
	assert.Equal(t, id.String(), DetailsOf(err)["account_id"])
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindUpstream, "x"))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthenticated:   http.StatusUnauthorized,
		KindForbidden:         http.StatusForbidden,
		KindNotFound:          http.StatusNotFound,
		KindValidation:        http.StatusBadRequest,
		KindConflict:          http.StatusConflict,
		KindUpstream:          http.StatusBadGateway,
		KindRevocationPending: http.StatusBadGateway,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), string(kind))
	}
}
