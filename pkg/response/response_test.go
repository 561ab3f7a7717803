package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noor-academy/backend/pkg/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func send(err error) (*httptest.ResponseRecorder, Body) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err)
	var body Body
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   apperr.Kind
	}{
		{apperr.Unauthenticated("sign in required"), http.StatusUnauthorized, apperr.KindUnauthenticated},
		{apperr.Forbidden("not your roster"), http.StatusForbidden, apperr.KindForbidden},
		{fmt.Errorf("load: %w", apperr.NotFound("program not found")), http.StatusNotFound, apperr.KindNotFound},
		{apperr.Validation("title is required"), http.StatusBadRequest, apperr.KindValidation},
	}
	for _, tc := range cases {
		w, body := send(tc.err)
		assert.Equal(t, tc.status, w.Code)
		assert.False(t, body.Success)
		assert.Equal(t, string(tc.code), body.Code)
		assert.Equal(t, apperr.MessageOf(tc.err), body.Error)
	}
}

func TestErrorHidesInternalAndUpstreamDetail(t *testing.T) {
	w, body := send(errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", body.Error)

	w, body = send(apperr.Upstream(errors.New("dial tcp 10.0.0.5:5432"), "store: account"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream service unavailable", body.Error)
}

func TestErrorRevocationPendingCarriesAccount(t *testing.T) {
	id := uuid.New()
	w, body := send(apperr.RevocationPending(errors.New("idp down"), id))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, string(apperr.KindRevocationPending), body.Code)
	require.NotNil(t, body.Details)
	assert.Equal(t, id.String(), body.Details["account_id"])
}
