package leavehandler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"hrleave/internal/domain/leave"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{leave.NewOverlapError(leave.LeaveRequest{ID: "r1"}), http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("load: %w", leave.ErrRequestNotFound), http.StatusNotFound, "not_found"},
		{leave.ErrUnauthorized, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: request is APPROVED", leave.ErrInvalidState), http.StatusConflict, "invalid_state"},
		{leave.ErrConflict, http.StatusConflict, "conflict"},
		{leave.ErrSweepInProgress, http.StatusConflict, "conflict"},
		{errors.New("db down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Contains(t, rec.Body.String(), `"code":"`+tc.code+`"`)
	}
}

func TestWriteErrorIncludesRule(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), leave.NewOverlapError(leave.LeaveRequest{ID: "r1"}))
	assert.Contains(t, rec.Body.String(), `"rule":"overlap"`)
}
