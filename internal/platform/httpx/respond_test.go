package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextfactory/nextfactory/internal/shared"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail bool
	}{
		{fmt.Errorf("lookup: %w", shared.ErrNotFound), http.StatusNotFound, true},
		{fmt.Errorf("%w: limit", ErrValidation), http.StatusBadRequest, true},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized, true},
		{ErrForbidden, http.StatusForbidden, true},
		{fmt.Errorf("%w: already running", ErrConflict), http.StatusConflict, true},
		{errors.New("user has no role"), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, tc.status, problem.Status)
			if tc.detail {
				require.Equal(t, tc.err.Error(), problem.Detail)
			} else {
				require.Empty(t, problem.Detail)
			}
		})
	}
}

func TestListNeverSendsNull(t *testing.T) {
	rec := httptest.NewRecorder()
	List[string](rec, nil)
	require.JSONEq(t, `{"data":[],"count":0}`, rec.Body.String())
}
