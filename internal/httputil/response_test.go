package httputil

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		write      func(http.ResponseWriter)
		wantStatus int
		wantError  string
	}{
		{"method not allowed", MethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "Invalid 'units' parameter") }, http.StatusBadRequest, "Invalid 'units' parameter"},
		{"forbidden", Forbidden, http.StatusForbidden, "forbidden"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "Run not found") }, http.StatusNotFound, "Run not found"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "Failed to list runs") }, http.StatusInternalServerError, "Failed to list runs"},
		{"custom", func(w http.ResponseWriter) { WriteJSONError(w, http.StatusConflict, "run exists") }, http.StatusConflict, "run exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"frames": 12})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"frames":12}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteJSONOK(rec, []string{"P1", "G1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["P1","G1"]`, rec.Body.String())
}

func TestWriteJSON_EncodeFailureKeepsStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONOK(rec, math.NaN())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
