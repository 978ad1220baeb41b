package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDetail(rec, 400, "Invalid timeframe: 2w")

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body DetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid timeframe: 2w", body.Detail)
}

func TestWriteInternalError_HidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalError(rec)

	assert.Equal(t, 500, rec.Code)
	assert.Equal(t, `{"detail":"Internal server error"}`+"\n", rec.Body.String())
}

func TestWriteRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRateLimited(rec, 100, 1800)

	assert.Equal(t, 429, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1800", rec.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "1800", rec.Header().Get("Retry-After"))

	var body RateLimitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Rate limit exceeded", body.Error)
	assert.Equal(t, 100, body.Limit)
	assert.Equal(t, 1800, body.ResetInSeconds)
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]int{"repos_count": 2}))

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"repos_count": 2}`, rec.Body.String())
}
