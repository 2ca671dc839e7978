package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradews/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pingStorage struct{ err error }

func (s pingStorage) SaveAggregate(context.Context, model.Candle, model.SyntheticTrade) error {
	return nil
}
func (s pingStorage) LatestCandle(context.Context, string) (*model.Candle, error) {
	return nil, model.ErrNoCandle
}
func (s pingStorage) CandlesInRange(context.Context, string, time.Time, time.Time) ([]model.Candle, error) {
	return nil, nil
}
func (s pingStorage) Ping(context.Context) error { return s.err }
func (s pingStorage) Close() error               { return nil }

type pingBuffer struct{ err error }

func (b pingBuffer) Append(context.Context, string, model.RawTrade) error { return nil }
func (b pingBuffer) Drain(context.Context, string) ([]model.RawTrade, error) {
	return nil, nil
}
func (b pingBuffer) Ping(context.Context) error { return b.err }
func (b pingBuffer) Close() error               { return nil }

type stubStats struct{ rejected int64 }

func (s stubStats) Rejected() int64 { return s.rejected }

func doCheck(t *testing.T, h *HealthHandler) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthyWhenAllChecksPass(t *testing.T) {
	h := NewHealthHandler(pingStorage{}, pingBuffer{}, stubStats{rejected: 3}, testLogger())

	code, body := doCheck(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(3), body["rejected_trades"])
}

func TestDegradedWhenStorageDown(t *testing.T) {
	h := NewHealthHandler(pingStorage{err: errors.New("down")}, pingBuffer{}, nil, testLogger())

	code, body := doCheck(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "unhealthy", checks["database"])
	assert.Equal(t, "healthy", checks["buffer"])
}

func TestDegradedWhenBufferDown(t *testing.T) {
	h := NewHealthHandler(pingStorage{}, pingBuffer{err: errors.New("down")}, nil, testLogger())

	code, body := doCheck(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "unhealthy", checks["buffer"])
}
