package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func readyResponse(t *testing.T, deps map[string]Pinger, logger *zap.Logger) (int, map[string]any, string) {
	t.Helper()
	app := fiber.New()
	app.Get("/health/ready", NewHealthHandler("task-service", "v1", deps, logger).Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body, string(raw)
}

func TestReadyAllHealthy(t *testing.T) {
	status, body, _ := readyResponse(t, map[string]Pinger{"postgres": stubPinger{}, "redis": nil}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "ready", data["status"])
	assert.Equal(t, map[string]any{"postgres": "ok"}, data["dependencies"])
}

func TestReadyDependencyDown(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	status, body, raw := readyResponse(t, map[string]Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{err: errors.New("dial tcp 10.0.0.7:6379: connection refused")},
	}, zap.New(core))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, false, body["success"])
	deps := body["data"].(map[string]any)["dependencies"].(map[string]any)
	assert.Equal(t, "unavailable", deps["redis"])
	assert.Equal(t, "ok", deps["postgres"])
	assert.NotContains(t, raw, "connection refused")
	assert.NotContains(t, raw, "10.0.0.7")

	entries := logs.FilterField(zap.String("dependency", "redis")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "readiness check failed", entries[0].Message)
}
