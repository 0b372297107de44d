package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavechat/messaging-gateway/internal/registry"
)

type stubRegistry struct {
	registry.NoopRegistry
	instances map[string]string
	err       error
}

func (s *stubRegistry) ListInstances(ctx context.Context) (map[string]string, error) {
	return s.instances, s.err
}

func TestHealthReportsInstances(t *testing.T) {
	reg := &stubRegistry{instances: map[string]string{
		"inst-a": "10.0.0.1:8090",
		"inst-b": "10.0.0.2:8090",
	}}
	h := NewHealthHandler(reg, "inst-a")

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "inst-a", resp.InstanceID)
	assert.Len(t, resp.Instances, 2)
	assert.Equal(t, "10.0.0.2:8090", resp.Instances["inst-b"])
}

func TestHealthSurvivesRegistryFailure(t *testing.T) {
	reg := &stubRegistry{err: errors.New("redis down")}
	h := NewHealthHandler(reg, "inst-a")

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Instances)
}

func TestHealthWithoutRegistry(t *testing.T) {
	h := NewHealthHandler(registry.NewNoopRegistry(), "inst-a")

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Instances)
}
