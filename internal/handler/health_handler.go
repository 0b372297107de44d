package handler

import (
	"encoding/json"
	"net/http"

	"github.com/wavechat/messaging-gateway/internal/registry"
)

// HealthHandler reports liveness plus the gateway instances currently
// announced in the registry, so operators can see cluster membership from
// any node.
type HealthHandler struct {
	registry   registry.InstanceRegistry
	instanceID string
}

func NewHealthHandler(reg registry.InstanceRegistry, instanceID string) *HealthHandler {
	return &HealthHandler{
		registry:   reg,
		instanceID: instanceID,
	}
}

type healthResponse struct {
	Status     string            `json:"status"`
	InstanceID string            `json:"instanceId"`
	Instances  map[string]string `json:"instances,omitempty"`
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		InstanceID: h.instanceID,
	}

	// Registry lookups are best effort; a redis outage must not fail the
	// liveness check.
	if instances, err := h.registry.ListInstances(r.Context()); err == nil {
		resp.Instances = instances
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
}
