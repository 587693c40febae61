package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scanwell/scanwell/internal/discovery"
	scanerrors "github.com/scanwell/scanwell/internal/errors"
)

// DiscoveryHandler serves host discovery sweeps.
type DiscoveryHandler struct {
	sweeper *discovery.Sweeper // nil when discovery is disabled
}

// NewDiscoveryHandler creates the discovery endpoints handler.
func NewDiscoveryHandler(sweeper *discovery.Sweeper) *DiscoveryHandler {
	return &DiscoveryHandler{sweeper: sweeper}
}

// Register wires the discovery routes onto the router.
func (h *DiscoveryHandler) Register(r *mux.Router) {
	r.HandleFunc("/discovery", h.sweep).Methods(http.MethodPost)
}

type sweepRequest struct {
	Network string `json:"network" validate:"required"`
}

type sweepResponse struct {
	Network string           `json:"network"`
	Hosts   []discovery.Host `json:"hosts"`
	Count   int              `json:"count"`
}

func (h *DiscoveryHandler) sweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		writeError(w, scanerrors.NewScanError(scanerrors.CodeNotFound,
			"discovery is not enabled"))
		return
	}

	var req sweepRequest
	if err := parseJSON(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	hosts, err := h.sweeper.Sweep(r.Context(), req.Network)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{
		Network: req.Network,
		Hosts:   hosts,
		Count:   len(hosts),
	})
}
