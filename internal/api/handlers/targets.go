package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scanwell/scanwell/internal/targets"
)

// TargetHandler serves target expansion previews, letting clients see
// exactly which hosts a piece of input text resolves to before
// committing to a scan.
type TargetHandler struct {
	expander *targets.Expander
}

// NewTargetHandler creates the target endpoints handler.
func NewTargetHandler(expander *targets.Expander) *TargetHandler {
	return &TargetHandler{expander: expander}
}

// Register wires the target routes onto the router.
func (h *TargetHandler) Register(r *mux.Router) {
	r.HandleFunc("/targets/preview", h.preview).Methods(http.MethodPost)
}

type previewRequest struct {
	Targets string `json:"targets" validate:"required"`
}

// nominalSecondsPerTarget is the rough per-host duration used for the
// preview estimate. Actual scan time varies wildly with the options.
const nominalSecondsPerTarget = 30

type previewResponse struct {
	Targets          []targets.Target `json:"targets"`
	Count            int              `json:"count"`
	Truncated        bool             `json:"truncated,omitempty"`
	EstimatedSeconds int              `json:"estimated_seconds"`
}

func (h *TargetHandler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := parseJSON(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	expansion := h.expander.Expand(req.Targets)
	writeJSON(w, http.StatusOK, previewResponse{
		Targets:          expansion.Targets,
		Count:            len(expansion.Targets),
		Truncated:        expansion.Truncated,
		EstimatedSeconds: len(expansion.Targets) * nominalSecondsPerTarget,
	})
}
