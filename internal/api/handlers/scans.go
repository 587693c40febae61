package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scanwell/scanwell/internal/db"
	"github.com/scanwell/scanwell/internal/engine"
	scanerrors "github.com/scanwell/scanwell/internal/errors"
	"github.com/scanwell/scanwell/internal/logging"
	"github.com/scanwell/scanwell/internal/session"
	"github.com/scanwell/scanwell/internal/targets"
	"github.com/scanwell/scanwell/internal/templates"
)

// ScanHandler serves scan session endpoints.
type ScanHandler struct {
	coordinator *session.Coordinator
	supervisor  *engine.Supervisor
	expander    *targets.Expander
	store       *db.SessionStore // nil when persistence is not configured
	templates   *templates.Manager
	logger      *logging.Logger
}

// NewScanHandler creates the scan endpoints handler.
func NewScanHandler(
	coordinator *session.Coordinator,
	supervisor *engine.Supervisor,
	expander *targets.Expander,
	store *db.SessionStore,
	tpl *templates.Manager,
	logger *logging.Logger,
) *ScanHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScanHandler{
		coordinator: coordinator,
		supervisor:  supervisor,
		expander:    expander,
		store:       store,
		templates:   tpl,
		logger:      logger.WithComponent("api.scans"),
	}
}

// Register wires the scan routes onto the router.
func (h *ScanHandler) Register(r *mux.Router) {
	r.HandleFunc("/scans", h.startScan).Methods(http.MethodPost)
	r.HandleFunc("/scans", h.listScans).Methods(http.MethodGet)
	r.HandleFunc("/scans/{id}", h.getScan).Methods(http.MethodGet)
	r.HandleFunc("/scans/{id}", h.cancelScan).Methods(http.MethodDelete)
	r.HandleFunc("/scans/{id}/results", h.getResults).Methods(http.MethodGet)
	r.HandleFunc("/jobs", h.listJobs).Methods(http.MethodGet)
	r.HandleFunc("/summary", h.getSummary).Methods(http.MethodGet)
}

// startScanRequest is the scan submission body. Targets is raw
// expander input text; a template id, when given, supplies the options.
type startScanRequest struct {
	Targets    string         `json:"targets" validate:"required"`
	Options    engine.Options `json:"options"`
	TemplateID string         `json:"template_id,omitempty"`
}

type startScanResponse struct {
	SessionID    string `json:"session_id"`
	TotalTargets int    `json:"total_targets"`
	Truncated    bool   `json:"truncated,omitempty"`
}

func (h *ScanHandler) startScan(w http.ResponseWriter, r *http.Request) {
	var req startScanRequest
	if err := parseJSON(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	opts := req.Options
	if req.TemplateID != "" {
		tpl, err := h.templates.Get(req.TemplateID)
		if err != nil {
			writeError(w, err)
			return
		}
		opts = tpl.Options
	}
	if opts.Preset != "" && !engine.ValidPreset(opts.Preset) {
		writeValidationError(w, "unrecognized preset: "+string(opts.Preset))
		return
	}

	expansion := h.expander.Expand(req.Targets)
	if len(expansion.Targets) == 0 {
		writeValidationError(w, "no scannable targets after expansion")
		return
	}

	sessionID, err := h.coordinator.Start(expansion.Targets, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startScanResponse{
		SessionID:    sessionID,
		TotalTargets: len(expansion.Targets),
		Truncated:    expansion.Truncated,
	})
}

func (h *ScanHandler) listScans(w http.ResponseWriter, r *http.Request) {
	live := h.coordinator.List()
	if h.store == nil {
		writeJSON(w, http.StatusOK, live)
		return
	}

	stored, err := h.store.ListSessions(r.Context(), 0)
	if err != nil {
		writeError(w, err)
		return
	}

	// Live snapshots win over their stored counterparts.
	seen := make(map[string]bool, len(live))
	merged := make([]session.Session, 0, len(live)+len(stored))
	for _, s := range live {
		seen[s.ID] = true
		merged = append(merged, s)
	}
	for _, s := range stored {
		if !seen[s.ID] {
			merged = append(merged, *s)
		}
	}
	writeJSON(w, http.StatusOK, merged)
}

func (h *ScanHandler) getScan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if sess, ok := h.coordinator.Get(id); ok {
		writeJSON(w, http.StatusOK, sess)
		return
	}
	if h.store != nil {
		sess, err := h.store.GetSession(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, sess)
			return
		}
		if !scanerrors.IsNotFound(err) {
			writeError(w, err)
			return
		}
	}
	writeError(w, scanerrors.NewScanError(scanerrors.CodeNotFound, "session not found"))
}

func (h *ScanHandler) cancelScan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.coordinator.Cancel(id) {
		writeError(w, scanerrors.NewScanError(scanerrors.CodeNotFound,
			"session not running"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"session_id": id, "cancelled": true})
}

func (h *ScanHandler) getResults(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, scanerrors.NewScanError(scanerrors.CodeNotFound,
			"result storage is not configured"))
		return
	}
	results, err := h.store.ListResults(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *ScanHandler) listJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.supervisor.ActiveJobs())
}

func (h *ScanHandler) getSummary(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, scanerrors.NewScanError(scanerrors.CodeNotFound,
			"result storage is not configured"))
		return
	}
	summary, err := h.store.GetSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
