package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scanwell/scanwell/internal/engine"
	scanerrors "github.com/scanwell/scanwell/internal/errors"
	"github.com/scanwell/scanwell/internal/scheduler"
)

// ScheduleHandler serves recurring scan management.
type ScheduleHandler struct {
	scheduler *scheduler.Scheduler // nil when scheduling is disabled
}

// NewScheduleHandler creates the schedule endpoints handler.
func NewScheduleHandler(s *scheduler.Scheduler) *ScheduleHandler {
	return &ScheduleHandler{scheduler: s}
}

// Register wires the schedule routes onto the router.
func (h *ScheduleHandler) Register(r *mux.Router) {
	r.HandleFunc("/schedules", h.list).Methods(http.MethodGet)
	r.HandleFunc("/schedules", h.create).Methods(http.MethodPost)
	r.HandleFunc("/schedules/{id}", h.remove).Methods(http.MethodDelete)
}

func (h *ScheduleHandler) disabled(w http.ResponseWriter) bool {
	if h.scheduler == nil {
		writeError(w, scanerrors.NewScanError(scanerrors.CodeNotFound,
			"scheduling is not enabled"))
		return true
	}
	return false
}

func (h *ScheduleHandler) list(w http.ResponseWriter, _ *http.Request) {
	if h.disabled(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.scheduler.List())
}

type createScheduleRequest struct {
	Name    string         `json:"name" validate:"required"`
	Cron    string         `json:"cron" validate:"required"`
	Targets string         `json:"targets" validate:"required"`
	Options engine.Options `json:"options"`
}

func (h *ScheduleHandler) create(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w) {
		return
	}

	var req createScheduleRequest
	if err := parseJSON(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	id, err := h.scheduler.Add(req.Name, req.Cron, req.Targets, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *ScheduleHandler) remove(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w) {
		return
	}
	if !h.scheduler.Remove(mux.Vars(r)["id"]) {
		writeError(w, scanerrors.NewScanError(scanerrors.CodeNotFound, "schedule not found"))
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
