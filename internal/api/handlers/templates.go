package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scanwell/scanwell/internal/engine"
	"github.com/scanwell/scanwell/internal/templates"
)

// TemplateHandler serves scan template CRUD.
type TemplateHandler struct {
	manager *templates.Manager
}

// NewTemplateHandler creates the template endpoints handler.
func NewTemplateHandler(manager *templates.Manager) *TemplateHandler {
	return &TemplateHandler{manager: manager}
}

// Register wires the template routes onto the router.
func (h *TemplateHandler) Register(r *mux.Router) {
	r.HandleFunc("/templates", h.list).Methods(http.MethodGet)
	r.HandleFunc("/templates", h.create).Methods(http.MethodPost)
	r.HandleFunc("/templates/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/templates/{id}", h.remove).Methods(http.MethodDelete)
}

func (h *TemplateHandler) list(w http.ResponseWriter, _ *http.Request) {
	list, err := h.manager.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createTemplateRequest struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description"`
	Options     engine.Options `json:"options"`
}

func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := parseJSON(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	tpl, err := h.manager.Save(req.Name, req.Description, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.manager.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
