package handlers

import (
	"net/http"

	"retail-backend/internal/models"
	"retail-backend/internal/services"
	"retail-backend/pkg/utils"
)

type ScheduleHandler struct {
	Service *services.ScheduleService
}

func NewScheduleHandler(s *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{Service: s}
}

// Create handles POST /api/schedules
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req models.CreateScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	entry, err := h.Service.CreateSchedule(r.Context(), actor, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, entry)
}

// Cancel handles POST /api/schedules/{id}/cancel
func (h *ScheduleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid schedule ID")
		return
	}

	entry, err := h.Service.CancelSchedule(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, entry)
}

// Get handles GET /api/schedules/{id}
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid schedule ID")
		return
	}

	entry, err := h.Service.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, entry)
}

// List handles GET /api/schedules?store_id=&employee_id=&date_from=&date_to=
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter models.ScheduleFilter
	var err error
	if filter.StoreID, err = queryInt(r, "store_id"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if filter.EmployeeID, err = queryInt(r, "employee_id"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if filter.DateFrom, err = queryDate(r, "date_from"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if filter.DateTo, err = queryDate(r, "date_to"); err != nil {
		badRequest(w, err.Error())
		return
	}

	entries, err := h.Service.ListSchedules(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, entries)
}

// Mine handles GET /api/schedules/mine?date_from=&date_to=
func (h *ScheduleHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	from, err := queryDate(r, "date_from")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := queryDate(r, "date_to")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	entries, err := h.Service.ListMySchedules(r.Context(), actor.UserID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, entries)
}

// ListTemplates handles GET /api/shift-templates
func (h *ScheduleHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Service.ListTemplates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, templates)
}

// GetTemplate handles GET /api/shift-templates/{id}
func (h *ScheduleHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid template ID")
		return
	}

	tmpl, err := h.Service.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, tmpl)
}
