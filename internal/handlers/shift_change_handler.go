package handlers

import (
	"net/http"

	"retail-backend/internal/models"
	"retail-backend/internal/services"
	"retail-backend/pkg/utils"
)

type ShiftChangeHandler struct {
	Service *services.ShiftChangeService
}

func NewShiftChangeHandler(s *services.ShiftChangeService) *ShiftChangeHandler {
	return &ShiftChangeHandler{Service: s}
}

// Create handles POST /api/shift-changes
func (h *ShiftChangeHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req models.CreateShiftChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	scr, err := h.Service.CreateRequest(r.Context(), actor, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, scr)
}

// Review handles POST /api/shift-changes/{id}/review
func (h *ShiftChangeHandler) Review(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid request ID")
		return
	}

	var req models.ReviewShiftChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	scr, err := h.Service.ReviewRequest(r.Context(), actor, id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, scr)
}

// Cancel handles POST /api/shift-changes/{id}/cancel
func (h *ShiftChangeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid request ID")
		return
	}

	scr, err := h.Service.CancelRequest(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, scr)
}

// Get handles GET /api/shift-changes/{id}
func (h *ShiftChangeHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid request ID")
		return
	}

	scr, err := h.Service.GetRequest(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, scr)
}

// List handles GET /api/shift-changes?store_id=&status=
func (h *ShiftChangeHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID, err := queryInt(r, "store_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	requests, err := h.Service.ListRequests(r.Context(), models.ShiftChangeFilter{
		StoreID: storeID,
		Status:  models.ShiftChangeStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, requests)
}

// Mine handles GET /api/shift-changes/mine
func (h *ShiftChangeHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	requests, err := h.Service.ListMyRequests(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, requests)
}

// PendingCount handles GET /api/shift-changes/pending-count?store_id=
func (h *ShiftChangeHandler) PendingCount(w http.ResponseWriter, r *http.Request) {
	storeID, err := queryInt(r, "store_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	count, err := h.Service.PendingCount(r.Context(), storeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int{"store_id": storeID, "pending": count})
}
