package handlers

import (
	"net/http"

	"retail-backend/internal/middleware"
	"retail-backend/internal/models"
	"retail-backend/internal/services"
	"retail-backend/pkg/utils"
)

type ShiftHandler struct {
	Service *services.ShiftService
}

func NewShiftHandler(s *services.ShiftService) *ShiftHandler {
	return &ShiftHandler{Service: s}
}

// CheckIn handles POST /api/shifts/check-in. The cashier is always the caller.
func (h *ShiftHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req models.CheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.StoreID == 0 {
		// Fall back to the caller's home store
		if storeID, ok := middleware.GetStoreIDFromContext(r.Context()); ok {
			req.StoreID = storeID
		}
	}

	shift, err := h.Service.CheckIn(r.Context(), actor.UserID, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, shift)
}

// CheckOut handles POST /api/shifts/{id}/check-out
func (h *ShiftHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid shift ID")
		return
	}

	var req models.CheckOutRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	shift, err := h.Service.CheckOut(r.Context(), actor, id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, shift)
}

// GetOpen handles GET /api/shifts/open?store_id=. Managers may pass cashier_id.
func (h *ShiftHandler) GetOpen(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	storeID, err := queryInt(r, "store_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if storeID == 0 {
		if home, ok := middleware.GetStoreIDFromContext(r.Context()); ok {
			storeID = home
		} else {
			badRequest(w, "store_id is required")
			return
		}
	}
	cashierID, err := queryInt(r, "cashier_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if cashierID == 0 || !actor.IsManager() {
		cashierID = actor.UserID
	}

	shift, err := h.Service.GetOpenShift(r.Context(), cashierID, storeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// null when the cashier has no opened shift
	utils.JSON(w, http.StatusOK, shift)
}

// Get handles GET /api/shifts/{id}
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid shift ID")
		return
	}

	detail, err := h.Service.GetShift(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, detail)
}

// List handles GET /api/shifts?store_id=&cashier_id=&status=&limit=
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter models.ShiftFilter
	var err error
	if filter.StoreID, err = queryInt(r, "store_id"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if filter.CashierID, err = queryInt(r, "cashier_id"); err != nil {
		badRequest(w, err.Error())
		return
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		badRequest(w, err.Error())
		return
	}
	switch status := models.ShiftStatus(r.URL.Query().Get("status")); status {
	case "", models.ShiftOpened, models.ShiftClosed:
		filter.Status = status
	default:
		badRequest(w, "status must be opened or closed")
		return
	}

	shifts, err := h.Service.ListShifts(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, shifts)
}

// AddCashMovement handles POST /api/shifts/{id}/cash-movements
func (h *ShiftHandler) AddCashMovement(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid shift ID")
		return
	}

	var req models.CashMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	movement, err := h.Service.AddCashMovement(r.Context(), actor, id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, movement)
}

// ListCashMovements handles GET /api/shifts/{id}/cash-movements
func (h *ShiftHandler) ListCashMovements(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "Invalid shift ID")
		return
	}

	movements, err := h.Service.ListCashMovements(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, movements)
}
