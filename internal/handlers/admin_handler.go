package handlers

import (
	"log"
	"net/http"

	"retail-backend/internal/services"
	"retail-backend/pkg/utils"
)

type AdminHandler struct {
	Sweep *services.AbsenceSweep
}

func NewAdminHandler(sweep *services.AbsenceSweep) *AdminHandler {
	return &AdminHandler{Sweep: sweep}
}

// RunAbsenceSweep handles POST /api/admin/absence-sweep
func (h *AdminHandler) RunAbsenceSweep(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	marked, err := h.Sweep.RunOnce(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.Printf("[AdminHandler] User %d ran the absence sweep manually (%d marked)", actor.UserID, marked)
	utils.JSON(w, http.StatusOK, map[string]int64{"marked": marked})
}
