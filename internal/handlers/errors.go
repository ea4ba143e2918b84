package handlers

import (
	"errors"
	"log"
	"net/http"

	"retail-backend/internal/middleware"
	"retail-backend/internal/services"
	"retail-backend/pkg/utils"
)

// writeError maps service errors onto HTTP statuses. Anything that is not a
// DomainError is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *services.DomainError
	if !errors.As(err, &de) {
		log.Printf("[HTTP] %s %s %s failed: %v", middleware.GetRequestID(r.Context()), r.Method, r.URL.Path, err)
		utils.Error(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	utils.Error(w, statusFor(de.Kind), de.Code, de.Message)
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuth:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict, services.KindState:
		return http.StatusConflict
	case services.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	utils.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", msg)
}
