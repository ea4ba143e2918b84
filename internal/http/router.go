package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retail-backend/internal/handlers"
	"retail-backend/internal/middleware"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	shiftHandler *handlers.ShiftHandler,
	scheduleHandler *handlers.ScheduleHandler,
	shiftChangeHandler *handlers.ShiftChangeHandler,
	reportHandler *handlers.ReportHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	// Runs after matching so metrics see the route template
	r.Use(middleware.MetricsMiddleware)

	anyone := func(h http.HandlerFunc) http.Handler { return authMiddleware.Authenticate(h) }
	manager := func(h http.HandlerFunc) http.Handler { return authMiddleware.RequireManager(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMiddleware.RequireAdmin(h) }

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/me", anyone(authHandler.Me)).Methods("GET")

	// Shifts: literal paths before /{id}
	api.Handle("/shifts/check-in", anyone(shiftHandler.CheckIn)).Methods("POST")
	api.Handle("/shifts/open", anyone(shiftHandler.GetOpen)).Methods("GET")
	api.Handle("/shifts/report", manager(reportHandler.ShiftReport)).Methods("GET")
	api.Handle("/shifts/report/pdf", manager(reportHandler.ShiftReportPDF)).Methods("GET")
	api.Handle("/shifts/report/archive", manager(reportHandler.ListArchived)).Methods("GET")
	api.Handle("/shifts", manager(shiftHandler.List)).Methods("GET")
	api.Handle("/shifts/{id:[0-9]+}", anyone(shiftHandler.Get)).Methods("GET")
	api.Handle("/shifts/{id:[0-9]+}/check-out", anyone(shiftHandler.CheckOut)).Methods("POST")
	api.Handle("/shifts/{id:[0-9]+}/cash-movements", anyone(shiftHandler.AddCashMovement)).Methods("POST")
	api.Handle("/shifts/{id:[0-9]+}/cash-movements", anyone(shiftHandler.ListCashMovements)).Methods("GET")

	// Schedules and templates
	api.Handle("/schedules", manager(scheduleHandler.List)).Methods("GET")
	api.Handle("/schedules", manager(scheduleHandler.Create)).Methods("POST")
	api.Handle("/schedules/mine", anyone(scheduleHandler.Mine)).Methods("GET")
	api.Handle("/schedules/{id:[0-9]+}", anyone(scheduleHandler.Get)).Methods("GET")
	api.Handle("/schedules/{id:[0-9]+}/cancel", manager(scheduleHandler.Cancel)).Methods("POST")
	api.Handle("/shift-templates", anyone(scheduleHandler.ListTemplates)).Methods("GET")
	api.Handle("/shift-templates/{id:[0-9]+}", anyone(scheduleHandler.GetTemplate)).Methods("GET")

	// Shift change requests
	api.Handle("/shift-changes", anyone(shiftChangeHandler.Create)).Methods("POST")
	api.Handle("/shift-changes", manager(shiftChangeHandler.List)).Methods("GET")
	api.Handle("/shift-changes/mine", anyone(shiftChangeHandler.Mine)).Methods("GET")
	api.Handle("/shift-changes/pending-count", manager(shiftChangeHandler.PendingCount)).Methods("GET")
	api.Handle("/shift-changes/{id:[0-9]+}", anyone(shiftChangeHandler.Get)).Methods("GET")
	api.Handle("/shift-changes/{id:[0-9]+}/review", manager(shiftChangeHandler.Review)).Methods("POST")
	api.Handle("/shift-changes/{id:[0-9]+}/cancel", anyone(shiftChangeHandler.Cancel)).Methods("POST")

	// Admin
	api.Handle("/admin/absence-sweep", admin(adminHandler.RunAbsenceSweep)).Methods("POST")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
