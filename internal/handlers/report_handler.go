package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"retail-backend/internal/services"
	"retail-backend/internal/storage"
	"retail-backend/internal/timeutil"
	"retail-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
	Archive *storage.ReportArchive // nil when no bucket is configured
}

func NewReportHandler(s *services.ReportService, archive *storage.ReportArchive) *ReportHandler {
	return &ReportHandler{Service: s, Archive: archive}
}

func parseReportQuery(r *http.Request) (services.ReportQuery, error) {
	var q services.ReportQuery
	var err error
	if q.StoreID, err = queryInt(r, "store_id"); err != nil {
		return q, err
	}
	if q.CashierID, err = queryInt(r, "cashier_id"); err != nil {
		return q, err
	}
	if q.DateFrom, err = queryDate(r, "date_from"); err != nil {
		return q, err
	}
	if q.DateTo, err = queryDate(r, "date_to"); err != nil {
		return q, err
	}
	return q, nil
}

// ShiftReport handles GET /api/shifts/report. format=csv downloads a CSV file.
func (h *ReportHandler) ShiftReport(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	report, err := h.Service.ShiftReport(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		data, err := h.Service.GenerateReportCSV(report)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", reportFileName(q)))
		w.Write(data)
		return
	}

	utils.JSON(w, http.StatusOK, report)
}

// ShiftReportPDF handles GET /api/shifts/report/pdf
func (h *ReportHandler) ShiftReportPDF(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	report, err := h.Service.ShiftReport(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := h.Service.GenerateReportPDF(report, reportTitle(q))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if key := h.Service.ArchivePDF(r.Context(), q.StoreID, data); key != "" {
		w.Header().Set("X-Report-Archive-Key", key)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", reportFileName(q)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// ListArchived handles GET /api/shifts/report/archive?store_id=
func (h *ReportHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	storeID, err := queryInt(r, "store_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if h.Archive == nil {
		utils.JSON(w, http.StatusOK, []storage.ArchivedReport{})
		return
	}

	prefix := "shift-reports/"
	if storeID > 0 {
		prefix += strconv.Itoa(storeID) + "/"
	}
	reports, err := h.Archive.List(r.Context(), prefix)
	if err != nil {
		writeError(w, r, services.ErrTransient("report archive is unavailable"))
		return
	}
	utils.JSON(w, http.StatusOK, reports)
}

func reportTitle(q services.ReportQuery) string {
	title := "All stores"
	if q.StoreID > 0 {
		title = fmt.Sprintf("Store %d", q.StoreID)
	}
	if q.CashierID > 0 {
		title += fmt.Sprintf(", cashier %d", q.CashierID)
	}
	if q.DateFrom != nil || q.DateTo != nil {
		from, to := "...", "..."
		if q.DateFrom != nil {
			from = q.DateFrom.Format(timeutil.DateLayout)
		}
		if q.DateTo != nil {
			to = q.DateTo.Format(timeutil.DateLayout)
		}
		title += fmt.Sprintf(" (%s to %s)", from, to)
	}
	return title
}

func reportFileName(q services.ReportQuery) string {
	name := "shift_report"
	if q.StoreID > 0 {
		name += "_store" + strconv.Itoa(q.StoreID)
	}
	if q.DateFrom != nil {
		name += "_" + q.DateFrom.Format("20060102")
	}
	if q.DateTo != nil {
		name += "_" + q.DateTo.Format("20060102")
	}
	return name
}
