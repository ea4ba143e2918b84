package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"

	"retail-backend/internal/models"
	"retail-backend/internal/timeutil"
)

// ReportUploader archives exported report files.
type ReportUploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
}

// ReportService builds cash reconciliation reports over closed shifts.
type ReportService struct {
	ShiftRepo   ShiftStore
	PaymentRepo PaymentReader
	Archive     ReportUploader // optional
	Clock       timeutil.Clock
}

func NewReportService(shiftRepo ShiftStore, paymentRepo PaymentReader, archive ReportUploader, clock timeutil.Clock) *ReportService {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &ReportService{
		ShiftRepo:   shiftRepo,
		PaymentRepo: paymentRepo,
		Archive:     archive,
		Clock:       clock,
	}
}

// ReportQuery takes calendar dates; both ends are inclusive.
type ReportQuery struct {
	StoreID   int
	CashierID int
	DateFrom  *time.Time
	DateTo    *time.Time
}

// ShiftReport aggregates closed shifts into per-shift rows plus a summary.
func (s *ReportService) ShiftReport(ctx context.Context, q ReportQuery) (*models.ShiftReport, error) {
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return nil, ErrValidation("date_to must not be before date_from")
	}

	filter := models.ShiftReportFilter{StoreID: q.StoreID, CashierID: q.CashierID}
	if q.DateFrom != nil {
		from := time.Date(q.DateFrom.Year(), q.DateFrom.Month(), q.DateFrom.Day(), 0, 0, 0, 0, timeutil.Location)
		filter.DateFrom = &from
	}
	if q.DateTo != nil {
		to := time.Date(q.DateTo.Year(), q.DateTo.Month(), q.DateTo.Day()+1, 0, 0, 0, 0, timeutil.Location)
		filter.DateTo = &to
	}

	shifts, err := s.ShiftRepo.ListForReport(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(shifts))
	for _, sh := range shifts {
		ids = append(ids, sh.ID)
	}
	totals, err := s.PaymentRepo.TotalsByShift(ctx, ids)
	if err != nil {
		return nil, err
	}

	return BuildShiftReport(shifts, totals), nil
}

// BuildShiftReport is the pure aggregation behind ShiftReport.
func BuildShiftReport(shifts []*models.Shift, totals map[int]models.PaymentTotals) *models.ShiftReport {
	report := &models.ShiftReport{Rows: make([]*models.ShiftReportRow, 0, len(shifts))}
	sum := &report.Summary

	for _, sh := range shifts {
		t := totals[sh.ID]
		closing := decimal.Zero
		if sh.ClosingCash != nil {
			closing = *sh.ClosingCash
		}
		discrepancy := closing.Sub(sh.OpeningCash.Add(sh.CashSalesTotal))

		row := &models.ShiftReportRow{
			ShiftID:          sh.ID,
			StoreID:          sh.StoreID,
			CashierID:        sh.CashierID,
			CashierName:      sh.CashierName,
			OpenedAt:         sh.OpenedAt,
			ClosedAt:         sh.ClosedAt,
			OpeningCash:      sh.OpeningCash,
			ClosingCash:      closing,
			CashSalesTotal:   sh.CashSalesTotal,
			BankTotal:        t.NonCash,
			TotalSales:       sh.CashSalesTotal.Add(t.NonCash),
			TransactionCount: t.TransactionCount,
			Discrepancy:      discrepancy,
			LateMinutes:      sh.LateMinutes,
			EarlyMinutes:     sh.EarlyMinutes,
		}
		report.Rows = append(report.Rows, row)

		sum.TotalShifts++
		sum.TotalOpeningCash = sum.TotalOpeningCash.Add(row.OpeningCash)
		sum.TotalClosingCash = sum.TotalClosingCash.Add(row.ClosingCash)
		sum.TotalCashSales = sum.TotalCashSales.Add(row.CashSalesTotal)
		sum.TotalBankSales = sum.TotalBankSales.Add(row.BankTotal)
		sum.TotalSales = sum.TotalSales.Add(row.TotalSales)
		sum.TotalDiscrepancy = sum.TotalDiscrepancy.Add(discrepancy)
		if !discrepancy.IsZero() {
			sum.ShiftsWithDifference++
		}
	}

	if sum.TotalShifts > 0 {
		sum.AverageDiscrepancy = sum.TotalDiscrepancy.Div(decimal.NewFromInt(int64(sum.TotalShifts))).Round(2)
	}
	return report
}

// GenerateReportPDF renders the report as a landscape A4 table.
func (s *ReportService) GenerateReportPDF(report *models.ShiftReport, title string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "") // Landscape for more columns
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(277, 12, "Shift Cash Reconciliation", "", 1, "C", false, 0, "")
	if title != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(277, 8, title, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(277, 6, fmt.Sprintf("Generated: %s", s.Clock.Now().Format(timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	sum := report.Summary
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(277, 8, "Summary", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(69, 8, fmt.Sprintf("Shifts: %d", sum.TotalShifts), "1", 0, "C", false, 0, "")
	pdf.CellFormat(69, 8, "Cash sales: "+sum.TotalCashSales.StringFixed(2), "1", 0, "C", false, 0, "")
	pdf.CellFormat(69, 8, "Bank sales: "+sum.TotalBankSales.StringFixed(2), "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 8, "Total sales: "+sum.TotalSales.StringFixed(2), "1", 1, "C", false, 0, "")
	pdf.CellFormat(69, 8, "Opening: "+sum.TotalOpeningCash.StringFixed(2), "1", 0, "C", false, 0, "")
	pdf.CellFormat(69, 8, "Closing: "+sum.TotalClosingCash.StringFixed(2), "1", 0, "C", false, 0, "")
	pdf.CellFormat(69, 8, "Discrepancy: "+sum.TotalDiscrepancy.StringFixed(2)+
		" (avg "+sum.AverageDiscrepancy.StringFixed(2)+")", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 8, fmt.Sprintf("Shifts with difference: %d", sum.ShiftsWithDifference), "1", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	headers := []struct {
		label string
		width float64
	}{
		{"#", 10}, {"Shift", 15}, {"Cashier", 45}, {"Opened", 32}, {"Closed", 32},
		{"Opening", 22}, {"Closing", 22}, {"Cash", 22}, {"Bank", 22}, {"Txns", 13},
		{"Diff", 22}, {"Late/Early", 20},
	}
	for i, h := range headers {
		ln := 0
		if i == len(headers)-1 {
			ln = 1
		}
		pdf.CellFormat(h.width, 7, h.label, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Arial", "", 9)
	for i, row := range report.Rows {
		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(245, 245, 245)
		}

		name := row.CashierName
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		closed := ""
		if row.ClosedAt != nil {
			closed = row.ClosedAt.In(timeutil.Location).Format("02-Jan 03:04 PM")
		}

		pdf.CellFormat(10, 6, strconv.Itoa(i+1), "1", 0, "C", true, 0, "")
		pdf.CellFormat(15, 6, strconv.Itoa(row.ShiftID), "1", 0, "C", true, 0, "")
		pdf.CellFormat(45, 6, name, "1", 0, "L", true, 0, "")
		pdf.CellFormat(32, 6, row.OpenedAt.In(timeutil.Location).Format("02-Jan 03:04 PM"), "1", 0, "C", true, 0, "")
		pdf.CellFormat(32, 6, closed, "1", 0, "C", true, 0, "")
		pdf.CellFormat(22, 6, row.OpeningCash.StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.CellFormat(22, 6, row.ClosingCash.StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.CellFormat(22, 6, row.CashSalesTotal.StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.CellFormat(22, 6, row.BankTotal.StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.CellFormat(13, 6, strconv.Itoa(row.TransactionCount), "1", 0, "C", true, 0, "")
		pdf.CellFormat(22, 6, row.Discrepancy.StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d/%d", intOrZero(row.LateMinutes), intOrZero(row.EarlyMinutes)), "1", 1, "C", true, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateReportCSV writes one line per shift row.
func (s *ReportService) GenerateReportCSV(report *models.ShiftReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{
		"shift_id", "store_id", "cashier_id", "cashier_name", "opened_at", "closed_at",
		"opening_cash", "closing_cash", "cash_sales", "bank_sales", "total_sales",
		"transactions", "discrepancy", "late_minutes", "early_minutes",
	})
	for _, row := range report.Rows {
		closed := ""
		if row.ClosedAt != nil {
			closed = row.ClosedAt.In(timeutil.Location).Format(timeutil.DateTimeLayout)
		}
		w.Write([]string{
			strconv.Itoa(row.ShiftID),
			strconv.Itoa(row.StoreID),
			strconv.Itoa(row.CashierID),
			row.CashierName,
			row.OpenedAt.In(timeutil.Location).Format(timeutil.DateTimeLayout),
			closed,
			row.OpeningCash.StringFixed(2),
			row.ClosingCash.StringFixed(2),
			row.CashSalesTotal.StringFixed(2),
			row.BankTotal.StringFixed(2),
			row.TotalSales.StringFixed(2),
			strconv.Itoa(row.TransactionCount),
			row.Discrepancy.StringFixed(2),
			strconv.Itoa(intOrZero(row.LateMinutes)),
			strconv.Itoa(intOrZero(row.EarlyMinutes)),
		})
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// ArchivePDF stores an exported PDF under shift-reports/<store>/<timestamp>.pdf.
// Failures are logged only; the export itself never depends on the archive.
func (s *ReportService) ArchivePDF(ctx context.Context, storeID int, data []byte) string {
	if s.Archive == nil {
		return ""
	}

	store := "all"
	if storeID > 0 {
		store = strconv.Itoa(storeID)
	}
	key := fmt.Sprintf("shift-reports/%s/%s.pdf", store, s.Clock.Now().Format("20060102-150405"))

	if err := s.Archive.Upload(ctx, key, "application/pdf", data); err != nil {
		log.Printf("[ReportService] Failed to archive report: %v", err)
		return ""
	}
	log.Printf("[ReportService] Archived report %s (%d bytes)", key, len(data))
	return key
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
