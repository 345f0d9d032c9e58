// Package export renders staff downloads as Excel workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/labang-online/portal/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	CertificateSheet = "Certificate Requests"
	timeLayout       = "2006-01-02 15:04"
)

// CertificateHeader lists the export columns in order.
var CertificateHeader = []string{
	"Request ID",
	"Certificate",
	"Account ID",
	"Purpose",
	"Business Name",
	"Amount (PHP)",
	"Payment Mode",
	"Payment Status",
	"Payment Reference",
	"Claim Status",
	"Requested At",
	"Paid At",
	"Claimed At",
}

var certificateColumnWidths = []float64{16, 34, 12, 30, 26, 14, 14, 16, 22, 14, 18, 18, 18}

// Workbook builds .xlsx exports.
type Workbook struct {
	loc *time.Location
}

// NewWorkbook creates an exporter that renders timestamps in loc. A nil loc
// means UTC.
func NewWorkbook(loc *time.Location) *Workbook {
	if loc == nil {
		loc = time.UTC
	}
	return &Workbook{loc: loc}
}

// Certificates renders certificate requests as a single-sheet workbook.
func (w *Workbook) Certificates(requests []models.CertificateRequest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(CertificateSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(CertificateSheet, "A1", &CertificateHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(CertificateHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(CertificateSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	for i, width := range certificateColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(CertificateSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, req := range requests {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := w.certificateRow(req)
		if err := f.SetSheetRow(CertificateSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row for %s: %w", req.RequestID, err)
		}
	}

	if err := f.SetPanes(CertificateSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *Workbook) certificateRow(req models.CertificateRequest) []interface{} {
	mode := ""
	if req.PaymentMode != nil {
		mode = string(*req.PaymentMode)
	}
	return []interface{}{
		req.RequestID,
		req.CertificateType.Label(),
		req.AccountID,
		req.Purpose,
		req.BusinessName,
		float64(req.PaymentAmount) / 100,
		mode,
		string(req.PaymentStatus),
		req.PaymentReference,
		string(req.ClaimStatus),
		w.formatTime(&req.CreatedAt),
		w.formatTime(req.PaidAt),
		w.formatTime(req.ClaimedAt),
	}
}

func (w *Workbook) formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(w.loc).Format(timeLayout)
}
