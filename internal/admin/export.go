package admin

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

const (
	queueSheet   = "Pending"
	summarySheet = "Summary"
)

var queueColumns = []string{
	"Property ID", "Title", "Seller", "Email", "City", "Price", "Status",
	"Payment", "Fee", "Submitted", "Last update",
}

// Workbook renders the admin queue and statistics as an Excel file
type Workbook struct {
	file        *excelize.File
	headerStyle int
	dateStyle   int
	moneyStyle  int
}

func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", queueSheet); err != nil {
		return nil, err
	}
	w := &Workbook{file: f}

	var err error
	if w.headerStyle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"228B54"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	dateFmt := "yyyy-mm-dd hh:mm"
	if w.dateStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt}); err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}
	moneyFmt := "#,##0.00"
	if w.moneyStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt}); err != nil {
		return nil, fmt.Errorf("failed to create number style: %w", err)
	}
	return w, nil
}

// WriteQueue fills the pending sheet with one row per item
func (w *Workbook) WriteQueue(items []QueueItem) error {
	if err := w.writeHeader(queueSheet, queueColumns); err != nil {
		return err
	}
	for i, it := range items {
		row := i + 2
		values := []interface{}{
			it.PropertyID.String(), it.Title, it.SellerName, it.SellerEmail, it.City,
			it.Price, string(it.Status), it.PaymentStatus, it.FeeAmount, it.SubmittedAt, it.UpdatedAt,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := w.file.SetCellValue(queueSheet, cell, v); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
			switch v.(type) {
			case time.Time:
				w.file.SetCellStyle(queueSheet, cell, cell, w.dateStyle)
			case float64:
				w.file.SetCellStyle(queueSheet, cell, cell, w.moneyStyle)
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(queueColumns))
	if len(items) > 0 {
		if err := w.file.AutoFilter(queueSheet, "A1:"+lastCol+"1", nil); err != nil {
			return fmt.Errorf("failed to add filter: %w", err)
		}
	}
	w.file.SetColWidth(queueSheet, "A", "A", 38)
	w.file.SetColWidth(queueSheet, "B", lastCol, 18)
	return nil
}

// WriteSummary adds the statistics sheet
func (w *Workbook) WriteSummary(stats *Stats, generatedAt time.Time) error {
	if _, err := w.file.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := w.writeHeader(summarySheet, []string{"Metric", "Count"}); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Pending review", stats.Pending},
		{"Approved", stats.Approved},
		{"Rejected", stats.Rejected},
		{"Total", stats.Total},
	}
	for _, s := range workflows.CanonicalOrder() {
		rows = append(rows, []interface{}{"Status: " + string(s), stats.ByStatus[s]})
	}
	rows = append(rows, []interface{}{"Generated", generatedAt.Format(time.RFC3339)})

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.file.SetSheetRow(summarySheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	w.file.SetColWidth(summarySheet, "A", "A", 32)
	return nil
}

func (w *Workbook) writeHeader(sheet string, columns []string) error {
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	w.file.SetCellStyle(sheet, "A1", last, w.headerStyle)
	return w.file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// Write writes the workbook to out
func (w *Workbook) Write(out io.Writer) error {
	return w.file.Write(out)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

// WriteQueueCSV writes items as CSV with the same columns as the workbook
func WriteQueueCSV(out io.Writer, items []QueueItem) error {
	w := csv.NewWriter(out)
	if err := w.Write(queueColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, it := range items {
		record := []string{
			it.PropertyID.String(), it.Title, it.SellerName, it.SellerEmail, it.City,
			strconv.FormatFloat(it.Price, 'f', 2, 64), string(it.Status), it.PaymentStatus,
			strconv.FormatFloat(it.FeeAmount, 'f', 2, 64),
			it.SubmittedAt.Format(time.RFC3339), it.UpdatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
