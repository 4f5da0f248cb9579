package signing

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Signing history"

var exportColumns = []string{"Time", "Actor", "Action", "Detail", "Kind", "Identity checked"}

// ExportHistory renders the document's signing history as an XLSX workbook
// for support and audit handoff.
func (s *signService) ExportHistory(ctx context.Context, documentID uuid.UUID) ([]byte, error) {
	history, err := s.History(ctx, documentID)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer file.Close()
	file.SetSheetName("Sheet1", exportSheet)

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(exportSheet, cell, col); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
	_ = file.SetCellStyle(exportSheet, "A1", last, headerStyle)

	row := 2
	writeRow := func(at time.Time, actor uuid.UUID, action, detail, kind, checked string) error {
		values := []interface{}{at.Format(time.RFC3339), actor.String(), action, detail, kind, checked}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := file.SetCellValue(exportSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
		row++
		return nil
	}

	for _, sig := range history.Signatures {
		checked := "yes"
		if !sig.Processed {
			checked = "no"
		}
		if err := writeRow(sig.CreatedAt, sig.CreatedBy, "sign", "", string(sig.Kind), checked); err != nil {
			return nil, err
		}
	}
	for _, rej := range history.Rejections {
		if err := writeRow(rej.CreatedAt, rej.CreatedBy, "reject", rej.Reason, "", ""); err != nil {
			return nil, err
		}
	}
	for _, act := range history.Activity {
		if err := writeRow(act.CreatedAt, act.ActorID, string(act.Action), act.Detail, "", ""); err != nil {
			return nil, err
		}
	}

	endCell, _ := excelize.CoordinatesToCellName(len(exportColumns), row-1)
	_ = file.AutoFilter(exportSheet, "A1:"+endCell, nil)

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
