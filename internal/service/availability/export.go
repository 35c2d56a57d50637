package availability

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/healthfirst/portal-api/internal/model"
)

const (
	SheetWeekly  = "Weekly Hours"
	SheetRanges  = "Date Ranges"
	SheetBlocked = "Blocked Time"
)

// Export renders a draft as an xlsx workbook, one sheet per collection.
func Export(draft model.AvailabilityDraft) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetWeekly); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	tz := draft.Timezone
	if tz == "" {
		tz = "not selected"
	}

	weekly := [][]interface{}{
		{"Clinician", draft.ClinicianName},
		{"Time Zone", tz},
		{},
		{"Day", "From", "Till"},
	}
	for _, s := range draft.WeeklySlots {
		weekly = append(weekly, []interface{}{s.Day, s.FromTime, s.TillTime})
	}
	if err := writeRows(f, SheetWeekly, weekly, 4, headerStyle); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetRanges); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	ranges := [][]interface{}{{"Start Date", "End Date"}}
	for _, r := range draft.DateRanges {
		ranges = append(ranges, []interface{}{r.StartDate, r.EndDate})
	}
	if err := writeRows(f, SheetRanges, ranges, 1, headerStyle); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetBlocked); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	blocked := [][]interface{}{{"Date", "From", "Till"}}
	for _, b := range draft.BlockedIntervals {
		blocked = append(blocked, []interface{}{b.Date, b.FromTime, b.TillTime})
	}
	if err := writeRows(f, SheetBlocked, blocked, 1, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerRow int, style int) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(3, headerRow)
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "A", "C", 16)
}
