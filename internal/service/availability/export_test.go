package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/healthfirst/portal-api/internal/model"
)

func TestExport(t *testing.T) {
	e := NewEditor()
	e.SetTimezone("UTC+05:30")
	e.UpdateBlockedInterval("1", model.FieldDate, "2025-06-21")

	buf, err := Export(e.Draft())
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetWeekly, SheetRanges, SheetBlocked}, f.GetSheetList())

	cell := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "John Doe", cell(SheetWeekly, "B1"))
	assert.Equal(t, "UTC+05:30", cell(SheetWeekly, "B2"))
	assert.Equal(t, "Day", cell(SheetWeekly, "A4"))
	assert.Equal(t, "Monday", cell(SheetWeekly, "A5"))
	assert.Equal(t, "09:00", cell(SheetWeekly, "B5"))
	assert.Equal(t, "Saturday", cell(SheetWeekly, "A10"))

	assert.Equal(t, "2025-06-19", cell(SheetRanges, "A2"))
	assert.Equal(t, "2025-06-25", cell(SheetRanges, "B2"))

	assert.Equal(t, "2025-06-21", cell(SheetBlocked, "A2"))
	assert.Empty(t, cell(SheetBlocked, "A3"))
}

func TestExport_UnselectedTimezone(t *testing.T) {
	buf, err := Export(model.PlaceholderDraft())
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SheetWeekly, "B2")
	require.NoError(t, err)
	assert.Equal(t, "not selected", v)
}
