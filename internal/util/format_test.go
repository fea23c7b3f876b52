package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Jan 05, 2026", FormatDate("2026-01-05"))
	assert.Equal(t, "Jan 05, 2026", FormatDate("2026-01-05T10:11:12Z"))
	assert.Equal(t, Placeholder, FormatDate(" "))
	assert.Equal(t, "soon", FormatDate("soon"))
}

func TestFormatDateTime(t *testing.T) {
	assert.Equal(t, "Jan 05, 2026 10:11", FormatDateTime("2026-01-05T10:11:12.123456"))
	assert.Equal(t, "Jan 05, 2026", FormatDateTime("2026-01-05"))
}

func TestFormatDateHuman(t *testing.T) {
	now := time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "Today", FormatDateHuman("2026-01-05", now))
	assert.Equal(t, "Yesterday", FormatDateHuman("2026-01-04", now))
	assert.Equal(t, "3d ago", FormatDateHuman("2026-01-02", now))
	assert.Equal(t, "Dec 28 '25", FormatDateHuman("2025-12-28", now))
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, Placeholder, FormatCell(nil))
	assert.Equal(t, Placeholder, FormatCell(""))
	assert.Equal(t, "Yes", FormatCell(true))
	assert.Equal(t, "47", FormatCell(float64(47)))
	assert.Equal(t, "A+, O-", FormatCell([]any{"A+", "O-"}))
}

func TestParseDateInput(t *testing.T) {
	got, err := ParseDateInput("1/2/2026")
	assert.NoError(t, err)
	assert.Equal(t, "2026-01-02", got)

	got, err = ParseDateInput("")
	assert.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseDateInput("tomorrow")
	assert.Error(t, err)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "Cardio...", TruncateString("Cardiology Department", 9))
	assert.Equal(t, "Card", TruncateString("Card", 9))
	assert.Equal(t, "Ca", TruncateString("Cardiology", 2))
	assert.Empty(t, TruncateString("Cardiology", 0))
}
