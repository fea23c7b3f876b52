package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Placeholder is shown for missing values.
const Placeholder = "—"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the date and timestamp shapes the API returns.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate formats a date or timestamp as "Jan 02, 2006".
func FormatDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return Placeholder
	}
	t, ok := ParseTimestamp(date)
	if !ok {
		return date
	}
	return t.Format("Jan 02, 2006")
}

// FormatDateTime formats a timestamp as "Jan 02, 2006 15:04".
// Plain dates are shown without a time.
func FormatDateTime(ts string) string {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return Placeholder
	}
	t, ok := ParseTimestamp(ts)
	if !ok {
		return ts
	}
	if len(ts) == len("2006-01-02") {
		return t.Format("Jan 02, 2006")
	}
	return t.Format("Jan 02, 2006 15:04")
}

// FormatDateHuman formats a date relative to now.
// "Today", "Yesterday", "3d ago", "Jan 15", "Jan 15 '24"
func FormatDateHuman(date string, now time.Time) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return Placeholder
	}
	t, ok := ParseTimestamp(date)
	if !ok {
		return date
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dateDay := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(dateDay).Hours() / 24)

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days > 1 && days < 7:
		return fmt.Sprintf("%dd ago", days)
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("Jan 02 '06")
	}
}

// FormatStatus renders an is_active flag.
func FormatStatus(active bool) string {
	if active {
		return "● Active"
	}
	return "○ Inactive"
}

// FormatCell stringifies an arbitrary JSON value for a table cell.
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return Placeholder
	case string:
		if strings.TrimSpace(t) == "" {
			return Placeholder
		}
		return t
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			parts = append(parts, FormatCell(el))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// ParseDateInput parses flexible user input and normalizes to ISO (YYYY-MM-DD).
// Empty input is allowed and returns "".
func ParseDateInput(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}

	layouts := []string{
		"2006-01-02",
		"2006/01/02",
		"January 2, 2006",
		"Jan 2, 2006",
		"1/2/2006",
		"01/02/2006",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}

	return "", fmt.Errorf("invalid date %q", s)
}

// TruncateString truncates a string to maxLen runes and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
