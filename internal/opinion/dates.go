package opinion

import (
	"fmt"
	"strings"
	"time"
)

const (
	// InputDateLayout is the form date layout (YYYY-MM-DD).
	InputDateLayout = "2006-01-02"
	// ShortDateLayout renders dates as DD/MM/YYYY.
	ShortDateLayout = "02/01/2006"
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// LongDate formats t as "05 de março de 2025".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%02d de %s de %d", t.Day(), monthNames[t.Month()-1], t.Year())
}

// parseDate parses an optional form date. Empty input yields the zero time.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(InputDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not a YYYY-MM-DD date", ErrInvalidRequest, field, value)
	}
	return t, nil
}

func shortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ShortDateLayout)
}

func longDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return LongDate(t)
}
