package main

import (
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"miesnwb/internal/experiment"
	"miesnwb/internal/notebook"
)

var titleCaser = cases.Title(language.English)

// clampLabel renders a clamp mode for tables, e.g. "Voltage Clamp".
func clampLabel(mode experiment.ClampMode) string {
	return titleCaser.String(mode.Name())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatValue(v notebook.Value) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Float64, 'g', 6, 64)
}

// formatScaled prints v divided by unit, e.g. ohms as MΩ.
func formatScaled(v notebook.Value, unit float64, suffix string) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Float64/unit, 'f', 2, 64) + " " + suffix
}

func formatInts(values []int) string {
	if len(values) == 0 {
		return "-"
	}
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += strconv.Itoa(v)
	}
	return out
}
