package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"miesnwb/internal/experiment"
	"miesnwb/internal/notebook"
	"miesnwb/internal/store"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := formatStatus("Archive", statusError, "locked", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Archive:", "[ERROR] locked")
	if got != want {
		t.Fatalf("formatStatus mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := formatStatus("Scan", statusOK, "", false); !strings.HasSuffix(got, "[OK]") {
		t.Fatalf("expected bare tag without message, got %q", got)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := formatStatus("Archive", statusOK, "ready", true)
	if !strings.HasPrefix(got, statusStyles[statusOK].color) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestStatusPrinterFormatsArgs(t *testing.T) {
	var buf bytes.Buffer
	newStatusPrinter(&buf).print("Scan", statusWarn, "%d failed", 2)
	requireContains(t, buf.String(), "[WARN] 2 failed")
	if strings.Contains(buf.String(), ansiReset) {
		t.Fatalf("buffer output should not be colored: %q", buf.String())
	}
}

func TestTableKeepsHeaderCase(t *testing.T) {
	tv := newTable(textCol("Field"), numericCol("HS0"), numericCol("Access MΩ"))
	tv.add("TP Peak Resistance", "9")
	out := tv.render()
	requireContains(t, out, "Access MΩ")
	requireContains(t, out, "TP Peak Resistance")
	if !newTable(textCol("x")).empty() {
		t.Fatal("expected new table to be empty")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := clampLabel(experiment.VoltageClamp); got != "Voltage Clamp" {
		t.Fatalf("clampLabel = %q", got)
	}
	if got := formatScaled(notebook.ValueOf(9e6), 1e6, "MΩ"); got != "9.00 MΩ" {
		t.Fatalf("formatScaled = %q", got)
	}
	if got := formatValue(notebook.Value{}); got != "-" {
		t.Fatalf("formatValue(unset) = %q", got)
	}
	if got := formatTime(time.Time{}); got != "-" {
		t.Fatalf("formatTime(zero) = %q", got)
	}
	if got := formatInts([]int{0, 3}); got != "0,3" {
		t.Fatalf("formatInts = %q", got)
	}
}

func TestErrorHint(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("open: %w", store.ErrLocked), "another miesnwb process"},
		{fmt.Errorf("open: %w", store.ErrSchemaMismatch), "miesnwb import"},
		{&store.KeyError{Kind: "sweep", Key: "4"}, "miesnwb sweeps"},
		{errors.New("boom"), ""},
	}
	for _, tc := range cases {
		got := errorHint(tc.err)
		if tc.want == "" && got != "" {
			t.Fatalf("errorHint(%v) = %q, want empty", tc.err, got)
		}
		if !strings.Contains(got, tc.want) {
			t.Fatalf("errorHint(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
