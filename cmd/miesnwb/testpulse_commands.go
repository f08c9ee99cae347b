package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"miesnwb/internal/experiment"
	"miesnwb/internal/notebook"
)

type testPulseSummary struct {
	Source            string         `json:"source"`
	Block             int            `json:"block"`
	Headstage         int            `json:"headstage"`
	ClampMode         string         `json:"clamp_mode"`
	Timestamp         time.Time      `json:"timestamp"`
	AccessResistance  notebook.Value `json:"access_resistance"`
	InputResistance   notebook.Value `json:"input_resistance"`
	BaselinePotential notebook.Value `json:"baseline_potential"`
	BaselineCurrent   notebook.Value `json:"baseline_current"`
	Amplitude         notebook.Value `json:"amplitude"`
}

func summarizeTestPulse(tp *experiment.TestPulse) testPulseSummary {
	return testPulseSummary{
		Source:            tp.Source.String(),
		Block:             tp.BlockIndex,
		Headstage:         tp.Headstage,
		ClampMode:         tp.ClampMode.String(),
		Timestamp:         tp.StartTime,
		AccessResistance:  tp.AccessResistance(),
		InputResistance:   tp.InputResistance(),
		BaselinePotential: tp.BaselinePotential(),
		BaselineCurrent:   tp.BaselineCurrent(),
		Amplitude:         tp.Amplitude(),
	}
}

func testPulseRow(tp *experiment.TestPulse) []string {
	baseline := formatScaled(tp.BaselineCurrent(), 1e-12, "pA")
	if tp.ClampMode == experiment.CurrentClamp {
		baseline = formatScaled(tp.BaselinePotential(), 1e-3, "mV")
	}
	block := "-"
	if tp.BlockIndex >= 0 {
		block = strconv.Itoa(tp.BlockIndex)
	}
	return []string{
		block,
		formatTime(tp.StartTime),
		strconv.Itoa(tp.Headstage),
		clampLabel(tp.ClampMode),
		formatScaled(tp.AccessResistance(), 1e6, "MΩ"),
		formatScaled(tp.InputResistance(), 1e6, "MΩ"),
		baseline,
	}
}

func newTestPulseTable() *tableView {
	return newTable(numericCol("Block"), textCol("Time (UTC)"), numericCol("HS"), textCol("Mode"),
		numericCol("Access"), numericCol("Input"), numericCol("Baseline"))
}

func newTestPulsesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "testpulses <archive>",
		Short: "List standalone test pulses recorded in the lab notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ctx.openFile(cmd, args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			blocks, err := f.TestPulseEntries(cmd.Context())
			if err != nil {
				return err
			}
			var pulses []*experiment.TestPulse
			for i := range blocks {
				pulses = append(pulses, experiment.BlockTestPulses(&blocks[i])...)
			}

			if jsonOutput {
				summaries := make([]testPulseSummary, 0, len(pulses))
				for _, tp := range pulses {
					summaries = append(summaries, summarizeTestPulse(tp))
				}
				return writeJSON(cmd, summaries)
			}
			out := cmd.OutOrStdout()
			if len(pulses) == 0 {
				fmt.Fprintln(out, "No test pulses found")
				return nil
			}
			tv := newTestPulseTable()
			for _, tp := range pulses {
				tv.add(testPulseRow(tp)...)
			}
			fmt.Fprintln(out, tv.render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newNearestTestPulseCommand(ctx *commandContext) *cobra.Command {
	var sweepID int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "nearest-tp <archive>",
		Short: "Show the test pulse nearest to each recording of a sweep",
		Long: `Show the test pulse nearest to each recording of a sweep.

A pulse inserted at the start of the recording is measured from the trace.
Otherwise the standalone test pulse closest in time is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ctx.openFile(cmd, args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			sweep, err := f.Sweep(cmd.Context(), sweepID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			status := newStatusPrinter(out)
			summaries := []testPulseSummary{}
			tv := newTestPulseTable()
			var problems []string
			for _, rec := range sweep.Recordings() {
				tp, err := rec.NearestTestPulse(cmd.Context())
				if err != nil {
					problems = append(problems, status.line(fmt.Sprintf("HS%d", rec.Headstage), statusWarn, "%s", err.Error()))
					continue
				}
				if tp == nil {
					problems = append(problems, status.line(fmt.Sprintf("HS%d", rec.Headstage), statusInfo, "no test pulse"))
					continue
				}
				summaries = append(summaries, summarizeTestPulse(tp))
				tv.add(testPulseRow(tp)...)
			}

			if jsonOutput {
				return writeJSON(cmd, summaries)
			}
			if !tv.empty() {
				fmt.Fprintln(out, tv.render())
			}
			for _, line := range problems {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&sweepID, "sweep", "s", 0, "Sweep number")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("sweep")
	return cmd
}
