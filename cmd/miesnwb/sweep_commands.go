package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"miesnwb/internal/experiment"
	"miesnwb/internal/notebook"
)

type sweepSummary struct {
	SweepID    int       `json:"sweep_id"`
	StartTime  time.Time `json:"start_time"`
	Headstages []int     `json:"headstages"`
	ClampModes []string  `json:"clamp_modes"`
	Failures   int       `json:"failures"`
}

func newSweepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sweeps <archive>",
		Short: "List the sweeps of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ctx.openFile(cmd, args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			sweeps, err := f.Sweeps(cmd.Context())
			if err != nil {
				return err
			}
			summaries := make([]sweepSummary, 0, len(sweeps))
			for _, s := range sweeps {
				summary := sweepSummary{
					SweepID:    s.ID,
					StartTime:  s.StartTime(),
					Headstages: s.Headstages(),
					ClampModes: []string{},
					Failures:   len(s.Failures()),
				}
				for _, rec := range s.Recordings() {
					summary.ClampModes = append(summary.ClampModes, rec.ClampMode().String())
				}
				summaries = append(summaries, summary)
			}

			if jsonOutput {
				return writeJSON(cmd, summaries)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sweeps found")
				return nil
			}
			tv := newTable(numericCol("Sweep"), textCol("Start (UTC)"), textCol("Headstages"), textCol("Modes"), numericCol("Failures"))
			for _, s := range summaries {
				tv.add(
					strconv.Itoa(s.SweepID),
					formatTime(s.StartTime),
					formatInts(s.Headstages),
					strings.Join(s.ClampModes, ","),
					strconv.Itoa(s.Failures),
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tv.render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newNotebookCommand(ctx *commandContext) *cobra.Command {
	var sweepID int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "notebook <archive>",
		Short: "Show reconciled lab notebook entries",
		Long: `Show reconciled lab notebook entries.

Without --sweep every sweep is printed. Tables list the headstages that hold
recorded values and only the fields that are set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ctx.openFile(cmd, args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			nb, err := f.Notebook(cmd.Context())
			if err != nil {
				return err
			}
			entries := nb.Entries()
			if cmd.Flags().Changed("sweep") {
				entry, ok := nb.Sweep(sweepID)
				if !ok {
					return fmt.Errorf("sweep %d has no notebook entry", sweepID)
				}
				entries = []*notebook.SweepEntry{entry}
			}

			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Notebook is empty")
				return nil
			}
			for i, entry := range entries {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "Sweep %d\n", entry.SweepID)
				fmt.Fprintln(out, renderNotebookEntry(nb.Schema(), entry))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&sweepID, "sweep", "s", 0, "Only show this sweep")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// renderNotebookEntry prints one row per set field and one column per
// recorded headstage, plus the global column.
func renderNotebookEntry(schema *notebook.Schema, entry *notebook.SweepEntry) string {
	var channels []int
	for h := 0; h < notebook.NumHeadstages; h++ {
		if entry.Channels[h].Recorded() {
			channels = append(channels, h)
		}
	}
	channels = append(channels, notebook.GlobalChannel)

	columns := []column{textCol("Field")}
	for _, c := range channels {
		label := "HS" + strconv.Itoa(c)
		if c == notebook.GlobalChannel {
			label = "Global"
		}
		columns = append(columns, numericCol(label))
	}

	tv := newTable(columns...)
	for _, name := range schema.Keys() {
		row := []string{name}
		set := false
		for _, c := range channels {
			v := entry.Channels[c].Get(name)
			set = set || v.Valid
			row = append(row, formatValue(v))
		}
		if set {
			tv.add(row...)
		}
	}
	return tv.render()
}

type recordingSummary struct {
	Headstage        int                 `json:"headstage"`
	ADChannel        int                 `json:"ad_channel"`
	DAChannel        int                 `json:"da_channel"`
	Electrode        string              `json:"electrode"`
	Stimulus         string              `json:"stimulus"`
	ClampMode        string              `json:"clamp_mode"`
	StartTime        time.Time           `json:"start_time"`
	SampleInterval   float64             `json:"sample_interval"`
	HoldingPotential notebook.Value      `json:"holding_potential"`
	HoldingCurrent   notebook.Value      `json:"holding_current"`
	BridgeBalance    notebook.Value      `json:"bridge_balance"`
	LPFCutoff        notebook.Value      `json:"lpf_cutoff"`
	PipetteOffset    notebook.Value      `json:"pipette_offset"`
	InsertedPulse    bool                `json:"inserted_test_pulse"`
	BaselineRegions  []experiment.Region `json:"baseline_regions"`
}

type recordingsOutput struct {
	SweepID    int                         `json:"sweep_id"`
	Recordings []recordingSummary          `json:"recordings"`
	Failures   []experiment.ChannelFailure `json:"failures"`
}

func newRecordingsCommand(ctx *commandContext) *cobra.Command {
	var sweepID int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "recordings <archive>",
		Short: "Show per-headstage recordings of a sweep",
		Args:  cobra.ExactArgs(1),
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
			output := recordingsOutput{
				SweepID:    sweep.ID,
				Recordings: []recordingSummary{},
				Failures:   sweep.Failures(),
			}
			for _, rec := range sweep.Recordings() {
				output.Recordings = append(output.Recordings, summarizeRecording(rec))
			}
			sort.Slice(output.Failures, func(i, j int) bool {
				return output.Failures[i].ADChannel < output.Failures[j].ADChannel
			})

			if jsonOutput {
				return writeJSON(cmd, output)
			}
			out := cmd.OutOrStdout()
			tv := newTable(numericCol("HS"), textCol("Channels"), textCol("Electrode"), textCol("Mode"), numericCol("Holding"),
				numericCol("Bridge"), numericCol("LPF (Hz)"), textCol("Stimulus"), textCol("TP"))
			for _, rec := range sweep.Recordings() {
				holding := formatScaled(rec.HoldingPotential(), 1e-3, "mV")
				if rec.ClampMode() == experiment.CurrentClamp {
					holding = formatScaled(rec.HoldingCurrent(), 1e-12, "pA")
				}
				tv.add(
					strconv.Itoa(rec.Headstage),
					fmt.Sprintf("AD%d/DA%d", rec.ADChannel, rec.DAChannel),
					rec.Electrode(),
					clampLabel(rec.ClampMode()),
					holding,
					formatScaled(rec.BridgeBalance(), 1e6, "MΩ"),
					formatValue(rec.LPFCutoff()),
					rec.StimulusDescription(),
					yesNo(rec.HasInsertedTestPulse()),
				)
			}
			if tv.empty() {
				fmt.Fprintf(out, "Sweep %d has no resolved recordings\n", sweep.ID)
			} else {
				fmt.Fprintln(out, tv.render())
			}
			status := newStatusPrinter(out)
			for _, failure := range output.Failures {
				status.print(fmt.Sprintf("AD%d", failure.ADChannel), statusWarn, "%s", failure.Err.Error())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&sweepID, "sweep", "s", 0, "Sweep number")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("sweep")
	return cmd
}

func summarizeRecording(rec *experiment.Recording) recordingSummary {
	return recordingSummary{
		Headstage:        rec.Headstage,
		ADChannel:        rec.ADChannel,
		DAChannel:        rec.DAChannel,
		Electrode:        rec.Electrode(),
		Stimulus:         rec.StimulusDescription(),
		ClampMode:        rec.ClampMode().String(),
		StartTime:        rec.StartTime(),
		SampleInterval:   rec.SampleInterval(),
		HoldingPotential: rec.HoldingPotential(),
		HoldingCurrent:   rec.HoldingCurrent(),
		BridgeBalance:    rec.BridgeBalance(),
		LPFCutoff:        rec.LPFCutoff(),
		PipetteOffset:    rec.PipetteOffset(),
		InsertedPulse:    rec.HasInsertedTestPulse(),
		BaselineRegions:  rec.BaselineRegions(),
	}
}
