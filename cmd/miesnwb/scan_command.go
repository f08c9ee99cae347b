package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"miesnwb/internal/archiveindex"
	"miesnwb/internal/metrics"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var rescan bool

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Summarize every archive in a directory",
		Long: `Summarize every archive in a directory.

Summaries are cached in paths.index_path and only recomputed for archives
whose size or modification time changed. When metrics.textfile is set the
results are also written in the Prometheus text format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			dir := cfg.Paths.ArchiveDir
			if len(args) == 1 {
				dir = strings.TrimSpace(args[0])
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolve scan directory: %w", err)
			}

			logger := ctx.sessionLogger()
			index := archiveindex.NewIndex(cfg.Paths.IndexPath, logger)
			if rescan {
				if err := index.Clear(); err != nil {
					return err
				}
			}
			scanner := archiveindex.NewScanner(index, cfg.Archive.Suffix, logger, cfg.Notebook.ExtraRequiredFields...)
			report, err := scanner.Scan(cmd.Context(), abs)
			if err != nil {
				return err
			}

			if path := strings.TrimSpace(cfg.Metrics.Textfile); path != "" {
				recorder := metrics.NewRecorder()
				recorder.Observe(report)
				if err := recorder.WriteTextfile(path); err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			tv := newTable(textCol("Archive"), numericCol("Sweeps"), numericCol("Recordings"), numericCol("Failures"),
				numericCol("TPs"), textCol("Headstages"), textCol("Last Sweep (UTC)"))
			for _, entry := range report.Entries {
				tv.add(scanRow(report.Dir, entry)...)
			}
			if tv.empty() {
				fmt.Fprintf(out, "No archives found in %s\n", report.Dir)
			} else {
				fmt.Fprintln(out, tv.render())
			}

			status := newStatusPrinter(out)
			status.print("Scan", statusOK, "%d summarized, %d unchanged, %d removed", report.Summarized, report.Unchanged, report.Removed)
			for _, failure := range report.Failed {
				status.print(relativeArchive(report.Dir, failure.Path), statusError, "%s", failure.Err.Error())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&rescan, "rescan", false, "Discard cached summaries before scanning")
	return cmd
}

func scanRow(dir string, entry archiveindex.Entry) []string {
	return []string{
		relativeArchive(dir, entry.Path),
		strconv.Itoa(entry.Sweeps),
		strconv.Itoa(entry.Recordings),
		strconv.Itoa(entry.Failures),
		strconv.Itoa(entry.TestPulses),
		formatInts(entry.Headstages),
		formatTime(entry.LastSweepAt),
	}
}

func relativeArchive(dir, path string) string {
	if rel, err := filepath.Rel(dir, path); err == nil {
		return rel
	}
	return path
}
