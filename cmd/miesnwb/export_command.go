package main

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"miesnwb/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var jsonOutput bool
	var includeGlobal bool

	cmd := &cobra.Command{
		Use:   "export <archive>",
		Short: "Export notebook, recordings, and test pulses to a workbook",
		Long: `Export notebook, recordings, and test pulses to a workbook.

Without --out the workbook is written to export.dir, named after the archive.
With --json the report is written as JSON instead; "-" writes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			f, err := ctx.openFile(cmd, args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			opts := export.Options{
				SessionID:            ctx.sessionID,
				IncludeGlobalChannel: cfg.Export.IncludeGlobalChannel,
				Logger:               ctx.sessionLogger(),
			}
			if cmd.Flags().Changed("include-global") {
				opts.IncludeGlobalChannel = includeGlobal
			}
			report, err := export.Build(cmd.Context(), f, opts)
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outPath)
			if jsonOutput && (target == "" || target == "-") {
				return export.WriteJSON(cmd.OutOrStdout(), report)
			}
			if target == "" {
				base := strings.TrimSuffix(filepath.Base(f.Name()), filepath.Ext(f.Name()))
				target = filepath.Join(cfg.Export.Dir, base+".xlsx")
			}

			if jsonOutput {
				if err := writeFile(target, func(w io.Writer) error { return export.WriteJSON(w, report) }); err != nil {
					return err
				}
			} else if err := export.SaveWorkbook(target, report); err != nil {
				return err
			}

			status := newStatusPrinter(cmd.OutOrStdout())
			status.print("Export", statusOK, "%s", target)
			status.print("Recordings", statusInfo, "%d", len(report.Recordings))
			status.print("Test pulses", statusInfo, "%d", len(report.TestPulses))
			if n := len(report.Failures); n > 0 {
				status.print("Failures", statusWarn, "%d channel(s) unresolved", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write JSON instead of a workbook")
	cmd.Flags().BoolVar(&includeGlobal, "include-global", false, "Include the global notebook channel (default from export.include_global_channel)")
	return cmd
}
