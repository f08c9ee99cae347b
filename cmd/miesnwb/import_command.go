package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"miesnwb/internal/experiment"
	"miesnwb/internal/logging"
	"miesnwb/internal/store"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import <dump.json> <archive>",
		Short: "Build a recording archive from a JSON dump",
		Long: `Build a recording archive from a JSON dump of an NWB file.

The archive name is resolved against paths.archive_dir unless it contains a
directory. The configured archive suffix is appended when the name has no
extension.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			path, err := ctx.archivePath(args[1])
			if err != nil {
				return err
			}
			if filepath.Ext(path) == "" {
				path += cfg.Archive.Suffix
			}

			src, err := store.LoadDumpFile(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			if overwrite {
				if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("remove existing archive: %w", err)
				}
			}

			logger := ctx.sessionLogger()
			archive, err := store.CreateArchive(cmd.Context(), path, store.WithArchiveLogger(logger))
			if err != nil {
				if errors.Is(err, fs.ErrExist) {
					return fmt.Errorf("archive %s already exists (use --overwrite to replace it)", path)
				}
				return err
			}
			// An archive that cannot be reconciled is not kept.
			discard := func(cause error) error {
				_ = archive.Close()
				if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
					logger.Warn("could not remove rejected archive", logging.Archive(path), logging.Error(err))
				}
				return cause
			}
			stats, err := archive.Import(cmd.Context(), src, filepath.Base(args[0]))
			if err != nil {
				return discard(err)
			}

			status := newStatusPrinter(cmd.OutOrStdout())
			status.print("Archive", statusOK, "%s", path)
			status.print("Notebook", statusOK, "%d rows", stats.NotebookRows)
			status.print("Series", statusOK, "%d acquisition, %d stimulus", stats.Acquisitions, stats.Stimuli)

			file := experiment.Open(experiment.ReaderOpener(archive),
				experiment.WithName(path),
				experiment.WithLogger(logger),
				experiment.WithRequiredFields(cfg.Notebook.ExtraRequiredFields...))
			defer file.Close()

			nb, err := file.Notebook(cmd.Context())
			if err != nil {
				status.print("Reconcile", statusError, "%s", err.Error())
				return discard(err)
			}
			blocks, err := file.TestPulseEntries(cmd.Context())
			if err != nil {
				return discard(err)
			}
			status.print("Reconcile", statusOK, "%d sweeps, %d test pulses", nb.Len(), len(blocks))
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing archive")
	return cmd
}

func newDumpCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "dump <archive>",
		Short: "Write an archive back out as a JSON dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ctx.archivePath(args[0])
			if err != nil {
				return err
			}
			archive, err := store.OpenArchive(cmd.Context(), path, store.WithArchiveLogger(ctx.sessionLogger()))
			if err != nil {
				return err
			}
			defer archive.Close()

			if outPath == "" {
				return store.WriteDump(cmd.Context(), cmd.OutOrStdout(), archive)
			}
			err = writeFile(outPath, func(w io.Writer) error {
				return store.WriteDump(cmd.Context(), w, archive)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote dump to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination file (default stdout)")
	return cmd
}
