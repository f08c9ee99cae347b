package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"miesnwb/internal/config"
	"miesnwb/internal/experiment"
	"miesnwb/internal/logging"
	"miesnwb/internal/notebook"
	"miesnwb/internal/store"
)

type commandContext struct {
	configFlag *string
	sessionID  string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		sessionID:  uuid.NewString(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// sessionLogger returns the invocation's logger, tagged with its session id.
// Falls back to stderr-only logging when the log directory is unusable.
func (c *commandContext) sessionLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "info", Format: "console"})
			logger.Warn("log file unavailable",
				logging.String(logging.FieldEventType, "log_setup_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.log_dir in the config"),
				logging.String(logging.FieldImpact, "this run logs to stderr only"))
		}
		c.logger = logging.WithSession(logger, c.sessionID)
	})
	return c.logger
}

func (c *commandContext) archivePath(arg string) (string, error) {
	path := c.configValue().ArchivePath(arg)
	if path == "" {
		return "", errors.New("archive name or path is required")
	}
	return path, nil
}

// openFile opens an archive read-only behind an experiment.File. Callers
// close the returned file.
func (c *commandContext) openFile(cmd *cobra.Command, arg string) (*experiment.File, error) {
	path, err := c.archivePath(arg)
	if err != nil {
		return nil, err
	}
	cfg := c.configValue()
	logger := c.sessionLogger()
	f := experiment.Open(
		experiment.ArchiveOpener(path, store.WithArchiveLogger(logger)),
		experiment.WithName(path),
		experiment.WithLogger(logger),
		experiment.WithRequiredFields(cfg.Notebook.ExtraRequiredFields...),
	)
	if _, _, err := f.Reader(cmd.Context()); err != nil {
		return nil, err
	}
	return f, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// errorHint maps typed errors to a short remedy for the terminal.
func errorHint(err error) string {
	switch {
	case errors.Is(err, store.ErrLocked):
		return "another miesnwb process has the archive open"
	case errors.Is(err, store.ErrSchemaMismatch):
		return "the file is not a miesnwb archive; create one with `miesnwb import`"
	case errors.Is(err, notebook.ErrSchema):
		return "the lab notebook lacks a required field; check notebook.extra_required_fields"
	}
	var kinded interface{ ErrorKind() string }
	if errors.As(err, &kinded) && kinded.ErrorKind() == "not_found" {
		return "list available sweeps with `miesnwb sweeps <archive>`"
	}
	return ""
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
