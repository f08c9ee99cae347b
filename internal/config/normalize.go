package config

import (
	"fmt"
	"os"
	"strings"
)

const archiveDirEnv = "MIESNWB_ARCHIVE_DIR"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeArchive()
	c.normalizeNotebook()
	if err := c.normalizeExport(); err != nil {
		return err
	}
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv(archiveDirEnv); ok && strings.TrimSpace(value) != "" {
		c.Paths.ArchiveDir = value
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		c.Paths.ArchiveDir = defaultArchiveDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.IndexPath, err = expandPath(strings.TrimSpace(c.Paths.IndexPath)); err != nil {
		return fmt.Errorf("paths.index_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Suffix = strings.TrimSpace(c.Archive.Suffix)
	if c.Archive.Suffix == "" {
		c.Archive.Suffix = defaultArchiveSuffix
	}
	if !strings.HasPrefix(c.Archive.Suffix, ".") {
		c.Archive.Suffix = "." + c.Archive.Suffix
	}
}

func (c *Config) normalizeNotebook() {
	seen := make(map[string]struct{}, len(c.Notebook.ExtraRequiredFields))
	fields := make([]string, 0, len(c.Notebook.ExtraRequiredFields))
	for _, field := range c.Notebook.ExtraRequiredFields {
		// Notebook keys may legitimately contain inner spaces ("TP Peak Resistance").
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		fields = append(fields, field)
	}
	c.Notebook.ExtraRequiredFields = fields
}

func (c *Config) normalizeExport() error {
	if strings.TrimSpace(c.Export.Dir) == "" {
		c.Export.Dir = defaultExportDir
	}
	var err error
	if c.Export.Dir, err = expandPath(c.Export.Dir); err != nil {
		return fmt.Errorf("export.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}
