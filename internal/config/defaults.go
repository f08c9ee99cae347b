package config

const (
	defaultArchiveDir    = "~/ephys/archives"
	defaultLogDir        = "~/.local/share/miesnwb/logs"
	defaultIndexPath     = "~/.cache/miesnwb/archive_index.json"
	defaultExportDir     = "~/ephys/exports"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultArchiveSuffix = ".nwbdb"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ArchiveDir: defaultArchiveDir,
			LogDir:     defaultLogDir,
			IndexPath:  defaultIndexPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Archive: Archive{
			Suffix: defaultArchiveSuffix,
		},
		Export: Export{
			Dir:                  defaultExportDir,
			IncludeGlobalChannel: true,
		},
	}
}
