// Package logging assembles structured slog loggers and formatting helpers used
// across miesnwb.
//
// A CLI run logs to stderr in the configured console or JSON format and, in
// parallel, appends debug-level JSON to miesnwb.log in the log directory.
// Console lines lead with their subject (component, archive, sweep, and
// headstage) so per-recording warnings are easy to scan. Attribute helpers
// and field keys keep those identifiers consistent in both sinks.
package logging
