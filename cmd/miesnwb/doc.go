// Package main hosts the miesnwb CLI entrypoint and command graph.
//
// The Cobra-based command tree opens recording archives through the
// experiment package and renders what it finds: reconciled lab notebook
// entries, per-headstage recordings, test pulses, spreadsheet exports, and
// archive scans. It centralizes configuration resolution, session-tagged
// logging, and archive path lookup so subcommands only deal with output.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
