// Package archiveindex keeps a summary of every recording archive seen by
// `miesnwb scan`.
//
// Summaries are expensive to compute: each one opens the archive, reconciles
// its lab notebook, and resolves every recording. The index records the
// archive's size and modification time alongside the summary so unchanged
// archives are skipped on the next scan.
//
// # Storage
//
// The index is a JSON file at a configurable path (default:
// ~/.cache/miesnwb/archive_index.json). It is human-readable and safe to
// delete; the next scan rebuilds it.
//
//	[paths]
//	index_path = "~/.cache/miesnwb/archive_index.json"
package archiveindex
