// Package store gives read access to recording files: the raw lab notebook
// table and the per-sweep acquired (AD) and stimulus (DA) sample series.
//
// Reader is the interface the experiment layer consumes. Three
// implementations exist:
//
//   - Memory holds everything in maps and backs tests and JSON dumps.
//   - Archive is a single-file SQLite database (modernc.org/sqlite, no cgo)
//     guarded by an exclusive flock, so exactly one handle owns a file.
//   - LoadDump decodes the JSON interchange format into a Memory reader.
//
// Archives are written once by Import and opened read-only afterwards. The
// schema lives in schema.sql; bump schemaVersion when it changes. Archives
// with another version fail to open with ErrSchemaMismatch.
package store
