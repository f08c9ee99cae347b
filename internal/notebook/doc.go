// Package notebook reconciles the lab notebook table that accompanies raw
// sweep data in a recording file.
//
// The raw table is rows × fields × channels, where channels 0-7 are
// headstages and channel 8 holds global values. One logical sweep is spread
// over several physical rows, and standalone test pulses are stored as pairs
// of rows that must be merged. Older files lack the "EntrySourceType" column
// that distinguishes the two, so classification falls back to a heuristic
// over a two-row window (see Classify).
//
// Reconcile produces a Notebook (sweep id → per-channel Fields, in first-seen
// order) and the list of TestPulseBlocks. Unset values are carried as invalid
// Values rather than NaN so callers never compare against NaN by accident.
package notebook
