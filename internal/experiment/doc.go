// Package experiment builds recordings on top of a reconciled notebook.
//
// A File wraps a store.Opener. Nothing is read until first use; the raw
// notebook table is materialized once and reconciled once per File. Sweeps
// are built from the AD series keys, one Recording per headstage. Each
// Recording resolves its DA channel by electrode name when it is built, so a
// wiring problem surfaces as a ResolutionError for that headstage alone and
// its siblings stay usable.
//
// Scalar metadata (clamp mode, holding levels, start time, test pulse
// windows) survives File.Close. Traces are read through the store handle and
// are tagged with the handle generation that produced them; after Close the
// next access reopens the store and reloads them.
package experiment
