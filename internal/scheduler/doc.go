// Package scheduler runs extraction on a fixed interval.
//
// The pipeline itself keeps no state between runs; the scheduler owns the
// lifecycle instead. It runs once at Start, then on every tick, and never lets
// two runs overlap: a tick that arrives while a run is in flight is skipped.
package scheduler
