// Package model defines the values shared by the pipeline packages:
// thumbnail specs and presets, output formats, quality issues and
// enhancements, job results, batch summaries, cache entries and the
// task status state machine.
package model
