// Package pipeline is the public face of the image pipeline.
//
// A Service validates requests, resolves thumbnail specs and presets,
// keeps one cache per output directory and hands the work to the batch
// orchestrator. Requests naming inputs that do not exist are rejected with
// ErrInputNotFound before anything is submitted.
package pipeline
