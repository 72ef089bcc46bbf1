// Package batch runs a list of inputs through the worker pool.
//
// Each input expands into work units (for thumbnails, one per spec). The
// Orchestrator skips inputs that do not exist, submits the rest to the
// pool, and folds every completion into a model.BatchSummary while a Task
// reports progress. Successful, Failed and Skipped always sum to the
// total number of work units.
package batch
