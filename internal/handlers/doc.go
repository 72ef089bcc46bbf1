// Package handlers serves the status API that runs next to the Prometheus
// endpoint while the pipeline is working.
//
// Endpoints:
//   - /healthz, /livez, /readyz: probes backed by the worker pool state
//   - /version: build information and libvips version
//   - /api/performance: pool, job and resource snapshot
//   - /api/history, /api/history/{id}: stored batch runs
package handlers
