// Package middleware provides HTTP middleware for the status server: a
// W3C-style access log and Prometheus request metrics.
//
// Metrics must be installed with router.Use so the matched route template
// is available when the request finishes.
package middleware
