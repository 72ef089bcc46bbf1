// Package database keeps a SQLite history of batch runs.
//
// Every finished batch is stored with its summary counters and the
// per-item results, so earlier runs can be listed and inspected after the
// process exits. The database uses WAL mode and initializes its schema on
// open.
package database
