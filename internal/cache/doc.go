// Package cache implements the per-directory thumbnail cache index.
//
// Each output directory has a JSON index, .thumbnail_cache.json, mapping
// cache keys to generated files. Keys combine the source identity with the
// thumbnail spec signature, so any change to either misses. An entry is only
// served while its output file exists.
package cache
