/*
Package filesystem provides resilient file access for the pipeline.

# Retrying Reads

Source libraries often live on NFS. StatWithRetry, OpenWithRetry and
ReadFileWithRetry retry ESTALE (stale file handle) errors with exponential
backoff and fail immediately on anything else:

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

Defaults: 3 retries, 50ms initial backoff, 500ms cap.

# Atomic Writes

Thumbnails, optimized images and the cache index are written through a
temporary file in the destination directory followed by a rename, so a
crash or a failed encode never leaves a truncated file behind:

	n, err := filesystem.WriteAtomic(out, func(w io.Writer) error {
		return imaging.Encode(w, img, imaging.JPEG)
	})

WriteJSON and ReadJSON wrap the same mechanism for JSON documents.

# Metrics

Retries, stale handle errors and atomic write outcomes are counted in the
metrics package, labelled by operation.
*/
package filesystem
