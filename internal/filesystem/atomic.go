package filesystem

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"media-pipeline/internal/metrics"
)

// WriteAtomic streams content produced by write into a temporary file next
// to path and renames it into place. Readers never observe a partial file.
// It returns the number of bytes written.
func WriteAtomic(path string, write func(w io.Writer) error) (int64, error) {
	n, err := writeAtomic(path, write)
	if err != nil {
		metrics.FilesystemAtomicWrites.WithLabelValues("error").Inc()
		return 0, err
	}
	metrics.FilesystemAtomicWrites.WithLabelValues("success").Inc()
	return n, nil
}

func writeAtomic(path string, write func(w io.Writer) error) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".pipeline-tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	fail := func(format string, err error) (int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf(format, path, err)
	}

	counter := &countingWriter{w: tmp}
	buf := bufio.NewWriter(counter)
	if err := write(buf); err != nil {
		return fail("write temp file for %s: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return fail("flush temp file for %s: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail("chmod temp file for %s: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return counter.n, nil
}

// WriteFileAtomic writes data to path atomically.
func WriteFileAtomic(path string, data []byte) error {
	_, err := WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	return err
}

// WriteJSON marshals v with indentation and writes it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON for %s: %w", path, err)
	}
	data = append(data, '\n')
	return WriteFileAtomic(path, data)
}

// ReadJSON reads path and unmarshals it into v.
func ReadJSON(path string, v any) error {
	data, err := ReadFileWithRetry(path, DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("read file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse JSON %s: %w", path, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
