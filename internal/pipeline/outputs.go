package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"media-pipeline/internal/logging"
	"media-pipeline/internal/model"
)

// ErrOutputConflict marks a unit whose output file is already written by
// another unit of the same batch, for example two inputs named x.jpg in
// different directories.
var ErrOutputConflict = errors.New("output path already used in this batch")

// outputClaims records which unit owns each output path of one batch. The
// first unit to claim a path keeps it.
type outputClaims map[string]claim

type claim struct {
	source string
	spec   string
}

func (c outputClaims) take(path, source, spec string) error {
	key := filepath.Clean(path)
	want := claim{source: source, spec: spec}
	if owner, ok := c[key]; ok && owner != want {
		return fmt.Errorf("%w: %s is already written for %s", ErrOutputConflict, path, owner.source)
	}
	c[key] = want
	return nil
}

// conflictUnit reports err for source without doing any work.
func conflictUnit(kind model.JobKind, source, label string, err error) func(context.Context) model.JobResult {
	logging.Warn("Not processing %s: %v", source, err)
	return func(context.Context) model.JobResult {
		return model.JobResult{Kind: kind, SourcePath: source, Spec: label}.WithError(err)
	}
}
