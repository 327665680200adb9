// Package errors defines the pipeline error taxonomy. Per-file failures
// carry enough context to be reported and skipped without corrupting the
// rest of the batch.
package errors

import (
	"errors"
	"fmt"
)

// SchemaMismatchError reports a raw table whose column count does not
// match the target schema. Fatal for that file only.
type SchemaMismatchError struct {
	Source     string
	RawCols    int
	TargetCols int
}

// Error implements the error interface
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s: raw table has %d columns, target schema has %d", e.Source, e.RawCols, e.TargetCols)
}

// NewSchemaMismatch creates a SchemaMismatchError for one source file.
func NewSchemaMismatch(source string, rawCols, targetCols int) *SchemaMismatchError {
	return &SchemaMismatchError{Source: source, RawCols: rawCols, TargetCols: targetCols}
}

// IngestError wraps a spreadsheet collaborator failure for one source
// file. The underlying cause is preserved for unwrapping.
type IngestError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest failed for %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause
func (e *IngestError) Unwrap() error {
	return e.Err
}

// NewIngestError wraps a read/parse failure with its file path.
func NewIngestError(path string, err error) *IngestError {
	return &IngestError{Path: path, Err: err}
}

// IsSchemaMismatch reports whether err is (or wraps) a SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var e *SchemaMismatchError
	return errors.As(err, &e)
}

// IsIngestFailure reports whether err is (or wraps) an IngestError.
func IsIngestFailure(err error) bool {
	var e *IngestError
	return errors.As(err, &e)
}
