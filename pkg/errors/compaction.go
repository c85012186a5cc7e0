package errors

// CompactionError is a specialized error type for failures in the
// background compaction cycle. A compaction error never propagates to a
// foreground caller; the compactor logs it and retries the affected
// segment on its next cycle.
type CompactionError struct {
	*baseError
	sourcePath string // path of the segment being compacted when the failure occurred.
}

// NewCompactionError creates a new compaction-specific error.
func NewCompactionError(err error, code ErrorCode, msg string) *CompactionError {
	return &CompactionError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the CompactionError type.
func (ce *CompactionError) WithMessage(msg string) *CompactionError {
	ce.baseError.WithMessage(msg)
	return ce
}

// WithCode sets the error code while preserving the CompactionError type.
func (ce *CompactionError) WithCode(code ErrorCode) *CompactionError {
	ce.baseError.WithCode(code)
	return ce
}

// WithDetail adds contextual information while maintaining the CompactionError type.
func (ce *CompactionError) WithDetail(key string, value any) *CompactionError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// WithSourcePath records which segment file was being compacted.
func (ce *CompactionError) WithSourcePath(path string) *CompactionError {
	ce.sourcePath = path
	return ce
}

// SourcePath returns the segment file path that was being compacted.
func (ce *CompactionError) SourcePath() string {
	return ce.sourcePath
}
