package errors

// RecordError is a specialized error type for failures decoding or
// validating a single on-disk log record: checksum mismatches, truncated
// fields, unrecognized opcodes, and invalid UTF-8 payloads.
type RecordError struct {
	*baseError
	offset int64 // byte offset within the segment where decoding was attempted.
}

// NewRecordError creates a new record-decoding error.
func NewRecordError(err error, code ErrorCode, msg string) *RecordError {
	return &RecordError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the RecordError type.
func (re *RecordError) WithMessage(msg string) *RecordError {
	re.baseError.WithMessage(msg)
	return re
}

// WithCode sets the error code while preserving the RecordError type.
func (re *RecordError) WithCode(code ErrorCode) *RecordError {
	re.baseError.WithCode(code)
	return re
}

// WithDetail adds contextual information while maintaining the RecordError type.
func (re *RecordError) WithDetail(key string, value any) *RecordError {
	re.baseError.WithDetail(key, value)
	return re
}

// WithOffset records the byte offset where decoding was attempted.
func (re *RecordError) WithOffset(offset int64) *RecordError {
	re.offset = offset
	return re
}

// Offset returns the byte offset where decoding was attempted.
func (re *RecordError) Offset() int64 {
	return re.offset
}
