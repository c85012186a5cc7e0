// Package segment implements a single append-only log file: the unit the
// store appends records to, reads records from at a known offset, and
// scans end-to-end during bootstrap and compaction.
//
// A Segment owns exactly one open *os.File. All the synchronization this
// package's callers need is already provided one level up: every public
// Store operation holds the store's single mutex for its full duration
// so at most one goroutine ever calls Append on a given
// Segment at a time, and reads never race a concurrent append on the same
// handle. The compaction worker opens its own, independent read-only
// handle on a segment's path rather than sharing this one, so it never
// needs to coordinate with this type either.
package segment

import (
	"io"
	"os"
	"path/filepath"

	"github.com/iamNilotpal/silo/internal/record"
	"github.com/iamNilotpal/silo/pkg/errors"
	"github.com/iamNilotpal/silo/pkg/seginfo"
)

// Segment is a single append-only file on disk plus its open handle.
type Segment struct {
	ID   uint64
	Path string
	file *os.File
	size int64
}

// Create makes a brand new, empty segment file with the given id in dir,
// using the configured filename prefix, and opens it for append.
func Create(dir string, id uint64, prefix string) (*Segment, error) {
	name := seginfo.GenerateName(id, prefix)
	path := filepath.Join(dir, name)
	return openFile(path, id)
}

// Open opens an existing segment file at path for continued reads and
// (if it is the store's tail) appends.
func Open(path string, id uint64) (*Segment, error) {
	return openFile(path, id)
}

func openFile(path string, id uint64) (*Segment, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}

	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		_ = file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to end of segment file").
			WithPath(path).WithSegmentID(int(id))
	}

	return &Segment{ID: id, Path: path, file: file, size: size}, nil
}

// Size returns the current byte length of the segment.
func (s *Segment) Size() int64 {
	return s.size
}

// Append encodes a record and writes it to the end of the segment,
// returning the byte offset its first byte landed at.
func (s *Segment) Append(key string, op record.Opcode, value string, timestamp uint64) (int64, error) {
	buf, err := record.Encode(key, op, value, timestamp)
	if err != nil {
		return 0, err
	}

	offset := s.size

	n, err := s.file.Write(buf)
	if err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append record to segment").
			WithPath(s.Path).WithSegmentID(int(s.ID)).WithOffset(int(offset))
	}

	s.size += int64(n)
	return offset, nil
}

// ReadAt decodes the record beginning at offset.
func (s *Segment) ReadAt(offset int64, maxFieldBytes uint64) (record.Record, error) {
	rec, _, err := record.DecodeAt(s.file, offset, s.size, maxFieldBytes)
	return rec, err
}

// Scan walks every record in the segment from byte 0, invoking visit with
// each record's starting offset. It stops cleanly at end of file.
//
// If a record fails to decode, Scan returns the byte offset of the last
// record boundary it successfully passed together with the decode error,
// so the caller (bootstrap, typically) can decide whether to recover by
// truncating at that boundary or to fail outright.
func (s *Segment) Scan(maxFieldBytes uint64, visit func(offset int64, rec record.Record) error) (lastGoodOffset int64, err error) {
	offset := int64(0)
	for {
		rec, n, err := record.DecodeAt(s.file, offset, s.size, maxFieldBytes)
		if err == io.EOF {
			return offset, nil
		}
		if err != nil {
			return offset, err
		}
		if err := visit(offset, rec); err != nil {
			return offset, err
		}
		offset += n
	}
}

// Truncate shortens the segment file to length and refreshes the cached
// size. Used by bootstrap recovery to discard a corrupt tail record.
func (s *Segment) Truncate(length int64) error {
	if err := s.file.Truncate(length); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to truncate segment").
			WithPath(s.Path).WithSegmentID(int(s.ID)).WithOffset(int(length))
	}
	if _, err := s.file.Seek(0, io.SeekEnd); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to reseek after truncate").
			WithPath(s.Path).WithSegmentID(int(s.ID))
	}
	s.size = length
	return nil
}

// Sync flushes the segment's buffered writes to stable storage.
func (s *Segment) Sync() error {
	if err := s.file.Sync(); err != nil {
		return errors.ClassifySyncError(err, filepath.Base(s.Path), s.Path, int(s.size))
	}
	return nil
}

// Close releases the segment's file handle.
func (s *Segment) Close() error {
	return s.file.Close()
}

// Remove closes and deletes the segment's underlying file. Used by
// compaction once a replacement segment has been swapped in.
func (s *Segment) Remove() error {
	_ = s.file.Close()
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to remove superseded segment").
			WithPath(s.Path).WithSegmentID(int(s.ID))
	}
	return nil
}
