// Package record implements the on-disk binary framing for a single log
// entry: the smallest durable unit the store ever writes or reads.
//
// Layout, in on-disk order (all multi-byte integers big-endian):
//
//	CRC-16/IBM-SDLC  (2 bytes)
//	Timestamp        (8 bytes, unix seconds)
//	KeyLength        (8 bytes)
//	Key               (KeyLength bytes, UTF-8)
//	Opcode           (1 byte, 0x00=Set 0x01=Delete)
//	ValueLength      (8 bytes, Set only)
//	Value            (ValueLength bytes, UTF-8, Set only)
//
// The checksum covers every field after itself. Delete records carry no
// value trailer at all, not an empty one.
package record

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/iamNilotpal/silo/pkg/errors"
	"github.com/sigurn/crc16"
)

// Opcode distinguishes a live write from a deletion marker.
type Opcode uint8

const (
	// OpSet marks a record that carries a value.
	OpSet Opcode = 0x00
	// OpDelete marks a tombstone; it has no value trailer.
	OpDelete Opcode = 0x01
)

func (o Opcode) String() string {
	switch o {
	case OpSet:
		return "Set"
	case OpDelete:
		return "Delete"
	default:
		return fmt.Sprintf("Opcode(%#02x)", uint8(o))
	}
}

// Record is the decoded, in-memory form of one log entry.
type Record struct {
	Timestamp uint64
	Key       string
	Op        Opcode
	Value     string // only meaningful when Op == OpSet
}

var crcTable = crc16.MakeTable(crc16.CRC16_X_25)

// Encode produces the exact on-disk layout described above, computing the
// CRC over every field that follows it.
func Encode(key string, op Opcode, value string, timestamp uint64) ([]byte, error) {
	if op != OpSet && op != OpDelete {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "unrecognized record opcode",
		).WithField("op").WithRule("enum").WithDetail("provided", op)
	}
	if op == OpDelete {
		value = ""
	}

	bodyLen := 8 + 8 + len(key) + 1
	if op == OpSet {
		bodyLen += 8 + len(value)
	}

	buf := make([]byte, 2+bodyLen)
	body := buf[2:]

	binary.BigEndian.PutUint64(body[0:8], timestamp)
	binary.BigEndian.PutUint64(body[8:16], uint64(len(key)))
	n := copy(body[16:16+len(key)], key)
	body[16+n] = byte(op)

	if op == OpSet {
		valOff := 17 + n
		binary.BigEndian.PutUint64(body[valOff:valOff+8], uint64(len(value)))
		copy(body[valOff+8:], value)
	}

	sum := crc16.Checksum(body, crcTable)
	binary.BigEndian.PutUint16(buf[0:2], sum)
	return buf, nil
}

// DecodeAt decodes a single record starting at byte offset within ra, which
// must not extend past limit (typically the segment's current size).
//
// It returns the decoded record and the number of bytes it occupied on
// disk. A clean end of file at the very start of a record (offset == limit)
// is reported as io.EOF, the signal a Scan loop uses to stop. Any other
// failure — a truncated field, an unrecognized opcode, invalid UTF-8, or a
// checksum mismatch — is a *errors.RecordError wrapping the underlying
// cause.
func DecodeAt(ra io.ReaderAt, offset, limit int64, maxFieldBytes uint64) (Record, int64, error) {
	if offset >= limit {
		return Record{}, 0, io.EOF
	}

	sr := io.NewSectionReader(ra, offset, limit-offset)

	var crcBuf [2]byte
	if _, err := io.ReadFull(sr, crcBuf[:]); err != nil {
		if err == io.EOF {
			return Record{}, 0, io.EOF
		}
		return Record{}, 0, corrupt(offset, "failed to read CRC field", err)
	}
	wantCRC := binary.BigEndian.Uint16(crcBuf[:])

	var header [16]byte
	if _, err := io.ReadFull(sr, header[:]); err != nil {
		return Record{}, 0, corrupt(offset, "truncated record header", err)
	}
	timestamp := binary.BigEndian.Uint64(header[0:8])
	keyLen := binary.BigEndian.Uint64(header[8:16])

	if keyLen > maxFieldBytes {
		return Record{}, 0, corrupt(offset, "key length exceeds safety bound", nil).
			WithDetail("keyLength", keyLen).WithDetail("maxFieldBytes", maxFieldBytes)
	}

	keyBuf := make([]byte, keyLen)
	if _, err := io.ReadFull(sr, keyBuf); err != nil {
		return Record{}, 0, corrupt(offset, "truncated key bytes", err)
	}
	if !utf8.Valid(keyBuf) {
		return Record{}, 0, corrupt(offset, "key bytes are not valid UTF-8", nil)
	}

	var opBuf [1]byte
	if _, err := io.ReadFull(sr, opBuf[:]); err != nil {
		return Record{}, 0, corrupt(offset, "truncated opcode byte", err)
	}
	op := Opcode(opBuf[0])

	rec := Record{Timestamp: timestamp, Key: string(keyBuf), Op: op}
	checksummed := append(append([]byte{}, header[:]...), keyBuf...)
	checksummed = append(checksummed, opBuf[0])

	switch op {
	case OpSet:
		var lenBuf [8]byte
		if _, err := io.ReadFull(sr, lenBuf[:]); err != nil {
			return Record{}, 0, corrupt(offset, "truncated value length", err)
		}
		valueLen := binary.BigEndian.Uint64(lenBuf[:])
		if valueLen > maxFieldBytes {
			return Record{}, 0, corrupt(offset, "value length exceeds safety bound", nil).
				WithDetail("valueLength", valueLen).WithDetail("maxFieldBytes", maxFieldBytes)
		}

		valBuf := make([]byte, valueLen)
		if _, err := io.ReadFull(sr, valBuf); err != nil {
			return Record{}, 0, corrupt(offset, "truncated value bytes", err)
		}
		if !utf8.Valid(valBuf) {
			return Record{}, 0, corrupt(offset, "value bytes are not valid UTF-8", nil)
		}

		rec.Value = string(valBuf)
		checksummed = append(checksummed, lenBuf[:]...)
		checksummed = append(checksummed, valBuf...)
	case OpDelete:
		// no value trailer.
	default:
		return Record{}, 0, corrupt(offset, "unrecognized opcode", nil).WithDetail("opcode", opBuf[0])
	}

	gotCRC := crc16.Checksum(checksummed, crcTable)
	if gotCRC != wantCRC {
		return Record{}, 0, corrupt(offset, "CRC mismatch", nil).
			WithDetail("wantCRC", wantCRC).WithDetail("gotCRC", gotCRC)
	}

	size := int64(2 + len(checksummed))
	return rec, size, nil
}

func corrupt(offset int64, msg string, cause error) *errors.RecordError {
	return errors.NewRecordError(cause, errors.ErrorCodeRecordCorrupted, msg).WithOffset(offset)
}
