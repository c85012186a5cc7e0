package record

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSetRoundTrip(t *testing.T) {
	buf, err := Encode("alpha", OpSet, "bravo", 1700000000)
	require.NoError(t, err)

	rec, n, err := DecodeAt(bytes.NewReader(buf), 0, int64(len(buf)), 1<<20)
	require.NoError(t, err)
	require.Equal(t, int64(len(buf)), n)
	require.Equal(t, "alpha", rec.Key)
	require.Equal(t, "bravo", rec.Value)
	require.Equal(t, OpSet, rec.Op)
	require.Equal(t, uint64(1700000000), rec.Timestamp)
}

func TestEncodeDecodeDeleteRoundTrip(t *testing.T) {
	buf, err := Encode("alpha", OpDelete, "ignored-value", 42)
	require.NoError(t, err)

	rec, _, err := DecodeAt(bytes.NewReader(buf), 0, int64(len(buf)), 1<<20)
	require.NoError(t, err)
	require.Equal(t, OpDelete, rec.Op)
	require.Equal(t, "", rec.Value)
	require.Equal(t, "alpha", rec.Key)
}

func TestDecodeAtCleanEOFAtSegmentEnd(t *testing.T) {
	buf, err := Encode("k", OpSet, "v", 1)
	require.NoError(t, err)

	_, _, err = DecodeAt(bytes.NewReader(buf), int64(len(buf)), int64(len(buf)), 1<<20)
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeAtDetectsBitFlipCorruption(t *testing.T) {
	buf, err := Encode("k", OpSet, "v", 1)
	require.NoError(t, err)

	// Flip every bit of the value-length field's low byte, well past the
	// checksum field.
	corrupt := append([]byte(nil), buf...)
	corrupt[len(corrupt)-2] ^= 0xFF

	_, _, err = DecodeAt(bytes.NewReader(corrupt), 0, int64(len(corrupt)), 1<<20)
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
}

func TestDecodeAtRejectsUnrecognizedOpcode(t *testing.T) {
	buf, err := Encode("k", OpSet, "v", 1)
	require.NoError(t, err)

	// The opcode byte sits right after timestamp(8) + keylen(8) + key(1) in
	// the CRC-prefixed layout: crc(2) + timestamp(8) + keylen(8) + "k"(1).
	opcodeOffset := 2 + 8 + 8 + 1
	corrupt := append([]byte(nil), buf...)
	corrupt[opcodeOffset] = 0x7F

	_, _, err = DecodeAt(bytes.NewReader(corrupt), 0, int64(len(corrupt)), 1<<20)
	require.Error(t, err)
}

func TestDecodeAtRejectsFieldLongerThanMax(t *testing.T) {
	buf, err := Encode("a-much-longer-key-than-the-limit-allows", OpSet, "v", 1)
	require.NoError(t, err)

	_, _, err = DecodeAt(bytes.NewReader(buf), 0, int64(len(buf)), 4)
	require.Error(t, err)
}

func TestEncodeRejectsUnknownOpcode(t *testing.T) {
	_, err := Encode("k", Opcode(0x9), "v", 1)
	require.Error(t, err)
}

func TestEncodeDecodeRoundTripPreservesEveryField(t *testing.T) {
	cases := []Record{
		{Timestamp: 1700000000, Key: "alpha", Op: OpSet, Value: "bravo"},
		{Timestamp: 0, Key: "", Op: OpSet, Value: ""},
		{Timestamp: 42, Key: "deleted-key", Op: OpDelete},
	}

	for _, want := range cases {
		buf, err := Encode(want.Key, want.Op, want.Value, want.Timestamp)
		require.NoError(t, err)

		got, _, err := DecodeAt(bytes.NewReader(buf), 0, int64(len(buf)), 1<<20)
		require.NoError(t, err)

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("decode(encode(record)) mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestOpcodeString(t *testing.T) {
	require.Equal(t, "Set", OpSet.String())
	require.Equal(t, "Delete", OpDelete.String())
	require.Contains(t, Opcode(0x42).String(), "0x42")
}
