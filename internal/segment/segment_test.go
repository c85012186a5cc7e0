package segment

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/silo/internal/record"
	"github.com/stretchr/testify/require"
)

func TestCreateAppendReadAt(t *testing.T) {
	dir := t.TempDir()

	seg, err := Create(dir, 1, "segment")
	require.NoError(t, err)
	defer seg.Close()

	offset, err := seg.Append("alpha", record.OpSet, "bravo", 1700000000)
	require.NoError(t, err)
	require.Equal(t, int64(0), offset)

	rec, err := seg.ReadAt(offset, 1<<20)
	require.NoError(t, err)
	require.Equal(t, "alpha", rec.Key)
	require.Equal(t, "bravo", rec.Value)
	require.Equal(t, record.OpSet, rec.Op)
}

func TestAppendAdvancesSizeAndOffsets(t *testing.T) {
	dir := t.TempDir()

	seg, err := Create(dir, 1, "segment")
	require.NoError(t, err)
	defer seg.Close()

	off1, err := seg.Append("k1", record.OpSet, "v1", 1)
	require.NoError(t, err)
	off2, err := seg.Append("k2", record.OpSet, "v2", 2)
	require.NoError(t, err)
	require.Greater(t, off2, off1)
	require.Equal(t, seg.Size(), off2+int64(sizeOf(t, seg, off2)))
}

func TestScanVisitsRecordsInOrder(t *testing.T) {
	dir := t.TempDir()

	seg, err := Create(dir, 1, "segment")
	require.NoError(t, err)
	defer seg.Close()

	_, err = seg.Append("k1", record.OpSet, "v1", 1)
	require.NoError(t, err)
	_, err = seg.Append("k2", record.OpSet, "v2", 2)
	require.NoError(t, err)
	_, err = seg.Append("k1", record.OpDelete, "", 3)
	require.NoError(t, err)

	var keys []string
	var ops []record.Opcode
	lastGood, err := seg.Scan(1<<20, func(offset int64, rec record.Record) error {
		keys = append(keys, rec.Key)
		ops = append(ops, rec.Op)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, seg.Size(), lastGood)
	require.Equal(t, []string{"k1", "k2", "k1"}, keys)
	require.Equal(t, []record.Opcode{record.OpSet, record.OpSet, record.OpDelete}, ops)
}

func TestOpenReopensExistingSegment(t *testing.T) {
	dir := t.TempDir()

	seg, err := Create(dir, 7, "segment")
	require.NoError(t, err)
	_, err = seg.Append("k", record.OpSet, "v", 1)
	require.NoError(t, err)
	path := seg.Path
	require.NoError(t, seg.Close())

	reopened, err := Open(path, 7)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, seg.Size(), reopened.Size())
	rec, err := reopened.ReadAt(0, 1<<20)
	require.NoError(t, err)
	require.Equal(t, "k", rec.Key)
}

func TestTruncateShortensAndResetsSize(t *testing.T) {
	dir := t.TempDir()

	seg, err := Create(dir, 1, "segment")
	require.NoError(t, err)
	defer seg.Close()

	firstOffset, err := seg.Append("k1", record.OpSet, "v1", 1)
	require.NoError(t, err)
	_, err = seg.Append("k2", record.OpSet, "v2", 2)
	require.NoError(t, err)

	require.NoError(t, seg.Truncate(firstOffset))
	require.Equal(t, firstOffset, seg.Size())

	_, _, err = record.DecodeAt(readerAt(t, seg), firstOffset, seg.Size(), 1<<20)
	require.ErrorIs(t, err, io.EOF)
}

func TestRemoveDeletesFile(t *testing.T) {
	dir := t.TempDir()

	seg, err := Create(dir, 1, "segment")
	require.NoError(t, err)
	path := seg.Path

	require.NoError(t, seg.Remove())

	// Removed then reopened: the O_CREATE flag means Open recreates an
	// empty file rather than failing. A segment id being reused is never
	// expected in practice, but the empty reopen confirms Remove actually
	// unlinked the original file rather than, say, just closing the handle.
	reopened, err := Open(filepath.Clean(path), 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), reopened.Size())
}

// sizeOf returns the on-disk size of the record at offset, used only to
// assert Append's returned offsets are consistent with the segment's
// cumulative size.
func sizeOf(t *testing.T, seg *Segment, offset int64) int64 {
	t.Helper()
	_, n, err := record.DecodeAt(readerAt(t, seg), offset, seg.Size(), 1<<20)
	require.NoError(t, err)
	return n
}

func readerAt(t *testing.T, seg *Segment) io.ReaderAt {
	t.Helper()
	return seg.file
}
