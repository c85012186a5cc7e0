package seginfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateNameAndParseSegmentIDRoundTrip(t *testing.T) {
	name := GenerateName(42, "segment")
	id, err := ParseSegmentID(name, "segment")
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)
}

func TestGenerateNameIsZeroPaddedForSortability(t *testing.T) {
	earlier := GenerateName(2, "segment")
	later := GenerateName(10, "segment")
	require.Less(t, earlier, later)
}

func TestParseSegmentIDRejectsWrongPrefix(t *testing.T) {
	name := GenerateName(1, "segment")
	_, err := ParseSegmentID(name, "other")
	require.Error(t, err)
}

func TestNextIDIncrements(t *testing.T) {
	require.Equal(t, uint64(6), NextID(5))
}

func TestNewIDIsMonotonicAndWidelySpaced(t *testing.T) {
	a := NewID()
	time.Sleep(time.Millisecond)
	b := NewID()
	require.Greater(t, b, a)
	// NextID(a) must land strictly before b for compaction successors to
	// never catch up to the next real segment.
	require.Less(t, NextID(a), b)
}

func TestListReturnsSortedMatches(t *testing.T) {
	dir := t.TempDir()

	for _, id := range []uint64{3, 1, 2} {
		path := filepath.Join(dir, GenerateName(id, "segment"))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}
	// An unrelated file must be ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other_00000000000000000001_1.seg"), nil, 0644))

	matches, err := List(dir, "segment")
	require.NoError(t, err)
	require.Len(t, matches, 3)

	var ids []uint64
	for _, m := range matches {
		id, err := ParseSegmentID(m, "segment")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.Equal(t, []uint64{1, 2, 3}, ids)
}
