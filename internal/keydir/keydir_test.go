package keydir

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestPutLiveThenGet(t *testing.T) {
	kd := New()
	kd.PutLive("alpha", 42)

	entry, ok := kd.Get("alpha")
	require.True(t, ok)
	require.False(t, entry.Tombstone)
	require.Equal(t, int64(42), entry.Offset)
}

func TestAbsenceIsDistinctFromTombstone(t *testing.T) {
	kd := New()

	_, ok := kd.Get("missing")
	require.False(t, ok)

	kd.PutTombstone("deleted")
	entry, ok := kd.Get("deleted")
	require.True(t, ok)
	require.True(t, entry.Tombstone)
}

func TestPutTombstoneOverwritesLive(t *testing.T) {
	kd := New()
	kd.PutLive("k", 10)
	kd.PutTombstone("k")

	entry, ok := kd.Get("k")
	require.True(t, ok)
	require.True(t, entry.Tombstone)
}

func TestLenAndKeys(t *testing.T) {
	kd := New()
	kd.PutLive("a", 1)
	kd.PutLive("b", 2)
	kd.PutTombstone("c")

	require.Equal(t, 3, kd.Len())

	keys := kd.Keys()
	sort.Strings(keys)
	require.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestKeysIsUnorderedSetOfMentionedKeys(t *testing.T) {
	kd := New()
	kd.PutLive("a", 1)
	kd.PutLive("b", 2)
	kd.PutTombstone("c")

	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, kd.Keys(), cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}
