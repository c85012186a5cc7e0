package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultOptions(t *testing.T) {
	opts := NewDefaultOptions()
	require.Equal(t, DefaultDataDir, opts.DataDir)
	require.Equal(t, DefaultCompactionInterval, opts.CompactionInterval)
	require.Equal(t, DefaultMaxFieldBytes, opts.MaxFieldBytes)
	require.Equal(t, SyncNone, opts.SyncPolicy)
	require.Equal(t, BootstrapTruncate, opts.BootstrapPolicy)
	require.Equal(t, DefaultSegmentBytes, opts.SegmentOptions.Size)
	require.Equal(t, DefaultSegmentPrefix, opts.SegmentOptions.Prefix)
}

func TestNewDefaultOptionsReturnsIndependentSegmentOptions(t *testing.T) {
	a := NewDefaultOptions()
	b := NewDefaultOptions()
	a.SegmentOptions.Size = 123

	require.NotEqual(t, a.SegmentOptions.Size, b.SegmentOptions.Size)
}

func TestWithSegmentSizeRejectsOutOfRange(t *testing.T) {
	opts := NewDefaultOptions()
	original := opts.SegmentOptions.Size

	WithSegmentSize(MinSegmentBytes - 1)(&opts)
	require.Equal(t, original, opts.SegmentOptions.Size)

	WithSegmentSize(MaxSegmentBytes + 1)(&opts)
	require.Equal(t, original, opts.SegmentOptions.Size)
}

func TestWithSegmentSizeAcceptsBoundaryValues(t *testing.T) {
	opts := NewDefaultOptions()

	WithSegmentSize(MinSegmentBytes)(&opts)
	require.Equal(t, MinSegmentBytes, opts.SegmentOptions.Size)

	WithSegmentSize(MaxSegmentBytes)(&opts)
	require.Equal(t, MaxSegmentBytes, opts.SegmentOptions.Size)
}

func TestWithCompactionIntervalRejectsNonPositive(t *testing.T) {
	opts := NewDefaultOptions()
	original := opts.CompactionInterval

	WithCompactionInterval(0)(&opts)
	require.Equal(t, original, opts.CompactionInterval)

	WithCompactionInterval(5 * time.Second)(&opts)
	require.Equal(t, 5*time.Second, opts.CompactionInterval)
}

func TestWithDataDirTrimsAndIgnoresEmpty(t *testing.T) {
	opts := NewDefaultOptions()
	WithDataDir("  custom-dir  ")(&opts)
	require.Equal(t, "custom-dir", opts.DataDir)

	WithDataDir("   ")(&opts)
	require.Equal(t, "custom-dir", opts.DataDir)
}

func TestWithBootstrapPolicy(t *testing.T) {
	opts := NewDefaultOptions()
	WithBootstrapPolicy(BootstrapStrict)(&opts)
	require.Equal(t, BootstrapStrict, opts.BootstrapPolicy)
}
