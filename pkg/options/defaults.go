package options

import "time"

const (
	// DefaultDataDir is the directory silo stores its segment files in when
	// no other directory is specified.
	DefaultDataDir = "silo"

	// DefaultCompactionInterval is how often the background compactor
	// wakes up to scan the data directory for segments worth rewriting.
	DefaultCompactionInterval = 300 * time.Second

	// MinSegmentBytes is the smallest rollover threshold silo will accept.
	// Below this, segment churn would dominate write throughput.
	MinSegmentBytes uint64 = 64 * 1024

	// MaxSegmentBytes is the largest rollover threshold silo will accept.
	MaxSegmentBytes uint64 = 4 * 1024 * 1024 * 1024

	// DefaultSegmentBytes is the rollover threshold: 4 MiB.
	DefaultSegmentBytes uint64 = 4 * 1024 * 1024

	// DefaultSegmentPrefix is the filename prefix new segment files use.
	DefaultSegmentPrefix = "segment"

	// DefaultMaxFieldBytes bounds how large a single decoded key or value
	// field is allowed to be, guarding against a corrupt length field
	// requesting an enormous allocation.
	DefaultMaxFieldBytes uint64 = 64 * 1024 * 1024
)

// SyncPolicy controls when appended records are flushed to stable storage.
type SyncPolicy int

const (
	// SyncNone never calls fsync explicitly, relying on the filesystem's
	// own flush discipline. This is the default.
	SyncNone SyncPolicy = iota
	// SyncAlways calls fsync after every append.
	SyncAlways
	// SyncInterval calls fsync periodically from a background timer
	// rather than on every write.
	SyncInterval
)

// BootstrapPolicy controls how Open reacts to a corrupt tail record found
// while replaying a segment's keydir.
type BootstrapPolicy int

const (
	// BootstrapStrict refuses to open the store when a segment scan hits a
	// corrupt record, surfacing BootstrapError.
	BootstrapStrict BootstrapPolicy = iota
	// BootstrapTruncate recovers by truncating the segment at the last
	// good record boundary and continuing.
	BootstrapTruncate
)

// Holds the default configuration settings for a silo instance.
var defaultOptions = Options{
	DataDir:            DefaultDataDir,
	CompactionInterval: DefaultCompactionInterval,
	MaxFieldBytes:      DefaultMaxFieldBytes,
	SyncPolicy:         SyncNone,
	SyncInterval:       time.Second,
	BootstrapPolicy:    BootstrapTruncate,
	SegmentOptions: &segmentOptions{
		Size:   DefaultSegmentBytes,
		Prefix: DefaultSegmentPrefix,
	},
}

// NewDefaultOptions returns a fresh copy of silo's default configuration.
func NewDefaultOptions() Options {
	opts := defaultOptions
	segOpts := *defaultOptions.SegmentOptions
	opts.SegmentOptions = &segOpts
	return opts
}
