// Package compaction implements the background worker that reclaims space
// held by overwritten and deleted keys.
//
// On each tick it scans the data directory directly — never the store's
// in-memory segment list — so it never has to hold the store's lock while
// doing the expensive part of the work. For every segment it builds a
// last-write-wins map of the records it contains; if that map is smaller
// than the segment's record count, the segment has dead entries worth
// reclaiming, so a replacement segment is written and handed to the store
// through the Swap callback, which performs the one step that does need
// the lock: the atomic list swap.
package compaction

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/iamNilotpal/silo/internal/keydir"
	"github.com/iamNilotpal/silo/internal/record"
	"github.com/iamNilotpal/silo/internal/segment"
	"github.com/iamNilotpal/silo/pkg/errors"
	"github.com/iamNilotpal/silo/pkg/seginfo"
	"go.uber.org/zap"
)

// SwapFunc performs the atomic replacement of a compacted source segment
// with its rewritten successor. Implemented by the store, which holds the
// lock the swap itself requires.
type SwapFunc func(sourcePath string, newSegment *segment.Segment, newKeydir *keydir.Keydir) error

// Config configures a Compactor.
type Config struct {
	DataDir       string
	Prefix        string
	Interval      time.Duration
	MaxFieldBytes uint64
	Logger        *zap.SugaredLogger
	Swap          SwapFunc
}

// Compactor periodically rewrites segments with dead entries into smaller
// successors.
type Compactor struct {
	dir           string
	prefix        string
	interval      time.Duration
	maxFieldBytes uint64
	log           *zap.SugaredLogger
	swap          SwapFunc
}

// New constructs a Compactor from config. It does not start running until
// Run is called.
func New(config Config) *Compactor {
	return &Compactor{
		dir:           config.DataDir,
		prefix:        config.Prefix,
		interval:      config.Interval,
		maxFieldBytes: config.MaxFieldBytes,
		log:           config.Logger,
		swap:          config.Swap,
	}
}

// Run drives the compaction loop on a ticker until ctx is canceled.
func (c *Compactor) Run(ctx context.Context) {
	if c.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runCycle(ctx)
		}
	}
}

// runCycle inspects every segment currently on disk and compacts those
// worth compacting. Errors are logged, never propagated: a failed
// compaction of one segment must not stop the store or block other
// segments from being compacted on the next tick.
func (c *Compactor) runCycle(ctx context.Context) {
	paths, err := seginfo.List(c.dir, c.prefix)
	if err != nil {
		c.log.Warnw("compaction cycle failed to list segments", "error", err)
		return
	}

	// Never compact the tail: it is still being written to and its path
	// isn't stable across a rollover race. The store always keeps at
	// least one segment, and the newest path in a sorted listing is, by
	// construction, the most recently created file.
	if len(paths) <= 1 {
		return
	}
	candidates := paths[:len(paths)-1]

	for _, path := range candidates {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.compactOne(path); err != nil {
			if ce, ok := errors.AsCompactionError(err); ok {
				c.log.Warnw("compaction of segment failed", "path", path, "sourcePath", ce.SourcePath(), "error", err)
				continue
			}
			c.log.Warnw("compaction of segment failed", "path", path, "error", err)
		}
	}
}

// compactOne rewrites a single segment if doing so would shed dead
// entries, then asks the store to swap it in.
func (c *Compactor) compactOne(path string) error {
	sourceID, err := seginfo.ParseSegmentID(path, c.prefix)
	if err != nil {
		return errors.NewCompactionError(err, errors.ErrorCodeCompactionFailed, "failed to parse source segment filename").
			WithSourcePath(path)
	}

	latest, recordCount, err := c.scanLatest(path)
	if err != nil {
		return err
	}

	if len(latest) == recordCount {
		// No overwritten or deleted entries: rewriting would produce an
		// identical segment, so there is nothing to reclaim.
		return nil
	}

	// One nanosecond past the source's id: real segment ids come from
	// seginfo.NewID (store bootstrap/rollover), which spaces them seconds
	// to minutes apart, so this always lands strictly between sourceID and
	// the next real segment's id without colliding.
	newID := seginfo.NextID(sourceID)
	newSeg, err := segment.Create(c.dir, newID, c.prefix)
	if err != nil {
		return errors.NewCompactionError(err, errors.ErrorCodeCompactionFailed, "failed to create replacement segment").
			WithSourcePath(path)
	}

	newKd := keydir.New()
	for key, rec := range latest {
		offset, err := newSeg.Append(key, rec.Op, rec.Value, rec.Timestamp)
		if err != nil {
			_ = newSeg.Remove()
			return errors.NewCompactionError(err, errors.ErrorCodeCompactionFailed, "failed to write record into replacement segment").
				WithSourcePath(path)
		}

		switch rec.Op {
		case record.OpSet:
			newKd.PutLive(key, offset)
		case record.OpDelete:
			newKd.PutTombstone(key)
		}
	}

	if err := newSeg.Sync(); err != nil {
		_ = newSeg.Remove()
		return err
	}

	if err := c.swap(path, newSeg, newKd); err != nil {
		_ = newSeg.Remove()
		return errors.NewCompactionError(err, errors.ErrorCodeCompactionFailed, "failed to swap compacted segment into store").
			WithSourcePath(path)
	}

	c.log.Infow("compacted segment", "sourcePath", path, "replacementID", newID, "liveKeys", len(latest))
	return nil
}

// scanLatest opens path with its own independent read-only handle and
// builds a last-write-wins map of every record it contains. A Delete is
// kept in the map, not dropped: the replacement segment must still be
// able to shadow a Live entry for the same key in an older segment that
// this compaction pass never touches.
func (c *Compactor) scanLatest(path string) (map[string]record.Record, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.NewCompactionError(err, errors.ErrorCodeCompactionFailed, "failed to open segment for compaction scan").
			WithSourcePath(path)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, errors.NewCompactionError(err, errors.ErrorCodeCompactionFailed, "failed to stat segment for compaction scan").
			WithSourcePath(path)
	}

	latest := make(map[string]record.Record)
	recordCount := 0
	offset := int64(0)
	size := info.Size()

	for {
		rec, n, err := record.DecodeAt(file, offset, size, c.maxFieldBytes)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, errors.NewCompactionError(err, errors.ErrorCodeCompactionFailed, "failed to decode record during compaction scan").
				WithSourcePath(path)
		}

		latest[rec.Key] = rec
		recordCount++
		offset += n
	}

	return latest, recordCount, nil
}
