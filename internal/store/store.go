// Package store is the core coordinator of silo: it owns the chronologically
// ordered chain of segments and their keydirs, enforces the rollover rule,
// routes writes to the tail segment, resolves reads newest-segment-first,
// and supervises the background compactor. It is the direct coordinator of
// the whole log — not a thin lifecycle layer sitting over a separate
// file-handling layer. See DESIGN.md.
package store

import (
	"context"
	stdErrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iamNilotpal/silo/internal/compaction"
	"github.com/iamNilotpal/silo/internal/keydir"
	"github.com/iamNilotpal/silo/internal/record"
	"github.com/iamNilotpal/silo/internal/segment"
	"github.com/iamNilotpal/silo/pkg/errors"
	"github.com/iamNilotpal/silo/pkg/filesys"
	"github.com/iamNilotpal/silo/pkg/options"
	"github.com/iamNilotpal/silo/pkg/seginfo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrStoreClosed is returned when attempting to perform operations on a
// closed store.
var ErrStoreClosed = stdErrors.New("operation failed: cannot access closed store")

// Config holds everything Open needs to construct a Store.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// Store owns the ordered segment/keydir chain and serializes every public
// operation behind a single mutex.
type Store struct {
	mu sync.Mutex

	dir             string
	prefix          string
	maxSegmentBytes uint64
	maxFieldBytes   uint64
	syncPolicy      options.SyncPolicy
	bootstrapPolicy options.BootstrapPolicy

	segments []*segment.Segment // oldest -> newest; last is always the tail.
	keydirs  []*keydir.Keydir   // parallel to segments.

	log          *zap.SugaredLogger
	closed       atomic.Bool
	inconsistent atomic.Bool // set once Get finds a keydir offset that doesn't decode as expected.

	compactor *compaction.Compactor
	cancel    context.CancelFunc
	done      chan struct{}
	syncDone  chan struct{} // closed once the periodic sync goroutine exits; nil unless SyncInterval is active.
}

// ErrIndexInconsistent is returned by every subsequent Set, Delete, and Get
// once Get has observed a keydir entry that fails to decode as the Set
// record it is supposed to point at. This is a bug-class condition: the
// store refuses further writes rather than continue against an index it
// can no longer trust. The process must be restarted.
var ErrIndexInconsistent = stdErrors.New("operation failed: store index is inconsistent, restart required")

// Open creates the data directory if absent, replays every existing
// segment's keydir in chronological order, rolls over if the discovered
// tail is already at capacity, and starts the background compactor.
func Open(ctx context.Context, config *Config) (*Store, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewRequiredFieldError("config")
	}

	opts := config.Options
	log := config.Logger

	log.Infow("opening store",
		"dataDir", opts.DataDir,
		"maxSegmentBytes", opts.SegmentOptions.Size,
		"compactionInterval", opts.CompactionInterval,
	)

	if err := filesys.CreateDir(opts.DataDir, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, opts.DataDir)
	}

	s := &Store{
		dir:             opts.DataDir,
		prefix:          opts.SegmentOptions.Prefix,
		maxSegmentBytes: opts.SegmentOptions.Size,
		maxFieldBytes:   opts.MaxFieldBytes,
		syncPolicy:      opts.SyncPolicy,
		bootstrapPolicy: opts.BootstrapPolicy,
		log:             log,
	}

	if err := s.bootstrap(); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.compactor = compaction.New(compaction.Config{
		DataDir:       s.dir,
		Prefix:        s.prefix,
		Interval:      opts.CompactionInterval,
		MaxFieldBytes: s.maxFieldBytes,
		Logger:        log,
		Swap:          s.swapSegment,
	})

	go func() {
		defer close(s.done)
		s.compactor.Run(cctx)
	}()

	if s.syncPolicy == options.SyncInterval {
		interval := opts.SyncInterval
		s.syncDone = make(chan struct{})
		go func() {
			defer close(s.syncDone)
			s.runPeriodicSync(cctx, interval)
		}()
	}

	log.Infow("store opened", "activeSegmentID", s.segments[len(s.segments)-1].ID, "segmentCount", len(s.segments))
	return s, nil
}

// runPeriodicSync flushes the tail segment to disk on a fixed interval until
// ctx is cancelled. It holds the store lock only for the duration of the
// fsync itself.
func (s *Store) runPeriodicSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			tail := s.tailSegment()
			if err := tail.Sync(); err != nil {
				s.log.Warnw("periodic sync failed", "path", tail.Path, "error", err)
			}
			s.mu.Unlock()
		}
	}
}

// bootstrap enumerates *.seg files in chronological order and rebuilds
// their keydirs by replaying records from offset 0.
func (s *Store) bootstrap() error {
	paths, err := seginfo.List(s.dir, s.prefix)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeBootstrapFailed, "failed to list segment files").
			WithPath(s.dir)
	}

	if len(paths) == 0 {
		seg, err := segment.Create(s.dir, seginfo.NewID(), s.prefix)
		if err != nil {
			return err
		}
		s.segments = []*segment.Segment{seg}
		s.keydirs = []*keydir.Keydir{keydir.New()}
		return nil
	}

	for _, path := range paths {
		id, err := seginfo.ParseSegmentID(path, s.prefix)
		if err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeBootstrapFailed, "failed to parse segment filename").
				WithPath(path)
		}

		seg, err := segment.Open(path, id)
		if err != nil {
			return err
		}

		kd := keydir.New()
		lastGood, scanErr := seg.Scan(s.maxFieldBytes, func(offset int64, rec record.Record) error {
			switch rec.Op {
			case record.OpSet:
				kd.PutLive(rec.Key, offset)
			case record.OpDelete:
				kd.PutTombstone(rec.Key)
			}
			return nil
		})

		if scanErr != nil {
			if s.bootstrapPolicy == options.BootstrapStrict {
				return errors.NewStorageError(scanErr, errors.ErrorCodeBootstrapFailed, "segment replay hit a corrupt record").
					WithPath(path).WithOffset(int(lastGood))
			}

			s.log.Warnw("recovering corrupt tail segment by truncating at last good record",
				"path", path, "lastGoodOffset", lastGood, "cause", scanErr)
			if err := seg.Truncate(lastGood); err != nil {
				return err
			}
		}

		s.segments = append(s.segments, seg)
		s.keydirs = append(s.keydirs, kd)
	}

	tail := s.segments[len(s.segments)-1]
	if uint64(tail.Size()) >= s.maxSegmentBytes {
		if err := s.rollover(); err != nil {
			return err
		}
	}

	return nil
}

// Set appends a Set record to the tail segment and updates the tail
// keydir. If the tail then meets or exceeds the rollover threshold, a new
// tail segment and keydir are created.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrStoreClosed
	}
	if s.inconsistent.Load() {
		return ErrIndexInconsistent
	}

	tail := s.tailSegment()
	kd := s.tailKeydir()

	offset, err := tail.Append(key, record.OpSet, value, uint64(time.Now().Unix()))
	if err != nil {
		return err
	}

	if s.syncPolicy == options.SyncAlways {
		if err := tail.Sync(); err != nil {
			return err
		}
	}

	kd.PutLive(key, offset)

	if uint64(tail.Size()) >= s.maxSegmentBytes {
		if err := s.rollover(); err != nil {
			return err
		}
	}

	return nil
}

// Delete appends a Delete record to the tail and marks the tail keydir
// Tombstone. It is idempotent: repeating it appends another Delete record,
// but observable state (Get returns None) does not change.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrStoreClosed
	}
	if s.inconsistent.Load() {
		return ErrIndexInconsistent
	}

	tail := s.tailSegment()
	kd := s.tailKeydir()

	_, err := tail.Append(key, record.OpDelete, "", uint64(time.Now().Unix()))
	if err != nil {
		return err
	}

	if s.syncPolicy == options.SyncAlways {
		if err := tail.Sync(); err != nil {
			return err
		}
	}

	kd.PutTombstone(key)

	if uint64(tail.Size()) >= s.maxSegmentBytes {
		if err := s.rollover(); err != nil {
			return err
		}
	}

	return nil
}

// Get walks keydirs from newest to oldest. The first keydir that mentions
// key decides the result: a Tombstone means the key is gone; a Live offset
// is resolved against its segment and must decode to a Set record for the
// same key, or an index-inconsistency error is raised. A key no keydir
// mentions at all returns ok == false with no error.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return "", false, ErrStoreClosed
	}
	if s.inconsistent.Load() {
		return "", false, ErrIndexInconsistent
	}

	for i := len(s.segments) - 1; i >= 0; i-- {
		entry, mentioned := s.keydirs[i].Get(key)
		if !mentioned {
			continue
		}
		if entry.Tombstone {
			return "", false, nil
		}

		rec, err := s.segments[i].ReadAt(entry.Offset, s.maxFieldBytes)
		if err != nil {
			s.inconsistent.Store(true)
			return "", false, errors.NewIndexCorruptionError("Get", s.keydirs[i].Len(), err).
				WithKey(key).WithSegmentID(uint16(s.segments[i].ID))
		}
		if rec.Op != record.OpSet || rec.Key != key {
			s.inconsistent.Store(true)
			return "", false, errors.NewIndexCorruptionError("Get", s.keydirs[i].Len(), nil).
				WithKey(key).WithSegmentID(uint16(s.segments[i].ID)).
				WithDetail("decodedOp", rec.Op.String()).WithDetail("decodedKey", rec.Key)
		}

		return rec.Value, true, nil
	}

	return "", false, nil
}

// Close stops the compactor and closes every segment's file handle.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrStoreClosed
	}

	s.cancel()
	<-s.done
	if s.syncDone != nil {
		<-s.syncDone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, seg := range s.segments {
		errs = multierr.Append(errs, seg.Close())
	}
	return errs
}

// rollover creates a new tail segment and keydir. Callers must hold s.mu.
//
// The new tail's id is drawn fresh from seginfo.NewID, not derived from the
// old tail's id: real segments need ids spaced far apart (see
// pkg/seginfo's doc comment) so that a compaction successor — which is
// only ever one nanosecond past its source's id — can never reach or
// collide with the id of the next real segment in the chain.
func (s *Store) rollover() error {
	newID := seginfo.NewID()
	seg, err := segment.Create(s.dir, newID, s.prefix)
	if err != nil {
		return err
	}

	s.segments = append(s.segments, seg)
	s.keydirs = append(s.keydirs, keydir.New())

	s.log.Infow("rolled over to new tail segment", "segmentID", newID)
	return nil
}

// swapSegment locates sourcePath in the
// store's segment list and, if still present, replace it and its keydir
// with the compacted replacement under the store lock. If the source is no
// longer present — an earlier compaction may have already replaced it —
// the replacement is discarded.
func (s *Store) swapSegment(sourcePath string, newSeg *segment.Segment, newKd *keydir.Keydir) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, seg := range s.segments {
		if seg.Path == sourcePath {
			idx = i
			break
		}
	}

	if idx == -1 {
		s.log.Infow("compaction source no longer present, discarding replacement", "path", sourcePath)
		return newSeg.Remove()
	}

	old := s.segments[idx]
	s.segments[idx] = newSeg
	s.keydirs[idx] = newKd

	if err := old.Remove(); err != nil {
		s.log.Warnw("failed to remove superseded segment", "path", old.Path, "error", err)
	}

	s.log.Infow("compacted segment swapped in", "sourcePath", sourcePath, "newSegmentID", newSeg.ID)
	return nil
}

func (s *Store) tailSegment() *segment.Segment {
	return s.segments[len(s.segments)-1]
}

func (s *Store) tailKeydir() *keydir.Keydir {
	return s.keydirs[len(s.keydirs)-1]
}
