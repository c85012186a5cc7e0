// Package seginfo names and discovers segment files on disk.
//
// Filename format: prefix_NNNNNNNNNNNNNNNNNNNN_timestamp.seg
//
// Where:
//   - prefix: a configurable string identifying the store (e.g. "segment").
//   - NNNNNNNNNNNNNNNNNNNN: a zero-padded 20-digit segment id, drawn from
//     the current Unix nanosecond clock (NewID) whenever the store creates
//     a genuinely new tail segment (bootstrap-empty, rollover). This id
//     doubles as chronological order — a lexicographically sortable
//     monotonic identifier, the same role a ULID plays, without pulling in
//     that dependency (see DESIGN.md). Crucially, drawing real segment ids
//     from wall-clock nanoseconds rather than a dense 1,2,3,... counter
//     leaves enormous numeric gaps between neighboring real segments
//     (segments are created seconds to minutes apart, never one
//     nanosecond apart), which is exactly the room NextID needs: a
//     compaction successor's id (source id + 1 nanosecond) is
//     astronomically unlikely to collide with or overtake the next real
//     segment's id.
//   - timestamp: a nanosecond-precision Unix timestamp captured at
//     filename-generation time, kept for traceability and to disambiguate
//     a segment from its compaction successor when both briefly exist on
//     disk.
//   - .seg: fixed file extension.
//
// Example filenames:
//
//	segment_01678881234567890123_1678881234567891234.seg
//	segment_01678881298765432109_1678881298765433210.seg
package seginfo

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const idWidth = 20

// NewID draws a fresh, collision-free segment id from the current Unix
// nanosecond clock. The store uses this whenever it creates a genuinely new
// tail segment — at bootstrap with no existing segments, and at rollover —
// so that real segment ids are always widely spaced, never adjacent
// integers.
func NewID() uint64 {
	return uint64(time.Now().UnixNano())
}

// GenerateName creates a properly formatted filename for a new segment.
func GenerateName(id uint64, prefix string) string {
	if prefix == "" {
		return fmt.Sprintf("INVALID_PREFIX_%0*d_%d.seg", idWidth, id, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%0*d_%d.seg", prefix, idWidth, id, time.Now().UnixNano())
}

// ParseSegmentID extracts the sequence id from a segment filename.
func ParseSegmentID(fullPath, prefix string) (uint64, error) {
	_, filename := filepath.Split(fullPath)

	if !strings.HasPrefix(filename, prefix) {
		return 0, fmt.Errorf("filename %s does not start with expected prefix %s", filename, prefix)
	}

	withoutPrefix := strings.TrimPrefix(filename, prefix)
	withoutExtension := strings.Split(withoutPrefix, ".")[0]
	parts := strings.Split(withoutExtension, "_")

	if len(parts) < 3 {
		return 0, fmt.Errorf("filename %s has unexpected format, expected prefix_ID_timestamp.seg", filename)
	}

	idStr := parts[1]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse segment ID '%s' as integer: %w", idStr, err)
	}

	return id, nil
}

// NextID derives the monotonic successor of a segment id: one nanosecond
// later. Compaction uses this to place a replacement segment immediately
// after its source in chronological order, relying on real segment ids
// (see NewID) being spaced far more than a nanosecond apart so the
// successor can never reach or collide with the next real segment.
func NextID(id uint64) uint64 {
	return id + 1
}

// List returns every segment file in dataDir matching prefix, sorted
// oldest-to-newest (ascending id). It does not consult any in-memory
// state — only the directory entries on disk.
func List(dataDir, prefix string) ([]string, error) {
	pattern := filepath.Join(dataDir, prefix+"_*.seg")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob segment directory with pattern %s: %w", pattern, err)
	}
	slices.Sort(matches)
	return matches, nil
}
