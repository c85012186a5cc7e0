// Package keydir implements the in-memory hash table that maps a key to the
// location of its most recent write within a single segment.
//
// There is one keydir per segment, not one keydir for the whole store: the
// store owns a chronologically ordered list of (segment, keydir) pairs and
// resolves a Get by walking that list newest to oldest, stopping at the
// first keydir that mentions the key at all.
//
// An entry is one of two states, never a bare absence:
//
//   - Live(offset): the key's Set record begins at offset within this
//     segment.
//   - Tombstone: this segment recorded a Delete for the key. A Tombstone
//     must shadow a Live entry in an older segment — that's the entire
//     reason Delete writes a marker instead of just removing the map
//     entry.
//
// Absence from the map means "this segment has nothing to say about this
// key," which is different from both of the above and lets the store's
// newest-to-oldest walk continue to the next older segment.
package keydir

import "sync"

// Entry is a keydir value: either a Live pointer at a byte offset, or a
// Tombstone recording a deletion.
type Entry struct {
	// Offset is the byte position of the key's Set record within its
	// segment. Only meaningful when Tombstone is false.
	Offset int64
	// Tombstone marks that this segment's final word on the key is a
	// Delete, which must shadow any Live entry in an older segment.
	Tombstone bool
}

// Keydir is the in-memory index for a single segment.
type Keydir struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty keydir, ready for a fresh or about-to-be-replayed
// segment.
func New() *Keydir {
	return &Keydir{entries: make(map[string]Entry)}
}

// PutLive records that key's most recent Set within this segment begins at
// offset.
func (k *Keydir) PutLive(key string, offset int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[key] = Entry{Offset: offset}
}

// PutTombstone records that key was deleted within this segment.
func (k *Keydir) PutTombstone(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[key] = Entry{Tombstone: true}
}

// Get returns the entry for key and whether this segment mentions the key
// at all. A false ok means the key is absent from this segment entirely —
// the caller should continue its search in an older segment.
func (k *Keydir) Get(key string) (entry Entry, ok bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	entry, ok = k.entries[key]
	return entry, ok
}

// Len returns the number of distinct keys this keydir has an opinion about
// (live or tombstoned).
func (k *Keydir) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

// Keys returns a snapshot of every key this keydir mentions, enumerating a
// segment's logical contents without re-scanning the file.
func (k *Keydir) Keys() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	keys := make([]string, 0, len(k.entries))
	for key := range k.entries {
		keys = append(keys, key)
	}
	return keys
}
