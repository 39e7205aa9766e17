// Copyright 2024 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package types holds the wire-level key/value shapes shared by the
// storage engine (memtable, sstable, wal) and the transactional layer
// built on top of it. The engine keeps only the latest value per key,
// so entries carry no version information.
package types

// Key is an opaque, comparable byte range. The storage engine orders
// it as a plain Go string; the transactional layer compares keys with
// the configured Comparator.
type Key = string

// Entry is a single key/value record as stored by the engine. A
// Tombstone entry records that Key was deleted without retaining the
// prior value.
type Entry struct {
	Key       Key
	Value     []byte
	Tombstone bool
}

// KV is the externally visible projection of an Entry: tombstones are
// never surfaced to callers of Scan/Get.
type KV struct {
	K string
	V []byte
}

// KVs filters tombstones out of entries and projects the rest to KV pairs.
func KVs(entries []Entry) []KV {
	var res []KV
	for _, entry := range entries {
		if entry.Tombstone {
			continue
		}
		res = append(res, KV{
			K: entry.Key,
			V: entry.Value,
		})
	}
	return res
}

// Value unwraps an Entry the way a reader expects: a tombstone reads
// back as "not found".
func Value(entry Entry) ([]byte, bool) {
	if entry.Tombstone {
		return nil, false
	}
	return entry.Value, true
}

// Comparator is the user-supplied three-way key comparator: negative
// if a < b, zero if equal, positive if a > b.
type Comparator func(a, b Key) int

// CompareBytewise is the default Comparator, ordering keys the way
// Go's built-in string comparison does.
func CompareBytewise(a, b Key) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// MessageTag classifies a write-set entry. Delete carries no payload;
// Insert and Update do.
type MessageTag int

const (
	TagInsert MessageTag = iota
	TagUpdate
	TagDelete
)

// MergeFunc reduces an (old, delta) pair into a new value, the way an
// Update's payload is folded into whatever a key already holds. The
// returned tag lets a merged Update promote itself to an Insert (or
// stay an Update) depending on the caller's own data model. When an
// Update is applied at commit, a returned Delete deletes the key.
type MergeFunc func(old, delta []byte) (merged []byte, tag MessageTag)

// LastWriteWins is the default MergeFunc: the delta fully replaces
// whatever value, if any, preceded it.
func LastWriteWins(_, delta []byte) ([]byte, MessageTag) {
	return delta, TagUpdate
}
