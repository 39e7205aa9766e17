// Copyright 2025 BINARY Members
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

package occkv

import "github.com/B1NARY-GR0UP/occkv/types"

// rwEntry is a (key, message) pair: one write-set slot.
type rwEntry struct {
	key     string
	tag     types.MessageTag
	payload []byte
}

// txnRecord is the per-transaction state tracked by the registry:
// start/validate/finish timestamps plus bounded read and write sets.
// It is exclusively owned by the goroutine that created it until
// registered; once registered, only that same goroutine mutates it —
// other goroutines only ever read it during validation.
type txnRecord struct {
	startTs    uint64
	validateTs uint64
	finishTs   uint64

	readSet  []string
	writeSet []rwEntry

	cmp   types.Comparator
	merge types.MergeFunc
}

// pushRead appends key to the read set. Duplicates are permitted.
func (r *txnRecord) pushRead(key string) error {
	if len(r.readSet) >= RWMax {
		return ErrCapacityExceeded
	}
	r.readSet = append(r.readSet, key)
	return nil
}

// pushWrite applies the write-set merge rule: a second write to a key
// already in the set collapses into it rather than appending a second
// entry, per the Insert/Update/Delete combination table.
func (r *txnRecord) pushWrite(key string, tag types.MessageTag, payload []byte) error {
	for i := range r.writeSet {
		if r.cmp(r.writeSet[i].key, key) == 0 {
			r.mergeWrite(i, tag, payload)
			return nil
		}
	}
	if len(r.writeSet) >= RWMax {
		return ErrCapacityExceeded
	}
	r.writeSet = append(r.writeSet, rwEntry{key: key, tag: tag, payload: payload})
	return nil
}

// mergeWrite folds a new op for an already-tracked key into its
// existing write-set entry at index i.
func (r *txnRecord) mergeWrite(i int, tag types.MessageTag, payload []byte) {
	existing := r.writeSet[i]

	switch tag {
	case types.TagInsert:
		// Insert always overwrites whatever was there.
		r.writeSet[i] = rwEntry{key: existing.key, tag: types.TagInsert, payload: payload}
	case types.TagDelete:
		// Delete always overwrites whatever was there.
		r.writeSet[i] = rwEntry{key: existing.key, tag: types.TagDelete}
	case types.TagUpdate:
		switch existing.tag {
		case types.TagInsert:
			merged, _ := r.merge(existing.payload, payload)
			r.writeSet[i] = rwEntry{key: existing.key, tag: types.TagInsert, payload: merged}
		case types.TagUpdate:
			merged, mtag := r.merge(existing.payload, payload)
			r.writeSet[i] = rwEntry{key: existing.key, tag: mtag, payload: merged}
		case types.TagDelete:
			merged, mtag := r.merge(nil, payload)
			r.writeSet[i] = rwEntry{key: existing.key, tag: mtag, payload: merged}
		}
	}
}
