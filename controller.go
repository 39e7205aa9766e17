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

// validate implements backward-validation OCC (Kung-Robinson): for
// every other *committed* record currently in the registry, decide
// whether it could have raced with rec and, if so, check both
// hazards. Active records (finish_ts == 0) are never checked against —
// only a committed record's write set is validated, matching
// original_source/src/transaction_util.c, whose validated table holds
// committed records only. The first conflict found short-circuits the
// hazard checks but the scan itself still runs to completion, since
// registry.iter has no early-exit.
func (db *DB) validate(rec *txnRecord) bool {
	conflict := false

	db.reg.iter(func(other *txnRecord) {
		if conflict || other == rec {
			return
		}

		finish := other.finishTs
		if finish == 0 {
			// other has not committed yet; nothing to validate against.
			return
		}
		if rec.startTs >= finish {
			// other serialized strictly before rec; no hazard possible.
			return
		}

		// other committed strictly after rec started: check both hazards.

		for _, k := range rec.readSet {
			for _, w := range other.writeSet {
				if rec.cmp(k, w.key) != 0 {
					continue
				}
				conflict = true
				return
			}
		}
		if conflict {
			return
		}

		for _, w := range rec.writeSet {
			for _, ow := range other.writeSet {
				if rec.cmp(w.key, ow.key) != 0 {
					continue
				}
				conflict = true
				return
			}
		}
	})

	return conflict
}

// apply dispatches every write-set entry to the KVS in insertion
// order. Update has no standalone KVS counterpart: its delta is
// folded against whatever value is currently stored (nil if none) via
// the configured merge function before the result is written, so a
// standalone Update on a pre-existing key merges rather than
// overwriting it. A failure here after a successful validate is a
// fatal invariant violation; the storage engine already enforces that
// by panicking on unexpected I/O failure, so there is nothing further
// to check on the way out.
func (db *DB) apply(rec *txnRecord) {
	for _, w := range rec.writeSet {
		switch w.tag {
		case types.TagInsert:
			db.Set(w.key, w.payload)
		case types.TagUpdate:
			old, _ := db.Get(w.key)
			merged, tag := db.config.Data.Merge(old, w.payload)
			if tag == types.TagDelete {
				db.Delete(w.key)
			} else {
				db.Set(w.key, merged)
			}
		case types.TagDelete:
			db.Delete(w.key)
		}
	}
}

// gc removes and destroys every committed record whose finish_ts falls
// below bound: no active transaction can ever validate against it
// again. bound is the caller's earliest_active_start, derived from the
// low watermark over in-flight start_ts values.
func (db *DB) gc(bound uint64) {
	var stale []*txnRecord
	db.reg.iter(func(other *txnRecord) {
		if other.finishTs != 0 && other.finishTs < bound {
			stale = append(stale, other)
		}
	})
	for _, rec := range stale {
		db.reg.delete(rec)
	}
}
