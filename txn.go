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

// Txn is a transactional handle bound to exactly one transaction
// record. It is owned by a single goroutine for its whole lifetime and
// must not be shared across goroutines.
type Txn struct {
	db        *DB
	record    *txnRecord
	discarded bool
}

// Begin opens a new transaction against db, stamping a start timestamp
// and registering the record so concurrent committers can validate
// against it.
func (db *DB) Begin() *Txn {
	rec := &txnRecord{
		cmp:   db.config.Data.Compare,
		merge: db.config.Data.Merge,
	}
	rec.startTs = db.oracle.current()

	db.reg.insert(rec)
	db.active.Begin(rec.startTs)

	return &Txn{db: db, record: rec}
}

// Insert stages a new value for key. It does not read the KVS.
func (t *Txn) Insert(key string, value []byte) error {
	return t.pushWrite(key, types.TagInsert, value)
}

// Update stages a delta for key, to be folded into whatever the key
// holds at commit time via the configured merge function.
func (t *Txn) Update(key string, delta []byte) error {
	return t.pushWrite(key, types.TagUpdate, delta)
}

// Delete stages a deletion of key.
func (t *Txn) Delete(key string) error {
	return t.pushWrite(key, types.TagDelete, nil)
}

func (t *Txn) pushWrite(key string, tag types.MessageTag, payload []byte) error {
	if t.discarded {
		return ErrDiscardedTxn
	}
	if key == "" {
		return ErrEmptyKey
	}
	return t.record.pushWrite(key, tag, payload)
}

// Lookup resolves key, preferring this transaction's own uncommitted
// writes over whatever the KVS currently holds. A write-set hit or a
// KVS hit is recorded in the read set, so a later committer that
// invalidates it still conflicts with us — including when we are
// reading our own write. A key found in neither is not recorded.
func (t *Txn) Lookup(key string) ([]byte, bool, error) {
	if t.discarded {
		return nil, false, ErrDiscardedTxn
	}

	for _, w := range t.record.writeSet {
		if t.record.cmp(w.key, key) != 0 {
			continue
		}
		if err := t.record.pushRead(key); err != nil {
			return nil, false, err
		}
		if w.tag == types.TagDelete {
			return nil, false, nil
		}
		return w.payload, true, nil
	}

	value, found := t.db.Get(key)
	if found {
		if err := t.record.pushRead(key); err != nil {
			return nil, false, err
		}
	}
	return value, found, nil
}

// Commit validates the transaction's read and write sets against every
// other record in the registry and, if nothing conflicts, applies the
// write set to the KVS. Validation and apply run under a single
// commit-serialization lock so no other transaction can transition
// between "unfinished" and "finished with a write on key k" mid-scan.
func (t *Txn) Commit() error {
	if t.discarded {
		return ErrDiscardedTxn
	}
	defer t.discard()

	rec := t.record
	rec.validateTs = t.db.oracle.next()

	t.db.commitMu.Lock()
	defer t.db.commitMu.Unlock()

	if t.db.validate(rec) {
		t.db.reg.delete(rec)
		t.db.active.Done(rec.startTs)
		return ErrConflict
	}

	t.db.apply(rec)
	rec.finishTs = t.db.oracle.next()
	t.db.active.Done(rec.startTs)

	// Any record whose writes finished before the oldest transaction
	// still in flight can never again matter to a future validation.
	t.db.gc(t.db.active.DoneUntil() + 1)

	return nil
}

// Abort discards the transaction without applying anything.
func (t *Txn) Abort() error {
	if t.discarded {
		return ErrDiscardedTxn
	}
	t.db.reg.delete(t.record)
	t.db.active.Done(t.record.startTs)
	t.discard()
	return nil
}

func (t *Txn) discard() {
	t.discarded = true
}
