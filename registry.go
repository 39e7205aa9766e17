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

import "sync"

// registry is the shared set of currently-tracked transaction records:
// active ones and committed-but-not-yet-garbage-collected ones.
// Identity is by pointer, never by timestamp.
type registry struct {
	mu      sync.Mutex
	records map[*txnRecord]struct{}
}

func newRegistry() *registry {
	return &registry{records: make(map[*txnRecord]struct{})}
}

func (r *registry) insert(rec *txnRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec] = struct{}{}
}

func (r *registry) delete(rec *txnRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, rec)
}

// iter holds the registry mutex for the duration of the scan. visitor
// must not call insert or delete on this registry; doing so deadlocks.
func (r *registry) iter(visitor func(*txnRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for rec := range r.records {
		visitor(rec)
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
