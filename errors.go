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

import "errors"

// Error taxonomy surfaced by the transactional layer. InvariantViolation
// is not returned: an apply failure after a successful validate is
// treated as fatal and panics, the same way the storage engine already
// panics on unexpected I/O failure.
var (
	// ErrConflict is returned by Commit when validation found an
	// overlapping, serialization-breaking transaction.
	ErrConflict = errors.New("occkv: transaction conflict")
	// ErrCapacityExceeded is returned by a mutating operation or Lookup
	// once a transaction's read set or write set would exceed RWMax.
	ErrCapacityExceeded = errors.New("occkv: read or write set exceeds RWMax")
	// ErrDiscardedTxn is returned by any operation on a transaction that
	// has already committed or aborted.
	ErrDiscardedTxn = errors.New("occkv: transaction has been discarded")
	// ErrEmptyKey is returned by a mutating operation called with an
	// empty key.
	ErrEmptyKey = errors.New("occkv: key is empty")
)
