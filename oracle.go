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

import "sync/atomic"

// oracle is a monotonically increasing ticket counter. It is a field
// of the DB handle, not file-scope state: a fresh handle starts its
// oracle at zero and never shares tickets with any other handle.
type oracle struct {
	counter uint64
}

func newOracle() *oracle {
	return &oracle{}
}

// next returns a fresh ticket strictly greater than every ticket
// returned so far, including by concurrent callers. Zero is reserved
// and is never returned by next.
func (o *oracle) next() uint64 {
	return atomic.AddUint64(&o.counter, 1)
}

// current returns the last ticket issued by next, without consuming
// one. Used at the start of a transaction so its start_ts orders
// strictly before any ticket a subsequent next() hands out, without
// forcing every transaction to consume a distinct start_ts.
func (o *oracle) current() uint64 {
	return atomic.LoadUint64(&o.counter)
}
