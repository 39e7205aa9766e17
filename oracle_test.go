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

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOracleNextStrictlyIncreasing(t *testing.T) {
	o := newOracle()

	assert.EqualValues(t, 0, o.current())

	prev := uint64(0)
	for i := 0; i < 100; i++ {
		ts := o.next()
		assert.Greater(t, ts, prev)
		prev = ts
	}
	assert.Equal(t, prev, o.current())
}

func TestOracleCurrentOrdersBeforeNext(t *testing.T) {
	o := newOracle()
	o.next()
	o.next()

	start := o.current()
	next := o.next()
	assert.Less(t, start, next)
}

func TestOracleConcurrentNextNeverRepeats(t *testing.T) {
	o := newOracle()

	const goroutines = 20
	const perGoroutine = 200

	seen := make(chan uint64, goroutines*perGoroutine)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seen <- o.next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]struct{}, goroutines*perGoroutine)
	for ts := range seen {
		_, dup := unique[ts]
		assert.False(t, dup, "ticket %d issued twice", ts)
		unique[ts] = struct{}{}
	}
	assert.Len(t, unique, goroutines*perGoroutine)
}

func TestOracleFreshHandleStartsAtZero(t *testing.T) {
	a := newOracle()
	a.next()
	a.next()

	b := newOracle()
	assert.EqualValues(t, 0, b.current())
}
