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

package occkv

import (
	"fmt"
	"testing"

	"github.com/B1NARY-GR0UP/occkv/pkg/logger"
	"github.com/B1NARY-GR0UP/occkv/types"
	"github.com/stretchr/testify/assert"
)

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	lm := &levelManager{
		dir:           dir,
		l0TargetNum:   4,
		ratio:         10,
		dataBlockSize: 4096,
		logger:        logger.GetLogger(),
	}

	kvs := []types.Entry{
		{Key: "key1", Value: []byte("value1")},
		{Key: "key2", Value: []byte("value2")},
		{Key: "key3", Value: []byte("value3")},
		{Key: "key4", Value: []byte("value4")},
		{Key: "key5", Value: []byte("value5"), Tombstone: true},
		{Key: "key6", Value: []byte("value6")},
	}

	err := lm.flushToL0(kvs)
	assert.NoError(t, err)

	entry, found := lm.search("key1")
	assert.True(t, found)
	assert.Equal(t, "key1", entry.Key)
	assert.Equal(t, []byte("value1"), entry.Value)

	entry, found = lm.search("key5")
	assert.True(t, found)
	assert.Equal(t, "key5", entry.Key)
	assert.Equal(t, []byte("value5"), entry.Value)
	assert.True(t, entry.Tombstone)

	entry, found = lm.search("key7")
	assert.Equal(t, types.Entry{}, entry)
	assert.False(t, found)
}

func TestManagerScan(t *testing.T) {
	dir := t.TempDir()
	lm := &levelManager{
		dir:           dir,
		l0TargetNum:   4,
		ratio:         10,
		dataBlockSize: 4096,
		logger:        logger.GetLogger(),
	}

	kvs := []types.Entry{
		{Key: "key1", Value: []byte("value1")},
		{Key: "key2", Value: []byte("value2")},
		{Key: "key3", Value: []byte("value3")},
		{Key: "key4", Value: []byte("value4")},
		{Key: "key5", Value: []byte("value5")},
		{Key: "key6", Value: []byte("value6")},
	}

	err := lm.flushToL0(kvs)
	assert.NoError(t, err)

	// Perform scan
	entries := lm.scan("key2", "key5")
	expectedEntries := []types.Entry{
		{Key: "key2", Value: []byte("value2")},
		{Key: "key3", Value: []byte("value3")},
		{Key: "key4", Value: []byte("value4")},
	}

	assert.Equal(t, expectedEntries, entries)

	// Test scan with no results
	entries = lm.scan("key7", "key8")
	assert.Empty(t, entries)
}

func TestCompact(t *testing.T) {
	dir := t.TempDir()
	lm := newLevelManager(dir, 1, 2, 500)

	for i := 100; i <= 200; i++ {
		kvs := []types.Entry{{
			Key:   fmt.Sprintf("key%d", i),
			Value: []byte(fmt.Sprintf("value%d", i)),
		}}
		assert.NoError(t, lm.flushToL0(kvs))
	}
	lm.checkAndCompact()

	for i := 100; i <= 200; i++ {
		entry, found := lm.search(fmt.Sprintf("key%d", i))
		assert.True(t, found)
		assert.Equal(t, fmt.Sprintf("key%d", i), entry.Key)
		assert.Equal(t, []byte(fmt.Sprintf("value%d", i)), entry.Value)
	}
}

func TestCompactDropsTombstonesAtBottomLevel(t *testing.T) {
	dir := t.TempDir()
	lm := newLevelManager(dir, 1, 2, 4096)

	assert.NoError(t, lm.flushToL0([]types.Entry{
		{Key: "key1", Value: []byte("value1")},
		{Key: "key2", Value: []byte("value2")},
	}))
	assert.NoError(t, lm.flushToL0([]types.Entry{
		{Key: "key1", Tombstone: true},
	}))

	lm.checkAndCompact()

	_, found := lm.search("key1")
	assert.False(t, found)

	entry, found := lm.search("key2")
	assert.True(t, found)
	assert.Equal(t, []byte("value2"), entry.Value)
}
