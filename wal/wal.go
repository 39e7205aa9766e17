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

// Package wal is the write-ahead log backing each memtable. Entries
// are appended in the order they are written and replayed in the same
// order on recovery.
package wal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/B1NARY-GR0UP/occkv/types"
)

var ErrCorrupt = errors.New("wal: corrupt record")

// monotonic fallback counter so two WALs created within the same
// nanosecond still get distinct, ordered versions.
var seq atomic.Uint64

type WAL struct {
	fd      *os.File
	path    string
	version uint64
}

// Create opens a brand-new wal file in dir. Its version is strictly
// greater than any wal previously created in this process.
func Create(dir string) (*WAL, error) {
	version := uint64(time.Now().UnixNano())
	for {
		prev := seq.Load()
		if version <= prev {
			version = prev + 1
		}
		if seq.CompareAndSwap(prev, version) {
			break
		}
	}
	p := path.Join(dir, fileName(version))

	fd, err := os.OpenFile(p, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &WAL{fd: fd, path: p, version: version}, nil
}

// Open reopens an existing wal file, e.g. found during recovery.
func Open(p string) (*WAL, error) {
	fd, err := os.OpenFile(p, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &WAL{fd: fd, path: p, version: ParseVersion(path.Base(p))}, nil
}

func (w *WAL) Version() uint64 {
	return w.version
}

// Write appends entries to the log and fsyncs before returning, so a
// successful Write is durable.
func (w *WAL) Write(entries ...types.Entry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		if err := writeRecord(&buf, e); err != nil {
			return err
		}
	}
	if _, err := w.fd.Write(buf.Bytes()); err != nil {
		return err
	}
	return w.fd.Sync()
}

// Read replays every record in the log from the start.
func (w *WAL) Read() ([]types.Entry, error) {
	if _, err := w.fd.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var entries []types.Entry
	r := io.Reader(w.fd)
	for {
		entry, err := readRecord(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (w *WAL) Close() error {
	return w.fd.Close()
}

// Delete closes and removes the log file. Called once its entries
// have been durably flushed to an sstable.
func (w *WAL) Delete() error {
	if err := w.fd.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return os.Remove(w.path)
}

// Reset closes this wal, if still open, and creates a fresh, empty one
// in the same directory, for the memtable that replaces a frozen one.
// The old log file stays on disk until Delete removes it.
func (w *WAL) Reset() (*WAL, error) {
	dir := path.Dir(w.path)
	if err := w.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return nil, err
	}
	return Create(dir)
}

func fileName(version uint64) string {
	return fmt.Sprintf("%020d.log", version)
}

// ParseVersion extracts the version embedded in a wal file name.
// Unparsable names sort as version 0.
func ParseVersion(name string) uint64 {
	name = strings.TrimSuffix(path.Base(name), ".log")
	v, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// CompareVersion orders two wal versions: negative if a < b, zero if
// equal, positive if a > b.
func CompareVersion(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func writeRecord(buf *bytes.Buffer, e types.Entry) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(e.Key))); err != nil {
		return err
	}
	if _, err := buf.WriteString(e.Key); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(e.Value))); err != nil {
		return err
	}
	if _, err := buf.Write(e.Value); err != nil {
		return err
	}
	tombstone := uint8(0)
	if e.Tombstone {
		tombstone = 1
	}
	return binary.Write(buf, binary.LittleEndian, tombstone)
}

func readRecord(r io.Reader) (types.Entry, error) {
	var keyLen uint32
	if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
		return types.Entry{}, err
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return types.Entry{}, ErrCorrupt
	}

	var valueLen uint32
	if err := binary.Read(r, binary.LittleEndian, &valueLen); err != nil {
		return types.Entry{}, ErrCorrupt
	}
	value := make([]byte, valueLen)
	if _, err := io.ReadFull(r, value); err != nil {
		return types.Entry{}, ErrCorrupt
	}

	var tombstone uint8
	if err := binary.Read(r, binary.LittleEndian, &tombstone); err != nil {
		return types.Entry{}, ErrCorrupt
	}

	return types.Entry{
		Key:       string(key),
		Value:     value,
		Tombstone: tombstone == 1,
	}, nil
}
