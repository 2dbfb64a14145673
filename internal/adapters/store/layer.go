// Package store implements the disk-backed layered key/value store behind the
// replay cache.
package store

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/zerr"
)

// layer is one append-only segment file. The full index is rebuilt on open by
// scanning the file; values are held compressed in memory and decompressed on
// read.
//
// Record layout, little-endian:
//
//	[keyLen:4][valLen:4][checksum:8][key:keyLen][snappy(value):valLen]
//
// checksum is xxhash64 over key and compressed value, verified on every read
// so a torn or bit-rotted record surfaces as domain.ErrCorruptEntry instead of
// silently replaying garbage.
type layer struct {
	path     string
	file     *os.File
	entries  map[string][]byte
	order    []string
	writable bool
}

const recordHeaderSize = 4 + 4 + 8

// openLayer reads an existing segment, or creates an empty one when create is
// set. Writable layers keep an open append handle.
func openLayer(path string, writable, create bool) (*layer, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR | os.O_APPEND
	}
	if create {
		flags |= os.O_CREATE
	}

	//nolint:gosec // Paths come from the store's own directory layout.
	file, err := os.OpenFile(path, flags, domain.FilePerm)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrStoreOpenFailed, err), "path", path)
	}

	l := &layer{
		path:     path,
		file:     file,
		entries:  make(map[string][]byte),
		writable: writable,
	}
	if err := l.scan(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return l, nil
}

func (l *layer) scan() error {
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return errors.Join(domain.ErrStoreReadFailed, err)
	}

	header := make([]byte, recordHeaderSize)
	for {
		if _, err := io.ReadFull(l.file, header); err != nil {
			if err == io.EOF {
				break
			}
			// A short header means the final record was torn mid-write.
			return zerr.With(errors.Join(domain.ErrCorruptEntry, err), "layer", l.path)
		}

		keyLen := binary.LittleEndian.Uint32(header[0:4])
		valLen := binary.LittleEndian.Uint32(header[4:8])
		sum := binary.LittleEndian.Uint64(header[8:16])

		buf := make([]byte, int(keyLen)+int(valLen))
		if _, err := io.ReadFull(l.file, buf); err != nil {
			return zerr.With(errors.Join(domain.ErrCorruptEntry, err), "layer", l.path)
		}

		if xxhash.Sum64(buf) != sum {
			return zerr.With(domain.ErrCorruptEntry, "layer", l.path)
		}

		key := string(buf[:keyLen])
		if _, seen := l.entries[key]; !seen {
			l.order = append(l.order, key)
		}
		l.entries[key] = buf[keyLen:]
	}

	if l.writable {
		if _, err := l.file.Seek(0, io.SeekEnd); err != nil {
			return errors.Join(domain.ErrStoreOpenFailed, err)
		}
	}
	return nil
}

// get returns the decompressed value for key.
func (l *layer) get(key string) ([]byte, bool, error) {
	compressed, ok := l.entries[key]
	if !ok {
		return nil, false, nil
	}
	value, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, false, zerr.With(errors.Join(domain.ErrCorruptEntry, err), "key", key)
	}
	return value, true, nil
}

func (l *layer) has(key string) bool {
	_, ok := l.entries[key]
	return ok
}

// append compresses value and durably appends the record. The in-memory index
// is updated only after the write succeeds.
func (l *layer) append(key string, value []byte) error {
	compressed := snappy.Encode(nil, value)

	record := make([]byte, recordHeaderSize, recordHeaderSize+len(key)+len(compressed))
	binary.LittleEndian.PutUint32(record[0:4], uint32(len(key)))
	binary.LittleEndian.PutUint32(record[4:8], uint32(len(compressed)))

	payload := make([]byte, 0, len(key)+len(compressed))
	payload = append(payload, key...)
	payload = append(payload, compressed...)
	binary.LittleEndian.PutUint64(record[8:16], xxhash.Sum64(payload))
	record = append(record, payload...)

	if _, err := l.file.Write(record); err != nil {
		return zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "layer", l.path)
	}

	if _, seen := l.entries[key]; !seen {
		l.order = append(l.order, key)
	}
	l.entries[key] = compressed
	return nil
}

func (l *layer) len() int {
	return len(l.entries)
}

func (l *layer) close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return errors.Join(domain.ErrStoreWriteFailed, err)
	}
	return nil
}

// sync flushes appended records to disk.
func (l *layer) sync() error {
	if l.file == nil || !l.writable {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return errors.Join(domain.ErrStoreWriteFailed, err)
	}
	return nil
}
