// Package cache implements the two-file, content-addressed snapshot store:
// a fast binary snapshot for the common case and a durable JSON fallback
// that never goes stale. Both are keyed by a 64-bit hash of the library
// root path and live under one directory, written atomically via a
// temp-file-then-rename so a reader never observes a half-written file.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/vibemanga/vibemanga/diagnostics"
	"github.com/vibemanga/vibemanga/logger"
	"github.com/vibemanga/vibemanga/mangadata"
)

const (
	magic         = "VMCB"
	formatVersion = uint16(1)
)

// Key returns the 64-bit hash that names a root path's cache files.
func Key(rootPath string) uint64 {
	clean := filepath.Clean(rootPath)
	return xxhash.Sum64String(clean)
}

// Store wraps a filesystem and a directory holding the fast/durable file
// pair for every library root the caller has scanned.
type Store struct {
	fs     afero.Fs
	dir    string
	maxAge time.Duration
	log    *logger.Logger
}

// New builds a Store. maxAge defaults to 3000s when zero, matching spec's
// cache TTL default.
func New(fs afero.Fs, dir string, maxAge time.Duration, log *logger.Logger) *Store {
	if maxAge <= 0 {
		maxAge = 3000 * time.Second
	}
	if log == nil {
		log = logger.New()
	}
	return &Store{fs: fs, dir: dir, maxAge: maxAge, log: log}
}

func (s *Store) fastPath(key uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("fast_%d.bin", key))
}

func (s *Store) durablePath(key uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("durable_%d.json", key))
}

// frame is the on-disk shape of the fast snapshot, gob-encoded after a
// fixed binary header.
type frame struct {
	RootPath  string
	WrittenAt int64
	Library   *mangadata.Library
}

// Snapshot is what Read hands back: the recovered Library plus enough
// metadata for the caller to decide whether to trust it without
// re-validating every volume.
type Snapshot struct {
	Library   *mangadata.Library
	WrittenAt time.Time
	// Fresh reports whether WrittenAt is within the configured MaxAge of
	// now — the caller may skip (size, mtime) re-validation when true.
	Fresh bool
	// FromFast is false when the binary snapshot was missing or corrupt
	// and the durable JSON fallback was used instead.
	FromFast bool
}

// Read loads a cached Library for rootPath, preferring the fast binary
// snapshot and falling back to the durable JSON on any failure: missing
// file, version mismatch, corruption, or a root-path mismatch inside the
// frame. A complete miss returns ok=false with no diagnostic — a cold
// cache is not an error.
func (s *Store) Read(rootPath string) (snap Snapshot, diags diagnostics.Diagnostics, ok bool) {
	key := Key(rootPath)
	clean := filepath.Clean(rootPath)

	if f, err := s.readFast(key, clean); err == nil {
		age := time.Since(time.UnixMilli(f.WrittenAt))
		return Snapshot{
			Library:   f.Library,
			WrittenAt: time.UnixMilli(f.WrittenAt),
			Fresh:     age <= s.maxAge,
			FromFast:  true,
		}, diags, true
	} else if !errors.Is(err, afero.ErrFileNotFound) {
		diags.Add(diagnostics.KindCacheRead, rootPath, err)
		s.log.Debug("cache: fast snapshot unusable for %s: %v", rootPath, err)
	}

	lib, writtenAt, err := s.readDurable(key, clean)
	if err != nil {
		if !isNotExist(err) {
			diags.Add(diagnostics.KindCacheRead, rootPath, err)
		}
		return Snapshot{}, diags, false
	}
	return Snapshot{Library: lib, WrittenAt: writtenAt, Fresh: false, FromFast: false}, diags, true
}

func (s *Store) readFast(key uint64, rootPath string) (frame, error) {
	raw, err := afero.ReadFile(s.fs, s.fastPath(key))
	if err != nil {
		return frame{}, err
	}
	if len(raw) < 4+2+8+8+8 {
		return frame{}, errors.New("cache: fast snapshot truncated header")
	}
	if string(raw[0:4]) != magic {
		return frame{}, errors.New("cache: fast snapshot bad magic")
	}
	version := binary.BigEndian.Uint16(raw[4:6])
	if version != formatVersion {
		return frame{}, errors.Errorf("cache: fast snapshot version %d unsupported", version)
	}
	rootHash := binary.BigEndian.Uint64(raw[6:14])
	if rootHash != Key(rootPath) {
		return frame{}, errors.New("cache: fast snapshot root-path mismatch")
	}
	writtenAt := int64(binary.BigEndian.Uint64(raw[14:22]))
	payloadLen := binary.BigEndian.Uint64(raw[22:30])
	payload := raw[30:]
	if uint64(len(payload)) != payloadLen {
		return frame{}, errors.New("cache: fast snapshot payload length mismatch")
	}

	var lib mangadata.Library
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&lib); err != nil {
		return frame{}, errors.Wrap(err, "cache: fast snapshot payload corrupt")
	}
	if lib.Root != rootPath {
		return frame{}, errors.New("cache: fast snapshot library root mismatch")
	}
	return frame{RootPath: rootPath, WrittenAt: writtenAt, Library: &lib}, nil
}

func (s *Store) readDurable(key uint64, rootPath string) (*mangadata.Library, time.Time, error) {
	raw, err := afero.ReadFile(s.fs, s.durablePath(key))
	if err != nil {
		return nil, time.Time{}, err
	}
	var lib mangadata.Library
	if err := json.Unmarshal(raw, &lib); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "cache: durable snapshot corrupt")
	}
	if lib.Root != rootPath {
		return nil, time.Time{}, errors.New("cache: durable snapshot library root mismatch")
	}
	info, statErr := s.fs.Stat(s.durablePath(key))
	writtenAt := time.Now()
	if statErr == nil {
		writtenAt = info.ModTime()
	}
	return &lib, writtenAt, nil
}

// Write rewrites both the fast and durable snapshots for lib.Root
// atomically. The fast snapshot is best-effort: a gob-encoding failure is
// recorded as a CacheWrite diagnostic but does not prevent the durable
// JSON write from proceeding.
func (s *Store) Write(lib *mangadata.Library) diagnostics.Diagnostics {
	var diags diagnostics.Diagnostics
	key := Key(lib.Root)

	if err := s.writeFast(key, lib); err != nil {
		diags.Add(diagnostics.KindCacheWrite, lib.Root, err)
		s.log.Debug("cache: fast snapshot write failed for %s: %v", lib.Root, err)
	}
	if err := s.writeDurable(key, lib); err != nil {
		diags.Add(diagnostics.KindCacheWrite, lib.Root, err)
	}
	return diags
}

func (s *Store) writeFast(key uint64, lib *mangadata.Library) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(lib); err != nil {
		return errors.Wrap(err, "cache: encode fast snapshot")
	}

	var buf bytes.Buffer
	buf.WriteString(magic)
	writeUint16(&buf, formatVersion)
	writeUint64(&buf, Key(lib.Root))
	writeUint64(&buf, uint64(time.Now().UnixMilli()))
	writeUint64(&buf, uint64(payload.Len()))
	buf.Write(payload.Bytes())

	return s.atomicWrite(s.fastPath(key), buf.Bytes())
}

func (s *Store) writeDurable(key uint64, lib *mangadata.Library) error {
	encoded, err := json.MarshalIndent(lib, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cache: encode durable snapshot")
	}
	return s.atomicWrite(s.durablePath(key), encoded)
}

// atomicWrite writes data to a temp file in dir, then renames it over
// path, so a concurrent reader never observes a partial write.
func (s *Store) atomicWrite(path string, data []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "cache: create cache dir")
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "cache: write temp file")
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "cache: rename temp file")
	}
	return nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func isNotExist(err error) bool {
	return errors.Is(err, afero.ErrFileNotFound)
}
