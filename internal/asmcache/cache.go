// Package asmcache stores assembled binaries on disk, keyed by a hash of
// everything that influences the output.
package asmcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"asmbridge/internal/diag"
	"asmbridge/internal/source"
)

// Current schema version, increment when Entry changes.
const schemaVersion uint16 = 1

// Key identifies one cached build.
type Key [32]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// KeyInput lists what the output of an assembly depends on.
type KeyInput struct {
	ISA              [32]byte // ISA fingerprint
	MaxSize          uint64
	WarnUnusedLabels bool
	Source           []byte
}

// KeyFor hashes in with the schema version.
func KeyFor(in KeyInput) Key {
	h := sha256.New()
	var hdr [2 + 32 + 8 + 1]byte
	binary.LittleEndian.PutUint16(hdr[0:], schemaVersion)
	copy(hdr[2:], in.ISA[:])
	binary.LittleEndian.PutUint64(hdr[34:], in.MaxSize)
	if in.WarnUnusedLabels {
		hdr[42] = 1
	}
	h.Write(hdr[:])
	h.Write(in.Source)
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Entry is one successful build. Builds with errors are never cached.
type Entry struct {
	Schema      uint16
	ISA         string
	Output      []byte
	Diagnostics []Diag // warnings, replayed on a hit
	CreatedAt   int64  // unix seconds
}

type Diag struct {
	Severity uint8
	Code     uint16
	Message  string
	Start    uint32
	End      uint32
	Notes    []Note
}

type Note struct {
	Start uint32
	End   uint32
	Msg   string
}

// NewEntry captures output and the diagnostics of a successful build.
func NewEntry(isa string, output []byte, bag *diag.Bag) *Entry {
	e := &Entry{
		Schema:    schemaVersion,
		ISA:       isa,
		Output:    output,
		CreatedAt: time.Now().Unix(),
	}
	for _, d := range bag.Items() {
		cd := Diag{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, Note{Start: n.Span.Start, End: n.Span.End, Msg: n.Msg})
		}
		e.Diagnostics = append(e.Diagnostics, cd)
	}
	return e
}

// Bag rebuilds the diagnostics against file.
func (e *Entry) Bag(file source.FileID, max int) *diag.Bag {
	bag := diag.NewBag(max)
	for _, cd := range e.Diagnostics {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code),
			source.Span{File: file, Start: cd.Start, End: cd.End}, cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(source.Span{File: file, Start: n.Start, End: n.End}, n.Msg)
		}
		bag.Add(d)
	}
	return bag
}

// Cache is a directory of msgpack files. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open creates dir if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Key) string {
	s := key.String()
	// подкаталог по первому байту, чтобы не держать всё в одной папке
	return filepath.Join(c.dir, "bin", s[:2], s+".mp")
}

// Put writes e atomically. A nil cache ignores the call.
func (c *Cache) Put(key Key, e *Entry) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(e); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	// атомарная замена
	return os.Rename(f.Name(), p)
}

// Get loads the entry for key. Entries from another schema are misses.
func (c *Cache) Get(key Key) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	if e.Schema != schemaVersion {
		return nil, false, nil
	}
	return &e, true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
