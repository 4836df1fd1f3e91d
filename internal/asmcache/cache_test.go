package asmcache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"asmbridge/internal/diag"
	"asmbridge/internal/source"
)

func TestKeyFor(t *testing.T) {
	base := KeyInput{Source: []byte("nop")}
	k := KeyFor(base)
	if k != KeyFor(base) {
		t.Fatal("key must be deterministic")
	}

	variants := []KeyInput{
		{Source: []byte("halt")},
		{Source: []byte("nop"), MaxSize: 4},
		{Source: []byte("nop"), WarnUnusedLabels: true},
		{Source: []byte("nop"), ISA: [32]byte{1}},
	}
	for i, v := range variants {
		if KeyFor(v) == k {
			t.Errorf("variant %d collides with the base key", i)
		}
	}
}

func TestPutGet(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := KeyFor(KeyInput{Source: []byte("x: nop")})

	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	bag := diag.NewBag(0)
	bag.Add(diag.New(diag.SevWarning, diag.SemaUnusedLabel, source.Span{Start: 0, End: 1}, "label 'x' is never used").
		WithNote(source.Span{Start: 0, End: 2}, "here"))
	if err := c.Put(key, NewEntry("tiny8", []byte{0x00}, bag)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	e, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(e.Output, []byte{0x00}) || e.ISA != "tiny8" {
		t.Errorf("entry = %+v", e)
	}

	got := e.Bag(3, 0).Items()
	if len(got) != 1 || got[0].Code != diag.SemaUnusedLabel || got[0].Primary.File != 3 || len(got[0].Notes) != 1 {
		t.Errorf("replayed diagnostics = %+v", got)
	}
}

func TestSchemaMismatchIsMiss(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := KeyFor(KeyInput{Source: []byte("nop")})
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := msgpack.Marshal(&Entry{Schema: schemaVersion + 1, Output: []byte{1}})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(key); ok || err != nil {
		t.Errorf("old schema: ok=%v err=%v", ok, err)
	}

	if err := os.WriteFile(p, []byte{0xc1}, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Get(key); err == nil {
		t.Error("corrupt entry must be an error")
	}
}

func TestDropAll(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	key := KeyFor(KeyInput{Source: []byte("nop")})
	if err := c.Put(key, NewEntry("tiny8", []byte{0}, nil)); err != nil {
		t.Fatal(err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, _ := c.Get(key); ok {
		t.Error("entry survived DropAll")
	}
	if err := c.Put(key, NewEntry("tiny8", []byte{0}, nil)); err != nil {
		t.Errorf("cache must stay usable after DropAll: %v", err)
	}
}

func TestNilCache(t *testing.T) {
	var c *Cache
	if err := c.Put(Key{}, &Entry{}); err != nil {
		t.Error(err)
	}
	if _, ok, err := c.Get(Key{}); ok || err != nil {
		t.Error("nil cache must miss")
	}
}
