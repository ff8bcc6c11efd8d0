package persist

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	m := NewMemory()

	if _, ok := m.Get("missing"); ok {
		t.Error("empty store should miss")
	}
	if err := m.Set("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if v, ok := m.Get("k"); !ok || v != "v1" {
		t.Errorf("got %q/%v", v, ok)
	}
	if err := m.Set("k", "v2"); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Get("k"); v != "v2" {
		t.Errorf("set should overwrite, got %q", v)
	}
	if err := m.Remove("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Get("k"); ok {
		t.Error("removed key should miss")
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "state.json")

	f, err := NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Set("position", `{"chapter":3}`); err != nil {
		t.Fatal(err)
	}

	// A second instance over the same path sees the written data.
	f2, err := NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := f2.Get("position")
	if !ok || v != `{"chapter":3}` {
		t.Errorf("reload got %q/%v", v, ok)
	}

	if err := f2.Remove("position"); err != nil {
		t.Fatal(err)
	}
	f3, err := NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f3.Get("position"); ok {
		t.Error("removed key should not survive reload")
	}
}

func TestFileStore_CorruptFileDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("corrupt state must not fail construction: %v", err)
	}
	if _, ok := f.Get("anything"); ok {
		t.Error("corrupt file should load as empty")
	}
	if err := f.Set("k", "v"); err != nil {
		t.Errorf("store should work after discarding corrupt data: %v", err)
	}
}

func testSaver(delay time.Duration) (*Saver, *Memory) {
	store := NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSaver(store, "state", delay, log), store
}

func TestSaver_DebouncesToLatestValue(t *testing.T) {
	s, store := testSaver(30 * time.Millisecond)

	s.Save("first")
	s.Save("second")
	s.Save("third")

	if _, ok := store.Get("state"); ok {
		t.Fatal("nothing should be written before the delay")
	}

	time.Sleep(80 * time.Millisecond)
	v, ok := store.Get("state")
	if !ok {
		t.Fatal("debounced write never fired")
	}
	if v != "third" {
		t.Errorf("only the latest value should be written, got %q", v)
	}
}

func TestSaver_FlushWritesImmediately(t *testing.T) {
	s, store := testSaver(time.Hour)

	s.Save("pending")
	s.Flush()

	v, ok := store.Get("state")
	if !ok || v != "pending" {
		t.Errorf("flush should write the pending value, got %q/%v", v, ok)
	}

	// A second flush with nothing pending writes nothing new.
	store.Remove("state")
	s.Flush()
	if _, ok := store.Get("state"); ok {
		t.Error("flush without pending data should be a no-op")
	}
}

func TestSaver_ClearDropsPendingWrite(t *testing.T) {
	s, store := testSaver(20 * time.Millisecond)

	store.Set("state", "old")
	s.Save("new")
	s.Clear()

	if _, ok := store.Get("state"); ok {
		t.Error("clear should remove the stored value")
	}
	time.Sleep(50 * time.Millisecond)
	if _, ok := store.Get("state"); ok {
		t.Error("the pending debounced write must not resurrect cleared state")
	}
}

func TestSaver_Load(t *testing.T) {
	s, store := testSaver(time.Second)

	if _, ok := s.Load(); ok {
		t.Error("load from empty store should miss")
	}
	store.Set("state", "stored")
	if v, ok := s.Load(); !ok || v != "stored" {
		t.Errorf("load got %q/%v", v, ok)
	}
}
