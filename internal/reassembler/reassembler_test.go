package reassembler

import (
	"bytes"
	"testing"

	"madp/internal/workload"
)

type memSink struct {
	written map[workload.FileKey][]byte
}

func newMemSink() *memSink {
	return &memSink{written: make(map[workload.FileKey][]byte)}
}

func (s *memSink) WriteFile(key workload.FileKey, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.written[key] = cp
	return nil
}

func TestSingleChunkFileCompletesImmediately(t *testing.T) {
	sink := newMemSink()
	r := New(sink)
	key := workload.FileKey{SizeClass: false, FileID: 1}

	if err := r.AddChunk(key, 0, []byte("whole file"), true); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	got, ok := sink.written[key]
	if !ok {
		t.Fatal("expected single-chunk file to be written immediately")
	}
	if string(got) != "whole file" {
		t.Errorf("expected %q, got %q", "whole file", got)
	}
	if r.Pending() != 0 {
		t.Errorf("expected no pending files, got %d", r.Pending())
	}
}

func TestMultiChunkFileRequiresAllIndices(t *testing.T) {
	sink := newMemSink()
	r := New(sink)
	key := workload.FileKey{SizeClass: false, FileID: 2}

	// Deliver chunk 2 (last_of_file) and chunk 1 out of order, but never
	// chunk 0 — the zero-indexed first chunk of a multi-chunk file.
	if err := r.AddChunk(key, 2, []byte("C"), true); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	if err := r.AddChunk(key, 1, []byte("B"), false); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	if _, ok := sink.written[key]; ok {
		t.Fatal("file should not be complete without chunk 0")
	}
	if r.Pending() != 1 {
		t.Errorf("expected 1 pending file, got %d", r.Pending())
	}

	if err := r.AddChunk(key, 0, []byte("A"), false); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	got, ok := sink.written[key]
	if !ok {
		t.Fatal("expected file to complete once chunk 0 arrived")
	}
	if !bytes.Equal(got, []byte("ABC")) {
		t.Errorf("expected assembled payload %q, got %q", "ABC", got)
	}
	if r.Pending() != 0 {
		t.Errorf("expected no pending files after completion, got %d", r.Pending())
	}
}

func TestIndependentFilesDoNotInterfere(t *testing.T) {
	sink := newMemSink()
	r := New(sink)
	keyA := workload.FileKey{SizeClass: false, FileID: 1}
	keyB := workload.FileKey{SizeClass: true, FileID: 1}

	if err := r.AddChunk(keyA, 0, []byte("A"), true); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}
	if err := r.AddChunk(keyB, 0, []byte("B"), false); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	if got := sink.written[keyA]; string(got) != "A" {
		t.Errorf("file A: expected %q, got %q", "A", got)
	}
	if _, ok := sink.written[keyB]; ok {
		t.Error("file B should still be pending (no last_of_file seen)")
	}
	if r.Pending() != 1 {
		t.Errorf("expected 1 pending file, got %d", r.Pending())
	}
}
