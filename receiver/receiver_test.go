package receiver

import (
	"sync"
	"testing"
	"time"

	"madp/internal/wire"
	"madp/internal/workload"
)

// fakeDataReceiver feeds pre-scripted data packets, then a zero-length read
// signaling the forward-channel termination handshake.
type fakeDataReceiver struct {
	pkts chan []byte
}

func newFakeDataReceiver() *fakeDataReceiver {
	return &fakeDataReceiver{pkts: make(chan []byte, 64)}
}

func (f *fakeDataReceiver) push(pkt []byte) { f.pkts <- pkt }

func (f *fakeDataReceiver) ReceiveData(buf []byte) (int, error) {
	pkt := <-f.pkts
	return copy(buf, pkt), nil
}

// fakeAckSender records every ACK (or termination datagram) sent.
type fakeAckSender struct {
	mu   sync.Mutex
	acks [][]byte
}

func (f *fakeAckSender) SendAck(pkt []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), pkt...)
	f.acks = append(f.acks, cp)
	return nil
}

func (f *fakeAckSender) snapshot() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.acks))
	copy(out, f.acks)
	return out
}

type memSink struct {
	mu      sync.Mutex
	written map[workload.FileKey][]byte
}

func newMemSink() *memSink {
	return &memSink{written: make(map[workload.FileKey][]byte)}
}

func (s *memSink) WriteFile(key workload.FileKey, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written[key] = append([]byte(nil), data...)
	return nil
}

func encodeChunk(seq uint16, total uint16, chunkNum uint16, payload []byte, last bool) []byte {
	return wire.EncodeData(payload, seq, 0, chunkNum, total, last, false, time.Now())
}

func TestReceiverInOrderDelivery(t *testing.T) {
	data := newFakeDataReceiver()
	ack := &fakeAckSender{}
	sink := newMemSink()
	r := New(data, ack, sink, nil)

	data.push(encodeChunk(0, 2, 0, []byte("A"), false))
	data.push(encodeChunk(1, 2, 1, []byte("B"), true))
	data.push(nil) // forward-channel termination

	r.Run()

	got := sink.written[workload.FileKey{}]
	if string(got) != "AB" {
		t.Errorf("expected assembled payload %q, got %q", "AB", got)
	}

	acks := ack.snapshot()
	if len(acks) < 2 {
		t.Fatalf("expected at least 2 acks, got %d", len(acks))
	}
	ackSeq, _, err := wire.DecodeAck(acks[len(acks)-2])
	if err != nil {
		t.Fatalf("DecodeAck: %v", err)
	}
	if ackSeq != 1 {
		t.Errorf("expected final data ack for seq 1, got %d", ackSeq)
	}
	if len(acks[len(acks)-1]) != 0 {
		t.Error("expected the final sent packet to be the zero-length termination ack")
	}
}

func TestReceiverBuffersOutOfOrderAndDrains(t *testing.T) {
	data := newFakeDataReceiver()
	ack := &fakeAckSender{}
	sink := newMemSink()
	r := New(data, ack, sink, nil)

	// seq 1 arrives before seq 0.
	data.push(encodeChunk(1, 2, 1, []byte("B"), true))
	data.push(encodeChunk(0, 2, 0, []byte("A"), false))
	data.push(nil)

	r.Run()

	got := sink.written[workload.FileKey{}]
	if string(got) != "AB" {
		t.Errorf("expected assembled payload %q, got %q", "AB", got)
	}
}

func TestReceiverDropsDuplicateOfDeliveredSeq(t *testing.T) {
	data := newFakeDataReceiver()
	ack := &fakeAckSender{}
	sink := newMemSink()
	r := New(data, ack, sink, nil)

	data.push(encodeChunk(0, 2, 0, []byte("A"), false))
	data.push(encodeChunk(0, 2, 0, []byte("A"), false)) // duplicate of an already-delivered seq
	data.push(encodeChunk(1, 2, 1, []byte("B"), true))
	data.push(nil)

	r.Run()

	got := sink.written[workload.FileKey{}]
	if string(got) != "AB" {
		t.Errorf("expected assembled payload %q despite the duplicate, got %q", "AB", got)
	}
}
