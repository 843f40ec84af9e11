package sender

import (
	"io"
	"sync"
	"testing"
	"time"

	"madp/internal/wire"
	"madp/internal/workload"
)

// fakeDataSender records every packet handed to SendData.
type fakeDataSender struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeDataSender) SendData(pkt []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(pkt))
	copy(cp, pkt)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeDataSender) snapshot() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeAckReceiver feeds pre-scripted ACK packets to the sender's ACK
// handler, then blocks until Close is called (mirroring a peer that has
// gone silent after the final ACK).
type fakeAckReceiver struct {
	acks   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeAckReceiver() *fakeAckReceiver {
	return &fakeAckReceiver{acks: make(chan []byte, 64), closed: make(chan struct{})}
}

func (f *fakeAckReceiver) push(pkt []byte) {
	f.acks <- pkt
}

func (f *fakeAckReceiver) ReceiveAck(buf []byte) (int, error) {
	select {
	case pkt := <-f.acks:
		return copy(buf, pkt), nil
	case <-f.closed:
		return 0, io.EOF
	}
}

func (f *fakeAckReceiver) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func chunkSeq(n int) workload.Sequence {
	seq := make(workload.Sequence, n)
	for i := range seq {
		last := i == n-1
		seq[i] = workload.Chunk{FileID: 0, ChunkNum: uint16(i), Payload: []byte{byte(i)}, LastOfFile: last}
	}
	return seq
}

func TestAdmittedRespectsCwndAndRwnd(t *testing.T) {
	cases := []struct {
		base, next uint16
		cwnd       float64
		rwnd       int
		want       bool
	}{
		{0, 0, 1, 100, true},
		{0, 1, 1, 100, false},
		{0, 1, 2, 100, true},
		{0, 5, 10, 5, false},
		{0, 4, 10, 5, true},
	}
	for _, c := range cases {
		got := admitted(c.base, c.next, c.cwnd, c.rwnd)
		if got != c.want {
			t.Errorf("admitted(%d,%d,%v,%d) = %v, want %v", c.base, c.next, c.cwnd, c.rwnd, got, c.want)
		}
	}
}

func TestSenderRunCompletesOnCumulativeAcks(t *testing.T) {
	seq := chunkSeq(4)
	dataConn := &fakeDataSender{}
	ackConn := newFakeAckReceiver()

	s := New(seq, Config{RWND: 100, RunID: "test"}, dataConn, ackConn, nil)

	done := make(chan time.Duration, 1)
	go func() { done <- s.Run() }()

	// Acknowledge every chunk cumulatively, one at a time, as a receiver
	// delivering in order would.
	for i := uint16(0); i < 4; i++ {
		waitForPacket(t, dataConn, int(i)+1)
		ackConn.push(wire.EncodeAck(i, time.Now()))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Sender.Run did not complete")
	}

	sent := dataConn.snapshot()
	if len(sent) < 4 {
		t.Fatalf("expected at least 4 packets sent, got %d", len(sent))
	}
}

func TestSenderTripleDuplicateAckTriggersFastRetransmit(t *testing.T) {
	seq := chunkSeq(4)
	dataConn := &fakeDataSender{}
	ackConn := newFakeAckReceiver()

	s := New(seq, Config{RWND: 100, RunID: "test"}, dataConn, ackConn, nil)

	done := make(chan time.Duration, 1)
	go func() { done <- s.Run() }()

	waitForPacket(t, dataConn, 1)

	// The first ACK for seq 0 is new (advances base to 1); three more
	// ACKs repeating seq 0, as if seq 1 were lost, are duplicates and
	// should trigger a retransmission of the unacked range before any
	// timeout fires.
	ackConn.push(wire.EncodeAck(0, time.Now()))
	waitForBase(t, s, 1)
	for i := 0; i < 3; i++ {
		ackConn.push(wire.EncodeAck(0, time.Now()))
	}

	waitForRetransmit(t, dataConn)

	// Now let the transfer actually finish so Run returns.
	for i := uint16(0); i < 4; i++ {
		ackConn.push(wire.EncodeAck(i, time.Now()))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Sender.Run did not complete")
	}
}

func waitForPacket(t *testing.T, d *fakeDataSender, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(d.snapshot()) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d packets to be sent", n)
}

func waitForBase(t *testing.T, s *Sender, want uint16) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.controlMu.Lock()
		base := s.base
		s.controlMu.Unlock()
		if base >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for base to reach %d", want)
}

func waitForRetransmit(t *testing.T, d *fakeDataSender) {
	t.Helper()
	before := len(d.snapshot())
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(d.snapshot()) > before {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for a retransmission")
}
