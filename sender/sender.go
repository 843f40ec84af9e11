// Package sender implements the MADP sending peer: a three-task system (a
// send loop, an ACK handler, and a retransmission timer) that walks a fixed
// chunk sequence through a sliding window with slow-start/congestion-
// avoidance control, per spec.md §4.3–§4.5 and §5.
package sender

import (
	"net"
	"sync"
	"time"

	"madp/internal/congestion"
	"madp/internal/metrics"
	"madp/internal/workload"
)

// DataSender is the one outbound primitive the send loop needs: write a
// data packet to the receiver.
type DataSender interface {
	SendData(pkt []byte) error
}

// AckReceiver is the one inbound primitive the ACK handler needs: block for
// the next ACK datagram. A zero-length read signals peer termination; a
// closed receiver unblocks a pending read with ErrClosed, which the handler
// treats the same way.
type AckReceiver interface {
	ReceiveAck(buf []byte) (n int, err error)
	Close() error
}

// nowFunc is overridden in tests to produce deterministic timestamps.
var nowFunc = time.Now

// Config bounds the sender's window and identifies it for observability.
type Config struct {
	RWND  int
	RunID string
}

// Sender drives one full workload transfer to completion.
type Sender struct {
	chunks      []workload.Chunk
	totalChunks uint16
	rwnd        int
	runID       string

	dataConn DataSender
	ackConn  AckReceiver

	metrics *metrics.Sender

	// controlMu guards every field below it up to (not including) timer
	// fields, per the (timer, control) lock order documented in
	// spec.md §5.
	controlMu sync.Mutex
	cond      *sync.Cond
	base      uint16
	nextSeq   uint16
	window    *congestion.Window

	dupAckCount int
	lastAckSeq  uint16
	haveLastAck bool

	// timerMu guards the single pending retransmission timer. Any rearm
	// or cancel holds it; nested acquisition with controlMu is allowed
	// only in the order (timer, control).
	timerMu sync.Mutex
	timer   *time.Timer

	// rtt is read by the send loop and the timer callback and written by
	// the ACK handler, all from different goroutines; it is guarded by
	// controlMu via sampleRTT/currentRTO below, never accessed directly.
	rtt *congestion.Estimator

	startTime time.Time
	startOnce sync.Once
}

// New constructs a Sender for the given chunk sequence.
func New(seq workload.Source, cfg Config, dataConn DataSender, ackConn AckReceiver, m *metrics.Sender) *Sender {
	s := &Sender{
		chunks:      seq.Chunks(),
		totalChunks: uint16(seq.Len()),
		rwnd:        cfg.RWND,
		runID:       cfg.RunID,
		dataConn:    dataConn,
		ackConn:     ackConn,
		metrics:     m,
		window:      congestion.NewWindow(),
		rtt:         congestion.NewEstimator(),
	}
	s.cond = sync.NewCond(&s.controlMu)
	return s
}

// Run blocks until the entire workload sequence has been delivered and
// acknowledged, then returns the elapsed wall time of the transfer. It
// starts the ACK handler goroutine internally and tears it down on exit.
func (s *Sender) Run() time.Duration {
	ackDone := make(chan struct{})
	go func() {
		defer close(ackDone)
		s.ackHandlerLoop()
	}()

	s.rearmTimer(s.currentRTO())
	s.sendLoop()

	s.cancelTimer()
	s.ackConn.Close()
	<-ackDone

	return time.Since(s.startTime)
}

// sampleRTT folds a new RTT observation into the estimator and returns the
// updated RTO. Guarded by controlMu: the send loop and timer callback read
// RTO concurrently with this write from the ACK handler goroutine.
func (s *Sender) sampleRTT(d time.Duration) time.Duration {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	return s.rtt.Sample(d)
}

// currentRTO returns the current retransmission timeout without taking a
// sample, guarded by controlMu per the note on sampleRTT above.
func (s *Sender) currentRTO() time.Duration {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	return s.rtt.RTO()
}

func (s *Sender) markStarted() {
	s.startOnce.Do(func() {
		s.startTime = time.Now()
	})
}

func admitted(base, nextSeq uint16, cwnd float64, rwnd int) bool {
	window := cwnd
	if float64(rwnd) < window {
		window = float64(rwnd)
	}
	return float64(nextSeq-base) < window
}

// NewUDPDataSender dials a connected UDP socket used only for writing data
// packets to remoteAddr.
func NewUDPDataSender(remoteAddr string) (*udpDataSender, error) {
	addr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	return &udpDataSender{conn: conn}, nil
}

type udpDataSender struct {
	conn *net.UDPConn
}

func (u *udpDataSender) SendData(pkt []byte) error {
	_, err := u.conn.Write(pkt)
	return err
}

func (u *udpDataSender) Close() error { return u.conn.Close() }

// NewUDPAckReceiver binds a UDP socket used only for reading ACK datagrams.
func NewUDPAckReceiver(localAddr string) (*udpAckReceiver, error) {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &udpAckReceiver{conn: conn}, nil
}

type udpAckReceiver struct {
	conn *net.UDPConn
}

func (u *udpAckReceiver) ReceiveAck(buf []byte) (int, error) {
	return u.conn.Read(buf)
}

func (u *udpAckReceiver) Close() error { return u.conn.Close() }
