// Package receiver implements the MADP receiving peer: a single-task
// receive loop that verifies, reorders, and delivers chunks in strictly
// ascending sequence order, per spec.md §4.6.
package receiver

import (
	"net"
	"time"

	"madp/internal/metrics"
	"madp/internal/reassembler"
	"madp/internal/wire"
	"madp/internal/workload"
)

// DataReceiver is the one inbound primitive the receive loop needs: block
// for the next data datagram. A zero-length read is the (optional) forward-
// channel termination signal described in spec.md §5.
type DataReceiver interface {
	ReceiveData(buf []byte) (n int, err error)
}

// AckSender is the one outbound primitive the receive loop needs: write an
// ACK (or the zero-length termination datagram) to the sender.
type AckSender interface {
	SendAck(pkt []byte) error
}

// Receiver reconstructs the workload's files from an incoming chunk stream.
type Receiver struct {
	dataConn DataReceiver
	ackConn  AckSender
	reasm    *reassembler.Reassembler
	reorder  *reorderBuffer
	metrics  *metrics.Receiver

	expectedSeq uint16
	totalChunks uint16
	haveTotal   bool

	startTime time.Time
}

// New constructs a Receiver that writes completed files to sink.
func New(dataConn DataReceiver, ackConn AckSender, sink workload.Sink, m *metrics.Receiver) *Receiver {
	return &Receiver{
		dataConn: dataConn,
		ackConn:  ackConn,
		reasm:    reassembler.New(sink),
		reorder:  newReorderBuffer(),
		metrics:  m,
	}
}

// Run blocks until every chunk of the workload has been delivered in order,
// sends the termination datagram, and returns the elapsed wall time from
// the first received packet.
func (r *Receiver) Run() time.Duration {
	buf := make([]byte, wire.MaxDataPacketSize+64)

	for {
		if r.haveTotal && r.expectedSeq == r.totalChunks {
			break
		}

		n, err := r.dataConn.ReceiveData(buf)
		if err != nil {
			continue
		}
		if n == 0 {
			break // forward-channel termination signal
		}
		if r.startTime.IsZero() {
			r.startTime = time.Now()
		}

		fields, rawPayload, err := wire.DecodeData(buf[:n])
		if err != nil {
			if r.metrics != nil {
				r.metrics.PacketsDropped.Inc()
			}
			continue // corrupt digest, silently dropped per spec.md §7
		}
		// rawPayload aliases buf, which the next ReceiveData call
		// overwrites; copy before handing it to the reorder buffer or
		// the reassembler, both of which may retain it past this
		// iteration.
		payload := append([]byte(nil), rawPayload...)

		r.totalChunks = fields.TotalChunks
		r.haveTotal = true
		r.handlePacket(fields, payload)
		r.publishMetrics()
	}

	_ = r.ackConn.SendAck(nil)
	return time.Since(r.startTime)
}

func (r *Receiver) handlePacket(fields wire.DataFields, payload []byte) {
	seq := fields.SeqNum
	key := workload.FileKey{SizeClass: fields.SizeClass, FileID: fields.FileID}

	switch {
	case seq == r.expectedSeq:
		r.deliver(key, fields.ChunkNum, payload, fields.LastOfFile)
		r.expectedSeq++
		r.drainReorderBuffer()
		r.sendAck(r.expectedSeq-1, fields.SentAt)

	case seq > r.expectedSeq:
		if r.expectedSeq > 0 {
			r.sendAck(r.expectedSeq-1, fields.SentAt)
			if r.metrics != nil {
				r.metrics.DuplicateAcks.Inc()
			}
		}
		if !r.reorder.has(seq) {
			r.reorder.insert(seq, bufferedChunk{key: key, chunkNum: fields.ChunkNum, payload: payload, lastOfFile: fields.LastOfFile})
		}

	default:
		// seq < expectedSeq: already delivered, drop.
		if r.metrics != nil {
			r.metrics.PacketsDropped.Inc()
		}
	}
}

func (r *Receiver) drainReorderBuffer() {
	for {
		c, ok := r.reorder.take(r.expectedSeq)
		if !ok {
			return
		}
		r.deliver(c.key, c.chunkNum, c.payload, c.lastOfFile)
		r.expectedSeq++
	}
}

func (r *Receiver) deliver(key workload.FileKey, chunkNum uint16, payload []byte, lastOfFile bool) {
	_ = r.reasm.AddChunk(key, chunkNum, payload, lastOfFile)
	if r.metrics != nil && lastOfFile {
		r.metrics.FilesCompleted.Inc()
	}
}

func (r *Receiver) sendAck(ackSeq uint16, echoTS time.Time) {
	pkt := wire.EncodeAck(ackSeq, echoTS)
	_ = r.ackConn.SendAck(pkt)
}

func (r *Receiver) publishMetrics() {
	if r.metrics == nil {
		return
	}
	r.metrics.ExpectedSeq.Set(float64(r.expectedSeq))
	r.metrics.ReorderPending.Set(float64(r.reorder.len()))
	r.metrics.FilesPending.Set(float64(r.reasm.Pending()))
}

// NewUDPDataReceiver binds a UDP socket used only for reading data
// datagrams.
func NewUDPDataReceiver(localAddr string) (*udpDataReceiver, error) {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &udpDataReceiver{conn: conn}, nil
}

type udpDataReceiver struct {
	conn *net.UDPConn
}

func (u *udpDataReceiver) ReceiveData(buf []byte) (int, error) {
	return u.conn.Read(buf)
}

func (u *udpDataReceiver) Close() error { return u.conn.Close() }

// NewUDPAckSender dials a connected UDP socket used only for writing ACK
// datagrams to remoteAddr.
func NewUDPAckSender(remoteAddr string) (*udpAckSender, error) {
	addr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	return &udpAckSender{conn: conn}, nil
}

type udpAckSender struct {
	conn *net.UDPConn
}

func (u *udpAckSender) SendAck(pkt []byte) error {
	_, err := u.conn.Write(pkt)
	return err
}

func (u *udpAckSender) Close() error { return u.conn.Close() }
