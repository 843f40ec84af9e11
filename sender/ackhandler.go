package sender

import (
	"errors"
	"io"
	"net"
	"time"

	"madp/internal/wire"
)

// ackHandlerLoop implements spec.md §4.4: it reads ACKs until the peer
// signals termination (zero-length read) or the connection is closed,
// advancing base, detecting duplicates, triggering fast retransmit, and
// feeding the RTT estimator and congestion window.
func (s *Sender) ackHandlerLoop() {
	buf := make([]byte, wire.AckPacketSize+64)
	for {
		n, err := s.ackConn.ReceiveAck(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
				return
			}
			continue
		}
		if n == 0 {
			return
		}

		ackSeq, echoTS, err := wire.DecodeAck(buf[:n])
		if err != nil {
			continue // corrupt ACK, silently dropped per spec.md §7
		}

		s.handleAck(ackSeq, echoTS)
	}
}

func (s *Sender) handleAck(ackSeq uint16, echoTS time.Time) {
	s.controlMu.Lock()

	isNew := uint32(ackSeq)+1 > uint32(s.base)
	if isNew {
		s.base = ackSeq + 1
		s.dupAckCount = 0
	} else {
		if s.haveLastAck && ackSeq == s.lastAckSeq {
			s.dupAckCount++
			if s.dupAckCount == 3 {
				s.window.OnFastRetransmit()
				s.dupAckCount = 0
				if s.metrics != nil {
					s.metrics.FastRetransmits.Inc()
				}
				s.retransmitInFlightLocked()
			}
		} else {
			s.dupAckCount = 0
		}
	}
	s.lastAckSeq = ackSeq
	s.haveLastAck = true

	if isNew {
		s.window.OnNewAck()
	}

	base := s.base
	nextSeq := s.nextSeq
	cwnd := s.window.Cwnd()
	ssthresh := s.window.Ssthresh()
	s.controlMu.Unlock()

	if isNew {
		sampleRTT := nowFunc().Sub(echoTS)
		rto := s.sampleRTT(sampleRTT)
		if base < nextSeq {
			s.rearmTimer(rto)
		} else {
			s.cancelTimer()
		}
	}

	s.controlMu.Lock()
	s.cond.Signal()
	s.controlMu.Unlock()

	if s.metrics != nil {
		s.metrics.Base.Set(float64(base))
		s.metrics.Cwnd.Set(cwnd)
		s.metrics.Ssthresh.Set(ssthresh)
		s.metrics.RTOMillis.Set(float64(s.currentRTO().Milliseconds()))
	}
}

// retransmitInFlightLocked resends every packet in [base, next_seq), as the
// reference implementation does on both fast retransmit and timer expiry.
// Callers must hold controlMu.
func (s *Sender) retransmitInFlightLocked() {
	base, next := s.base, s.nextSeq
	s.controlMu.Unlock()
	for seq := base; seq < next; seq++ {
		s.transmit(seq)
		if s.metrics != nil {
			s.metrics.Retransmissions.Inc()
		}
	}
	s.controlMu.Lock()
}
