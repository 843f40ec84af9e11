package sender

import (
	"madp/internal/wire"
)

// sendLoop implements spec.md §4.3. It walks the global chunk sequence,
// emitting packets while the window admits them and blocking on the
// window-advance condition otherwise, then waits for the ACK handler to
// drain the last outstanding packets before returning.
func (s *Sender) sendLoop() {
	s.markStarted()

	for {
		s.controlMu.Lock()
		for s.nextSeq < s.totalChunks && !admitted(s.base, s.nextSeq, s.window.Cwnd(), s.rwnd) {
			s.cond.Wait()
		}
		if s.nextSeq == s.totalChunks {
			s.controlMu.Unlock()
			break
		}

		seq := s.nextSeq
		armTimer := s.base == s.nextSeq
		s.nextSeq++
		s.controlMu.Unlock()

		s.transmit(seq)

		if armTimer {
			s.rearmTimer(s.currentRTO())
		}
	}

	s.controlMu.Lock()
	for s.base < s.totalChunks {
		s.cond.Wait()
	}
	s.controlMu.Unlock()
}

// transmit encodes and sends the chunk at global sequence seq with a fresh
// timestamp, whether this is its first send or a retransmission.
func (s *Sender) transmit(seq uint16) {
	chunk := s.chunks[seq]
	pkt := wire.EncodeData(chunk.Payload, seq, chunk.FileID, chunk.ChunkNum, s.totalChunks, chunk.LastOfFile, chunk.SizeClass, nowFunc())
	_ = s.dataConn.SendData(pkt)
	if s.metrics != nil {
		s.metrics.PacketsSent.Inc()
		s.metrics.NextSeq.Set(float64(s.nextSeqSnapshot()))
	}
}

func (s *Sender) nextSeqSnapshot() uint16 {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	return s.nextSeq
}
