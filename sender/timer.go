package sender

import "time"

// rearmTimer implements the abstract resettable one-shot described in
// spec.md §9: re-arming implicitly cancels any pending timer. It takes only
// timerMu; no caller holds controlMu when calling it.
func (s *Sender) rearmTimer(d time.Duration) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, s.onTimerExpiry)
}

func (s *Sender) cancelTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
}

// onTimerExpiry implements spec.md §4.5. The timer callback is never
// invoked concurrently with itself: it holds timerMu for its whole run
// (taking controlMu inside it, in (timer, control) order), so a callback of
// a newer timer waits until the running one has finished.
func (s *Sender) onTimerExpiry() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	s.controlMu.Lock()
	if s.base == s.totalChunks {
		s.controlMu.Unlock()
		return
	}
	s.window.OnTimeout()
	if s.metrics != nil {
		s.metrics.Timeouts.Inc()
		s.metrics.Cwnd.Set(s.window.Cwnd())
		s.metrics.Ssthresh.Set(s.window.Ssthresh())
	}
	base, next := s.base, s.nextSeq
	s.controlMu.Unlock()

	for seq := base; seq < next; seq++ {
		s.transmit(seq)
		if s.metrics != nil {
			s.metrics.Retransmissions.Inc()
		}
	}

	// timerMu is already held, so rearm inline rather than via rearmTimer.
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.currentRTO(), s.onTimerExpiry)
}
