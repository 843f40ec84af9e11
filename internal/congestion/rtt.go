// Package congestion implements the adaptive RTT/RTO estimator and the
// slow-start/congestion-avoidance window controller used by the sender's
// ACK handler and retransmission timer.
package congestion

import "time"

// MaxRTO is the hard cap on the retransmission timeout.
const MaxRTO = 2 * time.Second

// InitialRTO is the timeout used before any RTT sample has been observed.
const InitialRTO = 1 * time.Second

// Estimator maintains smoothed RTT and deviation and derives RTO, following
// the reference coefficients (alpha=0.875, beta=0.75) from
// original_source/code/udpPart/madpSender.py's calculateTimeoutInterval.
type Estimator struct {
	estRTT time.Duration
	devRTT time.Duration
	rto    time.Duration
}

// NewEstimator returns an Estimator seeded so that the first RTO equals
// InitialRTO before any sample is taken.
func NewEstimator() *Estimator {
	return &Estimator{
		estRTT: InitialRTO,
		devRTT: 0,
		rto:    InitialRTO,
	}
}

// Sample folds one new RTT observation into the smoothed estimate and
// returns the updated RTO, clamped to MaxRTO.
func (e *Estimator) Sample(sampleRTT time.Duration) time.Duration {
	e.estRTT = time.Duration(0.875*float64(e.estRTT) + 0.125*float64(sampleRTT))
	e.devRTT = time.Duration(0.75*float64(e.devRTT) + 0.25*float64(absDuration(sampleRTT-e.estRTT)))

	rto := e.estRTT + 4*e.devRTT
	if rto > MaxRTO {
		rto = MaxRTO
	}
	e.rto = rto
	return rto
}

// RTO returns the current retransmission timeout without taking a sample.
func (e *Estimator) RTO() time.Duration {
	return e.rto
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
