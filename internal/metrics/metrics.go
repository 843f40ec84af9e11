// Package metrics exposes MADP protocol counters and gauges to Prometheus,
// mirroring the socket-stats-over-HTTP pattern the runZeroInc tcpinfo
// examples use client_golang for, applied here to MADP's own congestion and
// delivery state instead of kernel TCP_INFO fields.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sender holds the metrics series published by a sender process.
type Sender struct {
	Cwnd            prometheus.Gauge
	Ssthresh        prometheus.Gauge
	RTOMillis       prometheus.Gauge
	Base            prometheus.Gauge
	NextSeq         prometheus.Gauge
	Retransmissions prometheus.Counter
	FastRetransmits prometheus.Counter
	Timeouts        prometheus.Counter
	PacketsSent     prometheus.Counter
}

// NewSender registers a fresh Sender metric set under runID so multiple
// runs on the same process lifetime (or scraped concurrently) don't
// collide.
func NewSender(reg prometheus.Registerer, runID string) *Sender {
	labels := prometheus.Labels{"run_id": runID}
	s := &Sender{
		Cwnd:            newGauge(reg, "madp_sender_cwnd_packets", "Current congestion window in packets.", labels),
		Ssthresh:        newGauge(reg, "madp_sender_ssthresh_packets", "Current slow-start threshold in packets.", labels),
		RTOMillis:       newGauge(reg, "madp_sender_rto_milliseconds", "Current retransmission timeout.", labels),
		Base:            newGauge(reg, "madp_sender_base_seq", "Lowest unacknowledged global sequence number.", labels),
		NextSeq:         newGauge(reg, "madp_sender_next_seq", "Next global sequence number to send.", labels),
		Retransmissions: newCounter(reg, "madp_sender_retransmissions_total", "Packets retransmitted (timeout or fast retransmit).", labels),
		FastRetransmits: newCounter(reg, "madp_sender_fast_retransmits_total", "Fast retransmit events triggered by triple duplicate ACK.", labels),
		Timeouts:        newCounter(reg, "madp_sender_timeouts_total", "Retransmission timer expirations.", labels),
		PacketsSent:     newCounter(reg, "madp_sender_packets_sent_total", "Data packets transmitted, including retransmissions.", labels),
	}
	return s
}

// Receiver holds the metrics series published by a receiver process.
type Receiver struct {
	ExpectedSeq    prometheus.Gauge
	ReorderPending prometheus.Gauge
	FilesPending   prometheus.Gauge
	PacketsDropped prometheus.Counter
	DuplicateAcks  prometheus.Counter
	FilesCompleted prometheus.Counter
}

// NewReceiver registers a fresh Receiver metric set under runID.
func NewReceiver(reg prometheus.Registerer, runID string) *Receiver {
	labels := prometheus.Labels{"run_id": runID}
	return &Receiver{
		ExpectedSeq:    newGauge(reg, "madp_receiver_expected_seq", "Next global sequence number required for in-order delivery.", labels),
		ReorderPending: newGauge(reg, "madp_receiver_reorder_pending", "Entries currently buffered in the reorder map.", labels),
		FilesPending:   newGauge(reg, "madp_receiver_files_pending", "Files with in-flight, incomplete reassembly state.", labels),
		PacketsDropped: newCounter(reg, "madp_receiver_packets_dropped_total", "Packets silently dropped (corrupt digest or stale sequence).", labels),
		DuplicateAcks:  newCounter(reg, "madp_receiver_duplicate_acks_sent_total", "Duplicate ACKs sent to drive fast retransmit.", labels),
		FilesCompleted: newCounter(reg, "madp_receiver_files_completed_total", "Files fully reassembled and written out.", labels),
	}
}

// Serve starts an HTTP server exposing /metrics on addr. It runs until the
// process exits; callers typically launch it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

func newGauge(reg prometheus.Registerer, name, help string, labels prometheus.Labels) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help, ConstLabels: labels})
	reg.MustRegister(g)
	return g
}

func newCounter(reg prometheus.Registerer, name, help string, labels prometheus.Labels) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help, ConstLabels: labels})
	reg.MustRegister(c)
	return c
}
