package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/schollz/progressbar/v3"

	"madp/internal/config"
	"madp/internal/metrics"
	"madp/internal/workload"
	"madp/pkg/logger"
	"madp/sender"
)

const version = "1.0.0"

func main() {
	logger.Banner("Reliable UDP Sender", version)

	configPath := flag.String("config", "", "path to a YAML config file")
	delayClass := flag.String("delay-class", "normaldelay", "label recorded in the run summary line")
	lossPct := flag.Int("loss-pct", 0, "label recorded in the run summary line")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("loading config: %v", err)
	}

	runID := xid.New().String()
	logger.Info("Run ID: %s", runID)
	logger.Info("Data peer: %s", cfg.DataAddr)
	logger.Info("Ack listen: %s", cfg.AckAddr)
	logger.Info("Workload dir: %s", cfg.WorkloadDir)

	loader := workload.NewFileLoader(cfg.WorkloadDir)
	seq, err := loader.Load()
	if err != nil {
		logger.Fatal("loading workload: %v", err)
	}
	logger.Success("Loaded %d chunks from %d reference objects", seq.Len(), 2*workload.ReferenceFileCount)

	dataConn, err := sender.NewUDPDataSender(cfg.DataAddr)
	if err != nil {
		logger.Fatal("dialing data socket: %v", err)
	}
	ackConn, err := sender.NewUDPAckReceiver(cfg.AckAddr)
	if err != nil {
		logger.Fatal("binding ack socket: %v", err)
	}

	reg := prometheus.DefaultRegisterer
	m := metrics.NewSender(reg, runID)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				logger.Warn("metrics server stopped: %v", err)
			}
		}()
		logger.Info("Metrics: http://%s/metrics", cfg.MetricsAddr)
	}

	s := sender.New(seq, sender.Config{RWND: cfg.RWND, RunID: runID}, dataConn, ackConn, m)

	bar := progressbar.NewOptions(seq.Len(),
		progressbar.OptionSetDescription("transferring"),
		progressbar.OptionSpinnerType(14),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	type result struct{ elapsedSeconds float64 }
	resultChan := make(chan result, 1)

	go func() {
		elapsed := s.Run()
		_ = bar.Finish()
		resultChan <- result{elapsedSeconds: elapsed.Seconds()}
	}()

	select {
	case res := <-resultChan:
		fmt.Printf("Run[%s][%s][%d%%]: Total Time: %.4f\n", runID, *delayClass, *lossPct, res.elapsedSeconds)
	case sig := <-sigChan:
		logger.Warn("Received signal: %v, exiting before transfer completed", sig)
		os.Exit(1)
	}
}
