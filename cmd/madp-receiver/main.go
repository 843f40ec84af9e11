package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"

	"madp/internal/config"
	"madp/internal/metrics"
	"madp/internal/workload"
	"madp/pkg/logger"
	"madp/receiver"
)

const version = "1.0.0"

func main() {
	logger.Banner("Reliable UDP Receiver", version)

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("loading config: %v", err)
	}

	runID := xid.New().String()
	logger.Info("Run ID: %s", runID)
	logger.Info("Data listen: %s", cfg.DataAddr)
	logger.Info("Ack peer: %s", cfg.AckAddr)
	logger.Info("Output dir: %s", cfg.OutputDir)

	dataConn, err := receiver.NewUDPDataReceiver(cfg.DataAddr)
	if err != nil {
		logger.Fatal("binding data socket: %v", err)
	}
	ackConn, err := receiver.NewUDPAckSender(cfg.AckAddr)
	if err != nil {
		logger.Fatal("dialing ack socket: %v", err)
	}

	reg := prometheus.DefaultRegisterer
	m := metrics.NewReceiver(reg, runID)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				logger.Warn("metrics server stopped: %v", err)
			}
		}()
		logger.Info("Metrics: http://%s/metrics", cfg.MetricsAddr)
	}

	sink := workload.NewFileWriter(cfg.OutputDir)
	r := receiver.New(dataConn, ackConn, sink, m)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	resultChan := make(chan float64, 1)

	go func() {
		elapsed := r.Run()
		resultChan <- elapsed.Seconds()
	}()

	select {
	case seconds := <-resultChan:
		fmt.Printf("Total Time: %.4f\n", seconds)
		logger.Success("Transfer complete, files written to %s", cfg.OutputDir)
	case sig := <-sigChan:
		logger.Warn("Received signal: %v, exiting before transfer completed", sig)
		os.Exit(1)
	}
}
