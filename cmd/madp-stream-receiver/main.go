package main

import (
	"flag"
	"net"
	"time"

	"madp/internal/workload"
	"madp/pkg/logger"
	"madp/stream"
)

const version = "1.0.0"

func main() {
	logger.Banner("Byte-Stream Receiver", version)

	addr := flag.String("addr", "127.0.0.1:9002", "TCP address to listen on")
	outputDir := flag.String("output-dir", "./received", "directory to write reconstructed objects to")
	flag.Parse()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("listening on %s: %v", *addr, err)
	}
	defer ln.Close()
	logger.Info("Listening on %s", *addr)

	conn, err := ln.Accept()
	if err != nil {
		logger.Fatal("accepting connection: %v", err)
	}
	defer conn.Close()
	logger.Info("Accepted connection from %s", conn.RemoteAddr())

	sink := workload.NewFileWriter(*outputDir)
	start := time.Now()
	if err := stream.Receive(conn, sink); err != nil {
		logger.Fatal("receiving: %v", err)
	}
	logger.Success("Transfer complete in %.4fs, files written to %s", time.Since(start).Seconds(), *outputDir)
}
