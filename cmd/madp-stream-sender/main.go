package main

import (
	"flag"
	"net"

	"madp/internal/workload"
	"madp/pkg/logger"
	"madp/stream"
)

const version = "1.0.0"

func main() {
	logger.Banner("Byte-Stream Sender", version)

	addr := flag.String("addr", "127.0.0.1:9002", "TCP address of the stream receiver")
	workloadDir := flag.String("workload-dir", "./objects", "directory holding the reference objects")
	flag.Parse()

	loader := workload.NewFileLoader(*workloadDir)
	seq, err := loader.Load()
	if err != nil {
		logger.Fatal("loading workload: %v", err)
	}
	logger.Info("Loaded %d chunks from %d reference objects", seq.Len(), 2*workload.ReferenceFileCount)

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		logger.Fatal("dialing %s: %v", *addr, err)
	}
	defer conn.Close()

	logger.Info("Connected to %s, sending", *addr)
	if err := stream.Send(conn, seq); err != nil {
		logger.Fatal("sending: %v", err)
	}
	logger.Success("Transfer complete")
}
