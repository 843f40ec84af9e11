// Package config loads the YAML configuration shared by the MADP binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything a sender or receiver binary needs to start. Zero
// values are filled in by Default so the binaries run unconfigured for
// local experiments.
type Config struct {
	// DataAddr is where the sender sends data packets / the receiver
	// listens for them.
	DataAddr string `yaml:"data_addr"`
	// AckAddr is where the receiver sends ACKs / the sender listens for
	// them.
	AckAddr string `yaml:"ack_addr"`

	// WorkloadDir is where the sender reads the reference objects from.
	WorkloadDir string `yaml:"workload_dir"`
	// OutputDir is where the receiver writes reconstructed objects to.
	OutputDir string `yaml:"output_dir"`

	// RWND is the static receive-window bound in packets.
	RWND int `yaml:"rwnd"`

	// MetricsAddr, if non-empty, serves Prometheus metrics on this
	// address.
	MetricsAddr string `yaml:"metrics_addr"`

	// ReadTimeout is parsed and defaulted, but no binary applies it: the
	// receive loop blocks on each socket read without a deadline.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		DataAddr:    "127.0.0.1:9000",
		AckAddr:     "127.0.0.1:9001",
		WorkloadDir: "./objects",
		OutputDir:   "./received",
		RWND:        64000,
		MetricsAddr: "127.0.0.1:9100",
		ReadTimeout: 5 * time.Second,
	}
}

// Load reads and parses a YAML config file, filling any zero-valued field
// from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	loaded := Config{}
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	mergeNonZero(&cfg, loaded)
	return cfg, nil
}

func mergeNonZero(dst *Config, src Config) {
	if src.DataAddr != "" {
		dst.DataAddr = src.DataAddr
	}
	if src.AckAddr != "" {
		dst.AckAddr = src.AckAddr
	}
	if src.WorkloadDir != "" {
		dst.WorkloadDir = src.WorkloadDir
	}
	if src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
	if src.RWND != 0 {
		dst.RWND = src.RWND
	}
	if src.MetricsAddr != "" {
		dst.MetricsAddr = src.MetricsAddr
	}
	if src.ReadTimeout != 0 {
		dst.ReadTimeout = src.ReadTimeout
	}
}
