// Command madp-logextract converts a batch of MADP experiment run logs into
// the comparison CSV consumed by the plotting scripts.
package main

import (
	"flag"
	"os"
	"strings"

	"madp/internal/logextract"
	"madp/pkg/logger"
)

func main() {
	logFile := flag.String("log", "madp_results.txt", "path to the concatenated run log")
	csvFile := flag.String("out", "madp_results.csv", "path to write the extracted CSV to")
	flag.Parse()

	f, err := os.Open(*logFile)
	if err != nil {
		logger.Fatal("opening %s: %v", *logFile, err)
	}
	defer f.Close()

	rows, err := logextract.Extract(f)
	if err != nil {
		logger.Fatal("extracting: %v", err)
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = row.String()
	}

	if err := os.WriteFile(*csvFile, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		logger.Fatal("writing %s: %v", *csvFile, err)
	}
	logger.Success("Extracted %d runs to %s", len(rows), *csvFile)
}
