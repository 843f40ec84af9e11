// Package logextract scans MADP experiment run logs and extracts one CSV
// row per completed run.
package logextract

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
)

var (
	runPattern  = regexp.MustCompile(`Run\[(\d+)\]\[(\w+)\]\[(\d+)%\]:`)
	timePattern = regexp.MustCompile(`Total Time:\s+(\d+\.\d+)`)
)

// Row is one extracted run result: protocol name is always "madp" to match
// the comparison CSV the original scripts produce alongside the TCP
// baseline's own extractor.
type Row struct {
	DelayClass string
	LossPct    string
	RunID      string
	TotalTime  string
}

// String renders the row in the original extractor's CSV format:
// "madp,<delay_class>,<loss_percent>,<run_id>,<total_time>".
func (r Row) String() string {
	return fmt.Sprintf("madp,%s,%s,%s,%s", r.DelayClass, r.LossPct, r.RunID, r.TotalTime)
}

// Extract scans r line by line, pairing each "Run[id][delay][loss%]:"
// header with the next "Total Time: <seconds>" line that follows it. A run
// header with no matching Total Time line (an aborted run) is dropped
// silently, mirroring the original's current_run reset behavior.
func Extract(r io.Reader) ([]Row, error) {
	var rows []Row
	var pending *Row

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if m := runPattern.FindStringSubmatch(line); m != nil {
			pending = &Row{RunID: m[1], DelayClass: m[2], LossPct: m[3]}
			continue
		}

		if m := timePattern.FindStringSubmatch(line); m != nil && pending != nil {
			pending.TotalTime = m[1]
			rows = append(rows, *pending)
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("logextract: scanning log: %w", err)
	}
	return rows, nil
}
