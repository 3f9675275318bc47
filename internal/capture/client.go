package capture

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/expressjs/perf-runner/internal/record"
)

// Delimiters of the load-test summary a workload may print on stdout.
const (
	BlockStart = "<<<PERF_CLIENT_RESULTS"
	BlockEnd   = "PERF_CLIENT_RESULTS>>>"
)

var errNoLatency = errors.New("client results have no latency")

// clientPayload accepts error counts written as JSON numbers of any form.
type clientPayload struct {
	Latency           *record.Latency `json:"latency"`
	RequestsPerSecond *float64        `json:"requestsPerSecond"`
	Errors            *float64        `json:"errors"`
}

// maxLineSize bounds a single stdout line while scanning for the block.
const maxLineSize = 4 * 1024 * 1024

// ExtractBlock returns the body of the last complete delimited block in out.
// When scanning stops early the error is returned with whatever block was
// complete by then.
func ExtractBlock(out []byte) ([]byte, bool, error) {
	var (
		body    []string
		inBlock bool
		found   []byte
		ok      bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == BlockStart:
			inBlock = true
			body = body[:0]
		case line == BlockEnd && inBlock:
			inBlock = false
			found = []byte(strings.Join(body, "\n"))
			ok = true
		case inBlock:
			body = append(body, scanner.Text())
		}
	}

	if err := scanner.Err(); err != nil {
		return found, ok, fmt.Errorf("scanning workload output: %w", err)
	}

	return found, ok, nil
}

// ParseClientResults decodes a load-test summary.
func ParseClientResults(data []byte) (*record.ClientResults, error) {
	var payload clientPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing client results: %w", err)
	}

	if payload.Latency == nil {
		return nil, errNoLatency
	}

	client := &record.ClientResults{
		Latency:           payload.Latency,
		RequestsPerSecond: payload.RequestsPerSecond,
	}

	if payload.Errors != nil {
		client.Errors = record.Int(int64(math.Round(*payload.Errors)))
	}

	return client, nil
}
