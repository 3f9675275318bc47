// Package record defines the persisted performance measurement captured for one
// (label, test folder) run, and its on-disk JSON representation.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SchemaVersion is written into every record produced by this tool.
const SchemaVersion = "1.0.0"

// Labels identifying the two variants compared in a run.
const (
	LabelLatest    = "latest"
	LabelCandidate = "candidate"
)

var (
	errMissingServerResults = errors.New("record has no serverResults.executionTimeMs")
	errBadFilename          = errors.New("not a result file name")
)

// Record is a single performance measurement. It is immutable once captured.
type Record struct {
	SchemaVersion  string         `json:"schemaVersion"`
	Timestamp      int64          `json:"timestamp"`
	RunMetadata    RunMetadata    `json:"runMetadata"`
	ServerMetadata HostMetadata   `json:"serverMetadata"`
	ClientMetadata HostMetadata   `json:"clientMetadata"`
	ServerResults  ServerResults  `json:"serverResults"`
	ClientResults  *ClientResults `json:"clientResults,omitempty"`
}

// RunMetadata identifies what was measured and with which load settings.
type RunMetadata struct {
	Repo         string       `json:"repo"`
	GitRef       string       `json:"gitRef"`
	ToolSettings ToolSettings `json:"toolSettings"`
}

// ToolSettings are the load generator settings handed to the workload.
type ToolSettings struct {
	Connections int `json:"connections"`
	Duration    int `json:"duration"`
}

// HostMetadata describes the machine a side of the benchmark ran on.
// CPUs is kept raw so records written by older runners, which stored a plain
// count, still load.
type HostMetadata struct {
	Platform string          `json:"platform"`
	Arch     string          `json:"arch"`
	CPUs     json.RawMessage `json:"cpus,omitempty"`
	TotalMem *uint64         `json:"totalmem,omitempty"`
}

// ServerResults holds the measurement that is always present.
type ServerResults struct {
	ExecutionTimeMs *float64 `json:"executionTimeMs"`
}

// ClientResults holds the load-test summary, present only when the workload
// emitted one.
type ClientResults struct {
	Latency           *Latency `json:"latency,omitempty"`
	RequestsPerSecond *float64 `json:"requestsPerSecond,omitempty"`
	Errors            *int64   `json:"errors,omitempty"`
}

// Latency summarizes request latency.
type Latency struct {
	AverageMs float64 `json:"averageMs"`
}

// ExecutionTime returns the wall-clock duration of the run in milliseconds.
func (r *Record) ExecutionTime() float64 {
	if r.ServerResults.ExecutionTimeMs == nil {
		return 0
	}

	return *r.ServerResults.ExecutionTimeMs
}

// HasLoadTest reports whether the record carries a usable load-test summary:
// a latency block and a non-zero requests-per-second figure.
func (r *Record) HasLoadTest() bool {
	c := r.ClientResults
	return c != nil &&
		c.Latency != nil &&
		c.RequestsPerSecond != nil &&
		*c.RequestsPerSecond != 0
}

// HasErrorCount reports whether the load-test summary includes an error count.
func (r *Record) HasErrorCount() bool {
	return r.ClientResults != nil && r.ClientResults.Errors != nil
}

// Validate checks the fields every comparison depends on.
func (r *Record) Validate() error {
	if r.ServerResults.ExecutionTimeMs == nil {
		return errMissingServerResults
	}

	return nil
}

// Float returns a pointer to v, for building records.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building records.
func Int(v int64) *int64 { return &v }

// Load reads and validates a record from path.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the runner's own sandbox layout
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", path, err)
	}

	return Decode(data, path)
}

// Decode parses a record. source is used in error messages only.
func Decode(data []byte, source string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing record %s: %w", source, err)
	}

	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record %s: %w", source, err)
	}

	return &rec, nil
}

// Encode renders the record as two-space indented JSON.
func (r *Record) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	return data, nil
}

// Save writes the record into dir under its conventional file name and
// returns that name.
func (r *Record) Save(dir, label, folder string) (string, error) {
	data, err := r.Encode()
	if err != nil {
		return "", err
	}

	name := Filename(label, folder, r.Timestamp)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		return "", fmt.Errorf("writing record %s: %w", name, err)
	}

	return name, nil
}

// Filename is the conventional result file name for a run.
func Filename(label, folder string, timestamp int64) string {
	return fmt.Sprintf("result-%s-%s-%d.json", label, folder, timestamp)
}

// SandboxDir is the conventional sandbox directory for a run.
func SandboxDir(sandboxRoot, label, folder string) string {
	return fmt.Sprintf("%s-%s-%s", sandboxRoot, label, folder)
}

// ParseFilename extracts the label, folder and timestamp from a result file name.
// Folder names may contain dashes; the label never does.
func ParseFilename(name string) (label, folder string, timestamp int64, err error) {
	base := filepath.Base(name)

	rest, ok := strings.CutPrefix(base, "result-")
	if !ok {
		return "", "", 0, fmt.Errorf("%w: %s", errBadFilename, base)
	}

	rest, ok = strings.CutSuffix(rest, ".json")
	if !ok {
		return "", "", 0, fmt.Errorf("%w: %s", errBadFilename, base)
	}

	label, rest, ok = strings.Cut(rest, "-")
	if !ok {
		return "", "", 0, fmt.Errorf("%w: %s", errBadFilename, base)
	}

	idx := strings.LastIndex(rest, "-")
	if idx <= 0 {
		return "", "", 0, fmt.Errorf("%w: %s", errBadFilename, base)
	}

	timestamp, err = strconv.ParseInt(rest[idx+1:], 10, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %s", errBadFilename, base)
	}

	return label, rest[:idx], timestamp, nil
}
