// Package metrics collects per-run timings and outcomes for the console summary.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FolderMetric captures how one test folder went.
type FolderMetric struct {
	Folder string
	// Passed is true when both records were captured and compared.
	Passed bool
	// Latest and Candidate are the workload wall-clock times.
	Latest       time.Duration
	Candidate    time.Duration
	Duration     time.Duration
	HasLoadTest  bool
	ErrorMessage string // empty if passed
	Timestamp    time.Time
}

// PublishMetric captures one publish of one record.
type PublishMetric struct {
	Label    string
	Folder   string
	Failed   bool
	Duration time.Duration
}

// SummaryMetric provides aggregate statistics across the run.
type SummaryMetric struct {
	TotalDuration   time.Duration
	TotalFolders    int
	PassedFolders   int
	FailedFolders   int
	LoadTestFolders int
	Published       int
	PublishFailures int
}

// Collector interface for metrics collection
type Collector interface {
	Start(ctx context.Context) error
	Stop() error
	RecordFolder(metric *FolderMetric)
	RecordPublish(metric PublishMetric)
	GetFolderMetrics() []FolderMetric
	GetPublishMetrics() []PublishMetric
	GetSummary() SummaryMetric
}

type collector struct {
	log            logrus.FieldLogger
	mu             sync.RWMutex
	folderMetrics  []FolderMetric
	publishMetrics []PublishMetric
	startTime      time.Time
	stopTime       time.Time
}

// NewCollector creates a new metrics collector
func NewCollector(log logrus.FieldLogger) Collector {
	return &collector{
		log:            log.WithField("component", "metrics_collector"),
		folderMetrics:  make([]FolderMetric, 0, 16),
		publishMetrics: make([]PublishMetric, 0, 32),
	}
}

func (c *collector) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.stopTime = time.Time{}

	c.log.Debug("metrics collector started")

	return nil
}

func (c *collector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTime = time.Now()

	c.log.Debug("metrics collector stopped")

	return nil
}

func (c *collector) RecordFolder(metric *FolderMetric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.folderMetrics = append(c.folderMetrics, *metric)
}

func (c *collector) RecordPublish(metric PublishMetric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishMetrics = append(c.publishMetrics, metric)
}

func (c *collector) GetFolderMetrics() []FolderMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]FolderMetric, len(c.folderMetrics))
	copy(result, c.folderMetrics)

	return result
}

func (c *collector) GetPublishMetrics() []PublishMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]PublishMetric, len(c.publishMetrics))
	copy(result, c.publishMetrics)

	return result
}

func (c *collector) GetSummary() SummaryMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total time.Duration
	switch {
	case c.startTime.IsZero():
	case c.stopTime.IsZero():
		total = time.Since(c.startTime)
	default:
		total = c.stopTime.Sub(c.startTime)
	}

	summary := SummaryMetric{
		TotalDuration: total,
		TotalFolders:  len(c.folderMetrics),
	}

	for _, fm := range c.folderMetrics {
		if fm.Passed {
			summary.PassedFolders++
		} else {
			summary.FailedFolders++
		}

		if fm.HasLoadTest {
			summary.LoadTestFolders++
		}
	}

	for _, pm := range c.publishMetrics {
		if pm.Failed {
			summary.PublishFailures++
		} else {
			summary.Published++
		}
	}

	return summary
}

// Compile-time interface compliance check
var _ Collector = (*collector)(nil)
