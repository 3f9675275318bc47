// Package publish ships persisted records to external sinks. Publishing never
// decides the outcome of a run: every failure is reported to the caller, which
// logs it and moves on.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/expressjs/perf-runner/internal/record"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Artifact is one persisted record and where it came from.
type Artifact struct {
	Record *record.Record
	Label  string
	Folder string
	// Path is the record file on disk.
	Path  string
	RunID string
}

// Publisher sends an artifact somewhere.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, a Artifact) error
}

// Closer is implemented by publishers holding connections.
type Closer interface {
	Close() error
}

// Multi fans an artifact out to several publishers concurrently.
type Multi struct {
	publishers []Publisher
	log        logrus.FieldLogger
}

var _ Publisher = (*Multi)(nil)

// NewMulti creates a fan-out publisher.
func NewMulti(log logrus.FieldLogger, publishers ...Publisher) *Multi {
	return &Multi{
		publishers: publishers,
		log:        log.WithField("component", "publisher"),
	}
}

// Name implements Publisher.
func (m *Multi) Name() string { return "multi" }

// Len returns the number of configured publishers.
func (m *Multi) Len() int { return len(m.publishers) }

// Names lists the configured publishers.
func (m *Multi) Names() []string {
	names := make([]string, 0, len(m.publishers))
	for _, p := range m.publishers {
		names = append(names, p.Name())
	}

	return names
}

// Publish runs every publisher. One failing publisher does not stop the
// others; all failures are logged and returned joined.
func (m *Multi) Publish(ctx context.Context, a Artifact) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	// Plain Group: a failure must not cancel the siblings.
	var g errgroup.Group

	for _, p := range m.publishers {
		g.Go(func() error {
			if err := p.Publish(ctx, a); err != nil {
				m.log.WithError(err).WithFields(logrus.Fields{
					"publisher": p.Name(),
					"label":     a.Label,
					"folder":    a.Folder,
				}).Warn("failed to publish result")

				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
				mu.Unlock()

				return nil
			}

			m.log.WithFields(logrus.Fields{
				"publisher": p.Name(),
				"label":     a.Label,
				"folder":    a.Folder,
			}).Debug("published result")

			return nil
		})
	}

	_ = g.Wait()

	return errors.Join(errs...)
}

// Close releases every publisher that holds resources.
func (m *Multi) Close() error {
	var errs []error

	for _, p := range m.publishers {
		if c, ok := p.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", p.Name(), err))
			}
		}
	}

	return errors.Join(errs...)
}
