// Package notify delivers the rendered comparison report to people: as a pull
// request comment and, optionally, as a Slack message.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Notifier sends the report text somewhere.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, report string) error
}

// Manager sends the report through every configured notifier. Failures are
// logged and never stop the other notifiers.
type Manager struct {
	notifiers []Notifier
	log       logrus.FieldLogger
}

// NewManager creates a notification manager.
func NewManager(log logrus.FieldLogger, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		log:       log.WithField("component", "notify"),
	}
}

// Len returns the number of configured notifiers.
func (m *Manager) Len() int { return len(m.notifiers) }

// Notify sends report through each notifier in order and returns the joined
// failures.
func (m *Manager) Notify(ctx context.Context, report string) error {
	var errs []error

	for _, n := range m.notifiers {
		if err := n.Notify(ctx, report); err != nil {
			m.log.WithError(err).WithField("notifier", n.Name()).Warn("failed to send report")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))

			continue
		}

		m.log.WithField("notifier", n.Name()).Info("report sent")
	}

	return errors.Join(errs...)
}
