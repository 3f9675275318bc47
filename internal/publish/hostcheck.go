package publish

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrHostNotAllowed is returned when the ClickHouse server is not one of the
// configured safe hostnames.
var ErrHostNotAllowed = errors.New("refusing to write to non-allowlisted ClickHouse host")

// HostGuard checks the server behind a ClickHouse connection against an
// allowlist before the history sink migrates or writes to it. An empty
// allowlist allows every host.
type HostGuard struct {
	allowed []string
	log     logrus.FieldLogger
}

// NewHostGuard creates a guard for the given hostnames.
func NewHostGuard(log logrus.FieldLogger, allowed []string) *HostGuard {
	return &HostGuard{
		allowed: allowed,
		log:     log.WithField("component", "clickhouse_host_guard"),
	}
}

// Check asks the server for its hostname and verifies it.
func (g *HostGuard) Check(ctx context.Context, db *sql.DB) error {
	if len(g.allowed) == 0 {
		return nil
	}

	var hostname string
	if err := db.QueryRowContext(ctx, "SELECT hostName()").Scan(&hostname); err != nil {
		return fmt.Errorf("failed to query ClickHouse hostname: %w", err)
	}

	if err := g.Allow(hostname); err != nil {
		return err
	}

	g.log.WithField("hostname", strings.TrimSpace(hostname)).Debug("ClickHouse host allowed")

	return nil
}

// Allow verifies a hostname reported by the server.
func (g *HostGuard) Allow(hostname string) error {
	if len(g.allowed) == 0 {
		return nil
	}

	hostname = strings.TrimSpace(hostname)
	if slices.Contains(g.allowed, hostname) {
		return nil
	}

	return fmt.Errorf("%w: %q (allowed: %s)", ErrHostNotAllowed, hostname, strings.Join(g.allowed, ", "))
}
