// Package health implements dependency probes for the readiness endpoint.
package health

import (
	"context"
	"database/sql"
	"time"
)

// probeTimeout bounds a single dependency probe so a wedged dependency
// cannot stall the readiness endpoint.
const probeTimeout = 2 * time.Second

// DBChecker probes the events database.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a checker for the given connection pool.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database, bounded by the probe timeout.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return c.db.PingContext(ctx)
}
