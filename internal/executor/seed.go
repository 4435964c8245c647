package executor

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const seedSchema = `
CREATE TABLE IF NOT EXISTS requests (
	timestamp   TEXT    NOT NULL,
	endpoint    TEXT    NOT NULL,
	status_code INTEGER NOT NULL,
	duration_ms REAL    NOT NULL,
	region      TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS errors (
	timestamp TEXT NOT NULL,
	service   TEXT NOT NULL,
	severity  TEXT NOT NULL,
	message   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS resource_usage (
	timestamp   TEXT NOT NULL,
	host        TEXT NOT NULL,
	cpu_percent REAL NOT NULL,
	memory_mb   REAL NOT NULL
);
`

var seedEndpoints = []string{"/api/orders", "/api/users", "/api/search", "/api/checkout", "/healthz"}
var seedRegions = []string{"westus", "eastus", "northeurope"}
var seedServices = []string{"orders", "billing", "search", "gateway"}
var seedSeverities = []string{"warning", "error", "critical"}
var seedHosts = []string{"web-01", "web-02", "worker-01"}

// Seed populates the store with a deterministic synthetic telemetry
// workload covering the last 24 hours. Existing rows are kept; callers
// who want a fresh dataset should start from an empty file.
func (l *Local) Seed(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, seedSchema); err != nil {
		return fmt.Errorf("failed to create seed tables: %w", err)
	}

	var count int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM requests").Scan(&count); err != nil {
		return fmt.Errorf("failed to inspect seed state: %w", err)
	}
	if count > 0 {
		l.log.Debug("seed skipped: requests already has %d rows", count)
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	// Fixed seed keeps demo queries reproducible across runs.
	rng := rand.New(rand.NewSource(42))
	base := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Minute)

	for i := 0; i < 1440; i++ {
		ts := base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		endpoint := seedEndpoints[rng.Intn(len(seedEndpoints))]
		status := 200
		switch r := rng.Float64(); {
		case r < 0.03:
			status = 500
		case r < 0.08:
			status = 404
		}
		duration := 40 + rng.Float64()*160
		if status == 500 {
			duration += 800
		}
		region := seedRegions[rng.Intn(len(seedRegions))]
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO requests (timestamp, endpoint, status_code, duration_ms, region) VALUES (?, ?, ?, ?, ?)",
			ts, endpoint, status, duration, region); err != nil {
			return fmt.Errorf("failed to seed requests: %w", err)
		}

		if status == 500 {
			svc := seedServices[rng.Intn(len(seedServices))]
			sev := seedSeverities[rng.Intn(len(seedSeverities))]
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO errors (timestamp, service, severity, message) VALUES (?, ?, ?, ?)",
				ts, svc, sev, fmt.Sprintf("upstream call failed for %s", endpoint)); err != nil {
				return fmt.Errorf("failed to seed errors: %w", err)
			}
		}

		if i%5 == 0 {
			for _, host := range seedHosts {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO resource_usage (timestamp, host, cpu_percent, memory_mb) VALUES (?, ?, ?, ?)",
					ts, host, 20+rng.Float64()*60, 512+rng.Float64()*1024); err != nil {
					return fmt.Errorf("failed to seed resource_usage: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	l.log.Info("seeded demo telemetry into %s", l.path)
	return nil
}
