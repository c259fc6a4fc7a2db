// Package lineagestore mirrors lineage bindings to Redis for external
// observability (dashboards, debugging sessions attaching from outside the
// process). It is purely observational: nothing in this runtime persists
// context across restarts, so nothing in this package is ever read back
// to reconstruct process state — only SETs, never authoritative GETs.
package lineagestore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/oriys/ctxguard/internal/logging"
)

// Config holds the Redis mirror's connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	KeyName  string // hash key holding lineage -> task id mappings
}

// Mirror writes lineage bindings to a Redis hash on a best-effort basis.
// A Mirror with a nil client is a valid no-op, so callers can construct
// one unconditionally and only skip wiring it when config.Enabled is
// false.
type Mirror struct {
	client  *redis.Client
	keyName string
}

// New connects a Mirror to the Redis instance described by cfg. The
// connection is lazy: redis.NewClient never blocks, so a Mirror can be
// constructed even if Redis is temporarily unreachable.
func New(cfg Config) *Mirror {
	keyName := cfg.KeyName
	if keyName == "" {
		keyName = "ctxguard:lineages"
	}
	return &Mirror{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		keyName: keyName,
	}
}

// RecordBinding mirrors a task's lineage binding. Errors are logged, not
// returned: a mirror write failing must never affect the authoritative
// in-process registry it shadows.
func (m *Mirror) RecordBinding(ctx context.Context, taskID uint32, lineage string) {
	if m == nil || m.client == nil {
		return
	}
	field := fmt.Sprintf("%d", taskID)
	if err := m.client.HSet(ctx, m.keyName, field, lineage).Err(); err != nil {
		logging.Op().Warn("lineage mirror write failed", "task_id", taskID, "lineage", lineage, "error", err)
	}
}

// RemoveLineage removes every field on the mirrored hash bound to lineage.
// Best-effort, like RecordBinding: it scans the hash rather than keeping a
// reverse index, since this path only runs on end_promise and the hash is
// expected to stay small relative to a single process's lifetime.
func (m *Mirror) RemoveLineage(ctx context.Context, lineage string) {
	if m == nil || m.client == nil {
		return
	}
	all, err := m.client.HGetAll(ctx, m.keyName).Result()
	if err != nil {
		logging.Op().Warn("lineage mirror scan failed", "lineage", lineage, "error", err)
		return
	}
	var toRemove []string
	for field, val := range all {
		if val == lineage {
			toRemove = append(toRemove, field)
		}
	}
	if len(toRemove) == 0 {
		return
	}
	if err := m.client.HDel(ctx, m.keyName, toRemove...).Err(); err != nil {
		logging.Op().Warn("lineage mirror delete failed", "lineage", lineage, "error", err)
	}
}

// Ping checks Redis reachability with a short timeout, for health-check
// wiring in cmd/fileguard.
func (m *Mirror) Ping(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return m.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (m *Mirror) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}
