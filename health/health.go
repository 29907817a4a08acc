// Package health checks that a repository can serve content: the canonical
// backend answers, and every provider is bound to the store.
//
// Checks return a Status; Combine folds several into one, where any
// unhealthy check makes the result unhealthy and any degraded one makes it
// degraded.
//
//	overall := health.Combine(
//	    health.BackendCheck(ctx, backend),
//	    health.ProvidersCheck(repo.Registry().Providers()),
//	)
//	if overall.IsUnhealthy() {
//	    logger.Error("repository unhealthy", "message", overall.Message, "details", overall.Details)
//	}
package health

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/zero-day-ai/dataprovider/provider"
	"github.com/zero-day-ai/dataprovider/store"
)

// DefaultTimeout bounds BackendCheck when ctx carries no deadline.
const DefaultTimeout = 5 * time.Second

// BackendCheck reads the root node of b.
func BackendCheck(ctx context.Context, b store.Backend) Status {
	if b == nil {
		return Unhealthy("no backend configured", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	start := time.Now()
	root, err := b.Root(ctx)
	if err != nil {
		return Unhealthy("backend root unavailable", map[string]any{"error": err.Error()})
	}
	state, err := b.Node(ctx, root)
	if err != nil {
		return Unhealthy("backend root node unreadable", map[string]any{
			"root":  root.String(),
			"error": err.Error(),
		})
	}

	return Status{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("backend root %s readable", root),
		Details: map[string]any{
			"root_type": state.NodeType.String(),
			"latency":   time.Since(start).String(),
		},
	}
}

// ProvidersCheck reports providers that were never initialized. A
// repository without providers serves canonical content only and is
// reported as degraded.
func ProvidersCheck(providers []provider.Provider) Status {
	if len(providers) == 0 {
		return Degraded("no providers registered", nil)
	}

	var names, unbound []string
	for _, p := range providers {
		names = append(names, p.Name())
		if p.Store() == nil {
			unbound = append(unbound, p.Name())
		}
	}
	slices.Sort(names)

	if len(unbound) > 0 {
		slices.Sort(unbound)
		return Unhealthy(fmt.Sprintf("%d provider(s) not initialized", len(unbound)), map[string]any{
			"providers":     names,
			"uninitialized": unbound,
		})
	}
	return Status{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d provider(s) initialized", len(providers)),
		Details: map[string]any{"providers": names},
	}
}

// Combine aggregates checks. Without checks the result is healthy.
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthy, degraded []string
	var healthyCount int

	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthy = append(unhealthy, msg)
		case StatusDegraded:
			degraded = append(degraded, msg)
		case StatusHealthy:
			healthyCount++
		}
	}

	if len(unhealthy) > 0 {
		return Unhealthy(fmt.Sprintf("%d check(s) failed", len(unhealthy)), map[string]any{
			"total":         len(checks),
			"unhealthy":     len(unhealthy),
			"degraded":      len(degraded),
			"healthy":       healthyCount,
			"failed_checks": unhealthy,
		})
	}
	if len(degraded) > 0 {
		return Degraded(fmt.Sprintf("%d check(s) degraded", len(degraded)), map[string]any{
			"total":           len(checks),
			"degraded":        len(degraded),
			"healthy":         healthyCount,
			"degraded_checks": degraded,
		})
	}
	return Healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
