// Package monitor periodically snapshots the selected services and logs
// every status or PID transition. It keeps no state across restarts.
package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/BrainStation-23/serman/internal/logging"
	"github.com/BrainStation-23/serman/internal/service"
)

// Change is a transition observed between two ticks. Previous is the zero
// Service on the first observation of a name; Gone is set when a service
// stopped matching the selection pattern.
type Change struct {
	Previous service.Service
	Current  service.Service
	Gone     bool
}

// Monitor watches one provider.
type Monitor struct {
	provider service.Provider
	interval time.Duration
	last     map[string]service.Service
}

// New creates a Monitor that polls p every interval.
func New(p service.Provider, interval time.Duration) *Monitor {
	return &Monitor{
		provider: p,
		interval: interval,
	}
}

// Tick takes one snapshot and returns the changes since the previous tick.
// On the first tick every service is reported.
func (m *Monitor) Tick(ctx context.Context) ([]Change, error) {
	log := logging.FromContext(ctx)

	snap, err := m.provider.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	current := make(map[string]service.Service, len(snap))
	var changes []Change
	for _, svc := range snap {
		current[svc.Name] = svc
		prev, seen := m.last[svc.Name]
		if seen && prev == svc {
			continue
		}
		changes = append(changes, Change{Previous: prev, Current: svc})
	}
	for _, name := range sortedNames(m.last) {
		if _, still := current[name]; !still {
			changes = append(changes, Change{Previous: m.last[name], Current: service.Service{Name: name}, Gone: true})
		}
	}
	m.last = current

	for _, c := range changes {
		event := log.Info().
			Str("service", c.Current.Name).
			Str("status", c.Current.Status).
			Str("pid", c.Current.PID)
		if c.Previous.Name != "" {
			event = event.Str("prev_status", c.Previous.Status).Str("prev_pid", c.Previous.PID)
		}
		if c.Gone {
			event.Msg("service no longer selected")
			continue
		}
		event.Msg("service state changed")
	}
	return changes, nil
}

// Run ticks until ctx is cancelled. Snapshot failures are logged and the
// next tick is attempted as usual.
func (m *Monitor) Run(ctx context.Context) error {
	ctx = logging.WithComponent(ctx, "monitor")
	log := logging.FromContext(ctx)
	log.Info().Dur("interval", m.interval).Str("provider", m.provider.Name()).Msg("monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if _, err := m.Tick(ctx); err != nil {
			log.Error().Err(err).Msg("monitor tick failed")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func sortedNames(m map[string]service.Service) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
