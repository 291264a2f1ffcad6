package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	ksvc "github.com/kardianos/service"

	"github.com/BrainStation-23/serman/internal/logging"
)

// ErrUnsupportedPlatform is returned by NewProvider on hosts without a
// service-control implementation.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Service is one row of a snapshot. PID is empty when no process is running.
type Service struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	PID    string `json:"pid"`
}

// Snapshot is the set of selected services captured at one instant, ordered
// by name.
type Snapshot []Service

// Names returns the service names in snapshot order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s))
	for i, svc := range s {
		names[i] = svc.Name
	}
	return names
}

// Provider queries and mutates OS services by shelling out to the native
// service tools.
//
// Implementations are stateless beyond their Runner and safe for concurrent
// use. StatusOf and PIDOf never fail: an unknown service, a tool that could
// not be launched and an unparsable answer all yield an empty string.
type Provider interface {
	// Name identifies the implementation ("systemd", "windows").
	Name() string

	// Pattern is the selection pattern applied by FilterNames.
	Pattern() Pattern

	// EnumerateRaw returns the unparsed output of the service listing tool.
	EnumerateRaw(ctx context.Context) (string, error)

	// FilterNames extracts the distinct selected names from raw listing output.
	FilterNames(raw string) []string

	// Snapshot enumerates, filters, then queries status and PID per service.
	Snapshot(ctx context.Context) (Snapshot, error)

	// StatusOf returns the tool's status token for name, or "".
	StatusOf(ctx context.Context, name string) string

	// PIDOf returns the main process ID of name, or "" when not running.
	PIDOf(ctx context.Context, name string) string

	// Start, Stop and Restart return the tool output for display. The exit
	// status of the tool is ignored; re-query to learn the outcome.
	Start(ctx context.Context, name string) (string, error)
	Stop(ctx context.Context, name string) (string, error)
	Restart(ctx context.Context, name string) (string, error)
}

// Options configure a Provider.
type Options struct {
	Pattern Pattern
	Timeout time.Duration
	// Runner overrides the subprocess runner; used by tests.
	Runner Runner
}

// NewProvider selects the implementation for the running OS.
func NewProvider(ctx context.Context, opts Options) (Provider, error) {
	return NewProviderFor(ctx, runtime.GOOS, opts)
}

// NewProviderFor selects the implementation for goos. It is the only place
// that branches on the operating system.
func NewProviderFor(ctx context.Context, goos string, opts Options) (Provider, error) {
	runner := opts.Runner
	if runner == nil {
		runner = NewExecRunner(opts.Timeout)
	}

	var p Provider
	switch goos {
	case "linux":
		p = &systemctlProvider{runner: runner, pattern: opts.Pattern}
	case "windows":
		p = &scProvider{runner: runner, pattern: opts.Pattern}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}

	logging.FromContext(ctx).Info().
		Str("provider", p.Name()).
		Str("init_system", ksvc.Platform()).
		Str("pattern", p.Pattern().String()).
		Msg("service provider selected")

	return p, nil
}

// snapshot is the enumeration shared by all providers: one status and one
// PID query per selected name.
func snapshot(ctx context.Context, p Provider) (Snapshot, error) {
	raw, err := p.EnumerateRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate services: %w", err)
	}

	names := p.FilterNames(raw)
	services := make(Snapshot, 0, len(names))
	for _, name := range names {
		services = append(services, Service{
			Name:   name,
			Status: p.StatusOf(ctx, name),
			PID:    p.PIDOf(ctx, name),
		})
	}

	logging.FromContext(ctx).Debug().Int("count", len(services)).Msg("service snapshot taken")
	return services, nil
}
