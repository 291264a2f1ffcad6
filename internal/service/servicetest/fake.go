// Package servicetest provides an in-memory service.Provider for tests.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BrainStation-23/serman/internal/service"
)

// Provider simulates a host with a fixed set of services. Start assigns a
// fresh PID, Stop clears it. Unknown names report empty status and PID.
type Provider struct {
	mu       sync.Mutex
	services map[string]*unit
	nextPID  int
	calls    []string

	// Gate, when set, blocks every mutation until it yields a value or is closed.
	Gate chan struct{}
	// Fail makes mutations of the named services return the error.
	Fail map[string]error
	// EnumerateErr, when set, fails every enumeration.
	EnumerateErr error
	// OnCall, when set, is invoked for every method call as "verb:name".
	OnCall func(call string)

	inflight    int
	maxInflight int
}

type unit struct {
	running bool
	pid     int
}

// New creates a Provider whose services are all stopped.
func New(names ...string) *Provider {
	p := &Provider{services: make(map[string]*unit), nextPID: 1000}
	for _, name := range names {
		p.services[name] = &unit{}
	}
	return p
}

// Running marks names as running with fresh PIDs.
func (p *Provider) Running(names ...string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range names {
		if u, ok := p.services[name]; ok {
			p.nextPID++
			u.running = true
			u.pid = p.nextPID
		}
	}
	return p
}

// Calls returns the recorded "verb:name" calls in order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// MaxInflight is the highest number of mutations observed running at once.
func (p *Provider) MaxInflight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxInflight
}

func (p *Provider) record(verb, name string) {
	call := verb + ":" + name
	p.mu.Lock()
	p.calls = append(p.calls, call)
	hook := p.OnCall
	p.mu.Unlock()
	if hook != nil {
		hook(call)
	}
}

func (p *Provider) Name() string { return "fake" }

func (p *Provider) Pattern() service.Pattern {
	return service.MustCompilePattern(service.DefaultPattern)
}

// EnumerateRaw renders the services like a unit listing.
func (p *Provider) EnumerateRaw(ctx context.Context) (string, error) {
	p.record("enumerate", "")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.EnumerateErr != nil {
		return "", p.EnumerateErr
	}

	names := make([]string, 0, len(p.services))
	for name := range p.services {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s.service loaded %s\n", name, p.statusLocked(name))
	}
	return b.String(), nil
}

func (p *Provider) FilterNames(raw string) []string {
	return p.Pattern().FilterNames(raw)
}

func (p *Provider) Snapshot(ctx context.Context) (service.Snapshot, error) {
	raw, err := p.EnumerateRaw(ctx)
	if err != nil {
		return nil, err
	}
	var snap service.Snapshot
	for _, name := range p.FilterNames(raw) {
		snap = append(snap, service.Service{Name: name, Status: p.StatusOf(ctx, name), PID: p.PIDOf(ctx, name)})
	}
	return snap, nil
}

func (p *Provider) StatusOf(ctx context.Context, name string) string {
	p.record("status", name)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked(name)
}

func (p *Provider) statusLocked(name string) string {
	u, ok := p.services[name]
	switch {
	case !ok:
		return ""
	case u.running:
		return "active"
	default:
		return "inactive"
	}
}

func (p *Provider) PIDOf(ctx context.Context, name string) string {
	p.record("pid", name)
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.services[name]
	if !ok || !u.running {
		return ""
	}
	return strconv.Itoa(u.pid)
}

func (p *Provider) Start(ctx context.Context, name string) (string, error) {
	return p.mutate("start", name, func(u *unit) {
		if !u.running {
			p.nextPID++
			u.running = true
			u.pid = p.nextPID
		}
	})
}

func (p *Provider) Stop(ctx context.Context, name string) (string, error) {
	return p.mutate("stop", name, func(u *unit) {
		u.running = false
		u.pid = 0
	})
}

func (p *Provider) Restart(ctx context.Context, name string) (string, error) {
	return p.mutate("restart", name, func(u *unit) {
		p.nextPID++
		u.running = true
		u.pid = p.nextPID
	})
}

func (p *Provider) mutate(verb, name string, apply func(*unit)) (string, error) {
	p.record(verb, name)

	p.mu.Lock()
	p.inflight++
	if p.inflight > p.maxInflight {
		p.maxInflight = p.inflight
	}
	gate := p.Gate
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--

	if err := p.Fail[name]; err != nil {
		return "", err
	}
	u, ok := p.services[name]
	if !ok {
		return fmt.Sprintf("Failed to %s %s.service: Unit %s.service not found.", verb, name, name), nil
	}
	apply(u)
	return "", nil
}

var _ service.Provider = (*Provider)(nil)
