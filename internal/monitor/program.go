package monitor

import (
	"context"
	"fmt"
	"sync"

	ksvc "github.com/kardianos/service"

	"github.com/BrainStation-23/serman/internal/logging"
)

// ServiceName is the name the monitor registers with the OS service manager.
const ServiceName = "serman-monitor"

// program implements the service.Interface
type program struct {
	monitor *Monitor
	ctx     context.Context

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start is called when the service starts. It must not block.
func (p *program) Start(s ksvc.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithCancel(p.ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		if err := p.monitor.Run(ctx); err != nil {
			logging.FromContext(ctx).Error().Err(err).Msg("monitor exited")
		}
	}()
	return nil
}

// Stop is called when the service stops; it waits for the loop to exit.
func (p *program) Stop(s ksvc.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// NewService wraps m as an OS service. args are passed to the installed
// binary when the service manager launches it.
func NewService(ctx context.Context, m *Monitor, args []string) (ksvc.Service, error) {
	svcConfig := &ksvc.Config{
		Name:        ServiceName,
		DisplayName: "SerMan Monitor",
		Description: "Logs status and PID transitions of selected services",
		Arguments:   args,
	}

	s, err := ksvc.New(&program{monitor: m, ctx: ctx}, svcConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor service: %w", err)
	}
	return s, nil
}

// Control applies one of install, uninstall, start, stop or restart.
func Control(s ksvc.Service, action string) error {
	if !isControlAction(action) {
		return fmt.Errorf("unknown monitor action %q (valid: %v)", action, ksvc.ControlAction)
	}
	if err := ksvc.Control(s, action); err != nil {
		return fmt.Errorf("failed to %s monitor service: %w", action, err)
	}
	return nil
}

func isControlAction(action string) bool {
	for _, a := range ksvc.ControlAction {
		if a == action {
			return true
		}
	}
	return false
}
