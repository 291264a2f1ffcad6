package service

import (
	"context"
	"strings"

	"github.com/BrainStation-23/serman/internal/logging"
)

// systemctlProvider manages systemd units through systemctl.
type systemctlProvider struct {
	runner  Runner
	pattern Pattern
}

func (p *systemctlProvider) Name() string { return "systemd" }

func (p *systemctlProvider) Pattern() Pattern { return p.pattern }

// EnumerateRaw lists all service units, loaded or not.
func (p *systemctlProvider) EnumerateRaw(ctx context.Context) (string, error) {
	return p.runner.Run(ctx, "systemctl", "list-units", "--type=service", "--all")
}

func (p *systemctlProvider) FilterNames(raw string) []string {
	return p.pattern.FilterNames(raw)
}

func (p *systemctlProvider) Snapshot(ctx context.Context) (Snapshot, error) {
	return snapshot(ctx, p)
}

// StatusOf returns the is-active token (active, inactive, failed, ...), or
// "" for a unit systemd does not know. is-active reports such units as
// inactive, so that token is confirmed against LoadState.
func (p *systemctlProvider) StatusOf(ctx context.Context, name string) string {
	output, err := p.runner.Run(ctx, "systemctl", "is-active", name)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("service", name).Msg("status query failed")
		return ""
	}

	status := strings.TrimSpace(output)
	if status == "inactive" && !p.loaded(ctx, name) {
		return ""
	}
	return status
}

// loaded reports whether systemd has a unit file for name.
func (p *systemctlProvider) loaded(ctx context.Context, name string) bool {
	output, err := p.runner.Run(ctx, "systemctl", "show", "-p", "LoadState", "--value", name)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("service", name).Msg("load state query failed")
		return true
	}
	return strings.TrimSpace(output) != "not-found"
}

// PIDOf reads MainPID. systemd reports 0 for units without a process.
func (p *systemctlProvider) PIDOf(ctx context.Context, name string) string {
	output, err := p.runner.Run(ctx, "systemctl", "show", "-p", "MainPID", "--value", name)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("service", name).Msg("pid query failed")
		return ""
	}
	return parseMainPID(output)
}

func (p *systemctlProvider) Start(ctx context.Context, name string) (string, error) {
	return p.mutate(ctx, "start", name)
}

func (p *systemctlProvider) Stop(ctx context.Context, name string) (string, error) {
	return p.mutate(ctx, "stop", name)
}

// Restart uses systemctl's native restart.
func (p *systemctlProvider) Restart(ctx context.Context, name string) (string, error) {
	return p.mutate(ctx, "restart", name)
}

func (p *systemctlProvider) mutate(ctx context.Context, verb, name string) (string, error) {
	output, err := p.runner.Run(ctx, "systemctl", verb, name)
	return strings.TrimSpace(output), err
}

func parseMainPID(output string) string {
	pid := strings.TrimSpace(output)
	if pid == "0" {
		return ""
	}
	for _, r := range pid {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return pid
}
