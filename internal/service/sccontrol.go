package service

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/BrainStation-23/serman/internal/logging"
)

// scProvider manages Windows services with sc, net and tasklist.
type scProvider struct {
	runner  Runner
	pattern Pattern
}

func (p *scProvider) Name() string { return "windows" }

func (p *scProvider) Pattern() Pattern { return p.pattern }

func (p *scProvider) EnumerateRaw(ctx context.Context) (string, error) {
	return p.runner.Run(ctx, "sc", "queryex", "type=service", "state=all")
}

func (p *scProvider) FilterNames(raw string) []string {
	return p.pattern.FilterNames(raw)
}

func (p *scProvider) Snapshot(ctx context.Context) (Snapshot, error) {
	return snapshot(ctx, p)
}

// StatusOf parses the STATE line of sc query, e.g.
// "STATE              : 4  RUNNING" yields "RUNNING".
func (p *scProvider) StatusOf(ctx context.Context, name string) string {
	output, err := p.runner.Run(ctx, "sc", "query", name)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("service", name).Msg("status query failed")
		return ""
	}
	return parseSCState(output)
}

// PIDOf finds name in the services column of tasklist and returns the PID
// column. Stopped services are not listed by tasklist.
func (p *scProvider) PIDOf(ctx context.Context, name string) string {
	output, err := p.runner.Run(ctx, "tasklist", "/svc", "/fo", "csv")
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("service", name).Msg("pid query failed")
		return ""
	}
	return parseTasklistPID(output, name)
}

func (p *scProvider) Start(ctx context.Context, name string) (string, error) {
	output, err := p.runner.Run(ctx, "net", "start", name)
	return strings.TrimSpace(output), err
}

func (p *scProvider) Stop(ctx context.Context, name string) (string, error) {
	output, err := p.runner.Run(ctx, "net", "stop", name)
	return strings.TrimSpace(output), err
}

// Restart is net stop followed by net start. The start is issued even if the
// stop failed so the service converges to running either way.
func (p *scProvider) Restart(ctx context.Context, name string) (string, error) {
	stopOut, stopErr := p.Stop(ctx, name)
	if stopErr != nil {
		logging.FromContext(ctx).Warn().Err(stopErr).Str("service", name).Msg("stop before restart failed")
	}
	startOut, startErr := p.Start(ctx, name)
	output := strings.TrimSpace(stopOut + "\n" + startOut)
	if startErr != nil {
		return output, startErr
	}
	return output, nil
}

func parseSCState(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "STATE") {
			continue
		}
		_, value, ok := strings.Cut(line, ":")
		if !ok {
			return ""
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return ""
		}
		return fields[len(fields)-1]
	}
	return ""
}

func parseTasklistPID(output, name string) string {
	r := csv.NewReader(strings.NewReader(output))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for {
		record, err := r.Read()
		if err == io.EOF {
			return ""
		}
		if err != nil {
			// Skip malformed rows rather than give up on the whole table.
			continue
		}
		if len(record) < 3 {
			continue
		}
		for _, svc := range strings.Split(record[2], ",") {
			if strings.TrimSpace(svc) == name {
				pid := strings.TrimSpace(record[1])
				if pid == "" || pid == "0" || strings.EqualFold(pid, "N/A") {
					return ""
				}
				return pid
			}
		}
	}
}
