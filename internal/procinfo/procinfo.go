// Package procinfo describes the process behind a service PID.
package procinfo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Info is a point-in-time description of a process.
type Info struct {
	PID        int32     `json:"pid"`
	Name       string    `json:"name"`
	Executable string    `json:"executable,omitempty"`
	RSS        uint64    `json:"rss_bytes"`
	StartedAt  time.Time `json:"started_at"`
}

// Uptime is the time since the process started, relative to now.
func (i Info) Uptime(now time.Time) time.Duration {
	if i.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(i.StartedAt).Truncate(time.Second)
}

// ParsePID converts a provider PID string. Empty means no process.
func ParsePID(pid string) (int32, bool) {
	if pid == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(pid, 10, 32)
	if err != nil || n <= 0 {
		return 0, false
	}
	return int32(n), true
}

// Lookup reads details of pid. Fields that cannot be read (e.g. for lack of
// privilege) are left zero; only a missing process is an error.
func Lookup(ctx context.Context, pid int32) (Info, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Info{}, fmt.Errorf("process %d: %w", pid, err)
	}

	info := Info{PID: pid}
	if name, err := p.NameWithContext(ctx); err == nil {
		info.Name = name
	}
	if exe, err := p.ExeWithContext(ctx); err == nil {
		info.Executable = exe
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		info.RSS = mem.RSS
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil && created > 0 {
		info.StartedAt = time.UnixMilli(created)
	}
	return info, nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
