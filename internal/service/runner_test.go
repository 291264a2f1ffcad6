//go:build !windows

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Run(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		cmd        string
		args       []string
		wantOutput string
		wantErr    error
		wantAnyErr bool
	}{
		{
			name:       "success returns stdout only",
			timeout:    5 * time.Second,
			cmd:        "sh",
			args:       []string{"-c", "echo out; echo noise >&2"},
			wantOutput: "out\n",
		},
		{
			name:       "non-zero exit is not an error",
			timeout:    5 * time.Second,
			cmd:        "sh",
			args:       []string{"-c", "echo out; exit 3"},
			wantOutput: "out\n",
		},
		{
			name:    "deadline exceeded",
			timeout: 50 * time.Millisecond,
			cmd:     "sleep",
			args:    []string{"5"},
			wantErr: ErrTimeout,
		},
		{
			name:       "missing binary",
			timeout:    5 * time.Second,
			cmd:        "serman-no-such-tool",
			wantAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewExecRunner(tt.timeout)

			started := time.Now()
			out, err := r.Run(context.Background(), tt.cmd, tt.args...)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantAnyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrTimeout)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantOutput, out)
			}
			assert.Less(t, time.Since(started), 4*time.Second)
		})
	}
}

func TestExecRunner_TimeoutWithChildHoldingPipe(t *testing.T) {
	r := NewExecRunner(50 * time.Millisecond)

	started := time.Now()
	_, err := r.Run(context.Background(), "sh", "-c", "sleep 5 & sleep 5")

	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(started), 4*time.Second)
}
