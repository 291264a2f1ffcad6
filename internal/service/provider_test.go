package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/BrainStation-23/serman/internal/service/mocks"
)

func TestNewProviderFor(t *testing.T) {
	ctx := context.Background()
	runner := mocks.NewMockRunner(gomock.NewController(t))

	tests := []struct {
		goos     string
		wantName string
		wantErr  error
	}{
		{"linux", "systemd", nil},
		{"windows", "windows", nil},
		{"darwin", "", ErrUnsupportedPlatform},
		{"plan9", "", ErrUnsupportedPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			p, err := NewProviderFor(ctx, tt.goos, Options{Pattern: MustCompilePattern(DefaultPattern), Runner: runner})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, DefaultPattern, p.Pattern().String())
		})
	}
}

func TestSnapshot_QueriesEachMatchedService(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	p, err := NewProviderFor(ctx, "linux", Options{Pattern: MustCompilePattern(DefaultPattern), Runner: runner})
	require.NoError(t, err)

	runner.EXPECT().Run(gomock.Any(), "systemctl", "list-units", "--type=service", "--all").Return(systemctlListing, nil)
	runner.EXPECT().Run(gomock.Any(), "systemctl", "is-active", "S42").Return("active\n", nil)
	runner.EXPECT().Run(gomock.Any(), "systemctl", "show", "-p", "MainPID", "--value", "S42").Return("4242\n", nil)
	runner.EXPECT().Run(gomock.Any(), "systemctl", "is-active", "S7").Return("inactive\n", nil)
	runner.EXPECT().Run(gomock.Any(), "systemctl", "show", "-p", "LoadState", "--value", "S7").Return("loaded\n", nil)
	runner.EXPECT().Run(gomock.Any(), "systemctl", "show", "-p", "MainPID", "--value", "S7").Return("0\n", nil)

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		{Name: "S42", Status: "active", PID: "4242"},
		{Name: "S7", Status: "inactive", PID: ""},
	}, snap)
	assert.Equal(t, []string{"S42", "S7"}, snap.Names())
}

func TestSnapshot_EnumerationFailure(t *testing.T) {
	ctx := context.Background()
	runner := mocks.NewMockRunner(gomock.NewController(t))

	p, err := NewProviderFor(ctx, "windows", Options{Runner: runner})
	require.NoError(t, err)

	runner.EXPECT().Run(gomock.Any(), "sc", "queryex", "type=service", "state=all").Return("", ErrTimeout)

	snap, err := p.Snapshot(ctx)
	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, ErrTimeout))
}
