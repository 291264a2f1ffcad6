package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrainStation-23/serman/internal/service/servicetest"
)

func TestMonitor_TickReportsTransitions(t *testing.T) {
	ctx := context.Background()
	p := servicetest.New("S1", "S2")
	m := New(p, time.Second)

	changes, err := m.Tick(ctx)
	require.NoError(t, err)
	assert.Len(t, changes, 2, "first tick reports every service")

	changes, err = m.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)

	_, err = p.Start(ctx, "S2")
	require.NoError(t, err)

	changes, err = m.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "S2", changes[0].Current.Name)
	assert.Equal(t, "inactive", changes[0].Previous.Status)
	assert.Equal(t, "active", changes[0].Current.Status)
	assert.NotEmpty(t, changes[0].Current.PID)
	assert.False(t, changes[0].Gone)
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	p := servicetest.New("S1")
	m := New(p, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Contains(t, p.Calls(), "enumerate:")
}

func TestProgram_StartStop(t *testing.T) {
	p := servicetest.New("S1")
	prg := &program{monitor: New(p, 10*time.Millisecond), ctx: context.Background()}

	require.NoError(t, prg.Start(nil))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, prg.Stop(nil))

	assert.NotEmpty(t, p.Calls())
}

func TestProgram_StopWithoutStart(t *testing.T) {
	prg := &program{monitor: New(servicetest.New(), time.Second), ctx: context.Background()}
	assert.NoError(t, prg.Stop(nil))
}

func TestIsControlAction(t *testing.T) {
	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		assert.True(t, isControlAction(action), action)
	}
	assert.False(t, isControlAction("run"))
}
