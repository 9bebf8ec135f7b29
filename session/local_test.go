package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShell(t *testing.T) *Local {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	s := NewLocal(func(o *Options) { o.Shell = "/bin/sh" })
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func quickDetector() *Detector {
	return &Detector{PollInterval: 10 * time.Millisecond, IdleWithOutput: 10, IdleWithoutOutput: 30}
}

func TestLocal_SendBeforeConnect(t *testing.T) {
	s := NewLocal()
	assert.ErrorIs(t, s.Send("echo hi"), ErrNotConnected)
	assert.ErrorIs(t, s.Err(), ErrNotConnected)
	assert.NoError(t, s.Close())
}

func TestLocal_RunsCommandsAndTracksCursor(t *testing.T) {
	s := newShell(t)
	ctx := context.Background()

	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Connect(ctx), "connect must be idempotent")

	require.NoError(t, s.Send("echo first"))
	out, err := quickDetector().Drain(ctx, s, DrainOptions{})
	require.NoError(t, err)
	assert.Equal(t, "first\n", out)

	require.NoError(t, s.Send("echo second 1>&2"))
	out, err = quickDetector().Drain(ctx, s, DrainOptions{})
	require.NoError(t, err)
	assert.Equal(t, "second\n", out)

	full, partial := s.ReadOutput()
	assert.Equal(t, "first\nsecond\n", full)
	assert.Empty(t, partial)
}

func TestLocal_SilentCommandYieldsEmptyOutput(t *testing.T) {
	s := newShell(t)
	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))

	require.NoError(t, s.Send("true"))
	out, err := quickDetector().Drain(ctx, s, DrainOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLocal_ExitedProcessIsNotUsable(t *testing.T) {
	s := newShell(t)
	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))

	require.NoError(t, s.Send("exit 3"))
	_, err := quickDetector().Drain(ctx, s, DrainOptions{})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Send("echo again"), ErrSessionClosed)
}

func TestLocal_CloseIsIdempotent(t *testing.T) {
	s := newShell(t)
	require.NoError(t, s.Connect(context.Background()))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send("echo hi"), ErrSessionClosed)
}
