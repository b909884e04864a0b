package alert

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBellPlayer_RingsUntilStopped(t *testing.T) {
	var out syncBuffer
	p := &BellPlayer{W: &out, Interval: 5 * time.Millisecond}

	stop, err := p.Start(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Count(out.String(), "\a") >= 3 }, time.Second, time.Millisecond)

	stop()
	n := strings.Count(out.String(), "\a")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, strings.Count(out.String(), "\a"), "no bells after stop")
	stop()
}

func TestBellPlayer_NoWriter(t *testing.T) {
	_, err := (&BellPlayer{}).Start(context.Background())
	assert.ErrorIs(t, err, ErrNoPlayer)
}

func TestCommandPlayer_MissingBinary(t *testing.T) {
	p := NewCommandPlayer("definitely-not-a-player --loop", nil)
	p.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	_, err := p.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definitely-not-a-player")
}

func TestCommandPlayer_EmptyCommand(t *testing.T) {
	_, err := NewCommandPlayer("   ", nil).Start(context.Background())
	assert.ErrorIs(t, err, ErrNoPlayer)
}

func TestFallbackPlayer_UsesFirstWorkingBackend(t *testing.T) {
	broken := &fakeModality{failErr: errors.New("no device")}
	working := &fakeModality{}
	p := NewFallbackPlayer(nil, broken, nil, working)

	stop, err := p.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), working.starts.Load())
	stop()
	assert.Equal(t, int32(1), working.stops.Load())
}

func TestFallbackPlayer_AllFail(t *testing.T) {
	p := NewFallbackPlayer(nil, &fakeModality{failErr: errors.New("a")}, &fakeModality{failErr: errors.New("b")})

	_, err := p.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoPlayer)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}
