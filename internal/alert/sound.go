package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Player starts looped sound playback. The returned stop func ends
// playback and releases the device; playback also ends when ctx is done.
type Player interface {
	Start(ctx context.Context) (stop func(), err error)
}

// ErrNoPlayer is returned when no sound backend could start.
var ErrNoPlayer = errors.New("no sound backend available")

// loop runs fn repeatedly in a goroutine until ctx is done or stop is
// called, pausing gap between runs. stop waits for the goroutine.
func loop(ctx context.Context, gap time.Duration, fn func(ctx context.Context)) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			fn(ctx)
			select {
			case <-ctx.Done():
				return
			case <-time.After(gap):
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

// CommandPlayer loops an external audio command such as
// "paplay /usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga".
type CommandPlayer struct {
	Command []string
	Gap     time.Duration
	Logger  *slog.Logger

	lookPath func(string) (string, error)
}

// NewCommandPlayer splits a command line on spaces.
func NewCommandPlayer(commandLine string, logger *slog.Logger) *CommandPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandPlayer{
		Command:  strings.Fields(commandLine),
		Gap:      200 * time.Millisecond,
		Logger:   logger,
		lookPath: exec.LookPath,
	}
}

func (p *CommandPlayer) Start(ctx context.Context) (func(), error) {
	if len(p.Command) == 0 {
		return nil, fmt.Errorf("sound command: %w", ErrNoPlayer)
	}
	bin, err := p.lookPath(p.Command[0])
	if err != nil {
		return nil, fmt.Errorf("sound command %q: %w", p.Command[0], err)
	}
	args := p.Command[1:]
	return loop(ctx, p.Gap, func(ctx context.Context) {
		cmd := exec.CommandContext(ctx, bin, args...)
		if err := cmd.Run(); err != nil && ctx.Err() == nil {
			p.Logger.Debug("sound command exited", "command", bin, "error", err)
		}
	}), nil
}

// BellPlayer rings the terminal bell at a fixed interval.
type BellPlayer struct {
	W        io.Writer
	Interval time.Duration
}

func NewBellPlayer(w io.Writer) *BellPlayer {
	return &BellPlayer{W: w, Interval: time.Second}
}

func (p *BellPlayer) Start(ctx context.Context) (func(), error) {
	if p.W == nil {
		return nil, fmt.Errorf("bell: %w", ErrNoPlayer)
	}
	return loop(ctx, p.Interval, func(context.Context) {
		_, _ = io.WriteString(p.W, "\a")
	}), nil
}

// FallbackPlayer starts the first backend that works.
type FallbackPlayer struct {
	Players []Player
	Logger  *slog.Logger
}

func NewFallbackPlayer(logger *slog.Logger, players ...Player) *FallbackPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackPlayer{Players: players, Logger: logger}
}

func (p *FallbackPlayer) Start(ctx context.Context) (func(), error) {
	var errs []error
	for i, pl := range p.Players {
		if pl == nil {
			continue
		}
		stop, err := pl.Start(ctx)
		if err == nil {
			return stop, nil
		}
		p.Logger.Warn("sound backend failed, trying next", "backend", i, "error", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(append([]error{ErrNoPlayer}, errs...)...)
}
