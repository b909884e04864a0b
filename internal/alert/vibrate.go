package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultPattern is the vibration waveform: no delay, 700ms on, 300ms off,
// repeated from the start.
var DefaultPattern = []time.Duration{0, 700 * time.Millisecond, 300 * time.Millisecond}

// Vibrator starts a repeating vibration. The stop func turns the motor
// off and waits for the pattern goroutine to exit.
type Vibrator interface {
	Start(ctx context.Context) (stop func(), err error)
}

// Motor is the on/off device a pattern drives.
type Motor interface {
	On() error
	Off() error
}

// PatternVibrator plays Pattern on Motor. Pattern entries alternate
// off/on durations, starting with an off (delay) entry.
type PatternVibrator struct {
	Motor   Motor
	Pattern []time.Duration
}

func NewPatternVibrator(m Motor) *PatternVibrator {
	return &PatternVibrator{Motor: m, Pattern: DefaultPattern}
}

func (v *PatternVibrator) Start(ctx context.Context) (func(), error) {
	if v.Motor == nil {
		return nil, errors.New("vibration: no motor")
	}
	pattern := v.Pattern
	if len(pattern) == 0 {
		pattern = DefaultPattern
	}
	var total time.Duration
	for _, d := range pattern {
		total += d
	}
	if total <= 0 {
		return nil, fmt.Errorf("vibration: empty pattern")
	}
	// Test the motor so a broken device is reported up front.
	if err := v.Motor.Off(); err != nil {
		return nil, fmt.Errorf("vibration motor: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer v.Motor.Off() //nolint:errcheck
		for {
			for i, d := range pattern {
				if i%2 == 1 {
					_ = v.Motor.On()
				} else {
					_ = v.Motor.Off()
				}
				if d <= 0 {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(d):
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

// TerminalFlasher is a Motor that toggles the terminal's reverse-video
// mode (DECSCNM), so the whole screen pulses with the pattern.
type TerminalFlasher struct {
	mu sync.Mutex
	W  io.Writer
	on bool
}

func NewTerminalFlasher(w io.Writer) *TerminalFlasher {
	return &TerminalFlasher{W: w}
}

func (f *TerminalFlasher) On() error {
	return f.set(true)
}

func (f *TerminalFlasher) Off() error {
	return f.set(false)
}

func (f *TerminalFlasher) set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.W == nil {
		return errors.New("terminal flasher: no output")
	}
	seq := "\x1b[?5l"
	if on {
		seq = "\x1b[?5h"
	}
	if f.on == on && !on {
		return nil
	}
	f.on = on
	_, err := io.WriteString(f.W, seq)
	return err
}
