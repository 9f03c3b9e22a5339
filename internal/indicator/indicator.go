// Package indicator drives the feedback LED that is lit while a
// notification exchange is in flight.
package indicator

import (
	"context"
	"fmt"
	"io"
	"sync"

	"coapnotify/internal/config"
	"coapnotify/internal/fault"
	"coapnotify/internal/logx"
	"coapnotify/internal/serialdev"
)

type Indicator interface {
	Set(ctx context.Context, on bool) error
	Close() error
}

// Open builds the indicator selected by cfg. An empty kind means log.
func Open(cfg config.IndicatorConfig) (Indicator, error) {
	switch cfg.Kind {
	case "", "log":
		return &Log{}, nil
	case "serial":
		if cfg.Port == "" {
			return nil, fault.New(fault.InvalidArgument, "indicator serial", "no serial port configured")
		}
		p, err := serialdev.Open(cfg.Port, cfg.Baud)
		if err != nil {
			return nil, fault.Wrap(fault.InvalidArgument, "indicator serial", err)
		}
		return NewSerial(p), nil
	default:
		return nil, fault.New(fault.InvalidArgument, "indicator", "unknown indicator kind %q", cfg.Kind)
	}
}

// Log reports LED changes through the debug log.
type Log struct {
	mu sync.Mutex
	on bool
}

func (l *Log) Set(_ context.Context, on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on != on {
		logx.Debugf("led: state=%s", onOff(on))
	}
	l.on = on
	return nil
}

func (l *Log) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func (l *Log) Close() error { return nil }

type lineWriter interface {
	WriteLine(ctx context.Context, line string) error
	io.Closer
}

// Serial switches LED 0 of a board listening on a serial port with
// "LED 0 ON" and "LED 0 OFF" lines.
type Serial struct {
	w lineWriter
}

func NewSerial(w lineWriter) *Serial {
	return &Serial{w: w}
}

func (s *Serial) Set(ctx context.Context, on bool) error {
	if err := s.w.WriteLine(ctx, Command(0, on)); err != nil {
		return fmt.Errorf("led %s: %w", onOff(on), err)
	}
	return nil
}

func (s *Serial) Close() error {
	// leave the LED dark on shutdown
	_ = s.w.WriteLine(context.Background(), Command(0, false))
	return s.w.Close()
}

// Command renders the serial line for LED n.
func Command(n int, on bool) string {
	return fmt.Sprintf("LED %d %s", n, onOff(on))
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
