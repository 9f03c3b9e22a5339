// Package serialdev is a line-oriented serial port used by the serial
// sensor and the LED indicator.
package serialdev

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	serialdrv "go.bug.st/serial"

	"coapnotify/internal/logx"
)

const (
	DefaultBaud = 9600
	maxLine     = 256
	readTimeout = 250 * time.Millisecond
)

var ErrLineTooLong = errors.New("serial line too long")

type Port struct {
	rw      io.ReadWriteCloser
	name    string
	readMu  sync.Mutex
	writeMu sync.Mutex
	pending []byte
}

// Open opens name at baud 8N1 with a short read timeout so reads can
// observe context cancellation.
func Open(name string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serialdrv.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serialdrv.NoParity,
		StopBits: serialdrv.OneStopBit,
	}
	port, err := serialdrv.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}
	logx.Debugf("serial: port ready port=%s baud=%d timeout=%s", name, baud, readTimeout)
	return newPort(port, name), nil
}

func newPort(rw io.ReadWriteCloser, name string) *Port {
	return &Port{rw: rw, name: name}
}

func (p *Port) Name() string { return p.name }

func (p *Port) Close() error {
	if p == nil || p.rw == nil {
		return nil
	}
	logx.Debugf("serial: closing port %s", p.name)
	return p.rw.Close()
}

// ReadLine returns the next line without its terminator. Carriage returns
// are dropped.
func (p *Port) ReadLine(ctx context.Context) (string, error) {
	p.readMu.Lock()
	defer p.readMu.Unlock()

	buf := make([]byte, 64)
	for {
		if i := bytes.IndexByte(p.pending, '\n'); i >= 0 {
			line := strings.TrimRight(string(p.pending[:i]), "\r")
			p.pending = p.pending[i+1:]
			logx.Debugf("serial: rx line=%q port=%s", line, p.name)
			return line, nil
		}
		if len(p.pending) > maxLine {
			p.pending = nil
			return "", ErrLineTooLong
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := p.rw.Read(buf)
		if n > 0 {
			p.pending = append(p.pending, buf[:n]...)
		}
		if err != nil {
			return "", err
		}
	}
}

// WriteLine writes line followed by a newline.
func (p *Port) WriteLine(ctx context.Context, line string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	data := []byte(line + "\n")
	logx.Debugf("serial: tx line=%q port=%s", line, p.name)
	for len(data) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.rw.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Detect returns the first port accepted by check. Ports are tried in
// reverse name order so USB adapters come before built-in UARTs.
func Detect(check func(name string) error) (string, error) {
	ports, err := serialdrv.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	return detect(ports, check)
}

func detect(ports []string, check func(name string) error) (string, error) {
	if len(ports) == 0 {
		return "", errors.New("no serial ports detected; connect the device or pass its port")
	}
	ports = append([]string(nil), ports...)
	sort.Sort(sort.Reverse(sort.StringSlice(ports)))
	var errs []error
	for _, port := range ports {
		logx.Debugf("auto-detect trying serial port %s", port)
		if err := check(port); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", port, err))
			logx.Debugf("auto-detect rejected serial port %s: %v", port, err)
			continue
		}
		logx.Debugf("auto-detect selected serial port %s", port)
		return port, nil
	}
	return "", fmt.Errorf("auto-detect serial port failed (tried %s): %w", strings.Join(ports, ", "), errors.Join(errs...))
}
