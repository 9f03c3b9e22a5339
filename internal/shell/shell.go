// Package shell is the interactive command context of the notifier.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"coapnotify/internal/admin"
	"coapnotify/internal/config"
	"coapnotify/internal/fault"
	"coapnotify/internal/logx"
)

const help = `commands:
  config show                   print the configuration
  config set <field> <value>... change a field (fields: %s)
  coap send <recipient> <text>  send text to a chat name or "all"
  coap updates                  poll the relay for commands
  sensor                        take a reading
  led on|off                    switch the feedback LED
  help                          this text
  exit                          leave the shell
`

// ErrExit is returned by Exec and Run for the exit command.
var ErrExit = errors.New("exit")

type Shell struct {
	admin *admin.Admin
	out   io.Writer
}

func New(a *admin.Admin, out io.Writer) *Shell {
	return &Shell{admin: a, out: out}
}

type inputEvent struct {
	line string
	err  error
}

func readInput(in io.Reader, ch chan<- inputEvent) {
	defer close(ch)
	r := bufio.NewReader(in)
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" || err == nil {
			ch <- inputEvent{line: line}
		}
		if err != nil {
			ch <- inputEvent{err: err}
			return
		}
	}
}

func waitForLine(ctx context.Context, inputCh <-chan inputEvent) (string, error) {
	select {
	case ev, ok := <-inputCh:
		if !ok {
			return "", fmt.Errorf("stdin reader closed unexpectedly")
		}
		if ev.err != nil {
			return "", ev.err
		}
		return ev.line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run reads commands from in until exit, end of input or ctx ends. It
// returns ErrExit when the user typed exit and nil when input ran out.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, `Enter commands, "help" for a list.`)
	inputCh := make(chan inputEvent, 1)
	go readInput(in, inputCh)
	for {
		fmt.Fprint(s.out, "> ")
		line, err := waitForLine(ctx, inputCh)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			return err
		}
		if line == "" {
			continue
		}
		logx.Debugf("shell command: %q", line)
		if err := s.Exec(ctx, line); err != nil {
			if errors.Is(err, ErrExit) {
				return ErrExit
			}
			fmt.Fprintf(s.out, "error: %s: %v\n", fault.KindOf(err), err)
		}
	}
}

// Exec runs a single command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "config":
		return s.config(args[1:])
	case "coap":
		return s.coap(ctx, args[1:])
	case "sensor":
		r, err := s.admin.Sensor(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, r)
		return nil
	case "led":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return fault.New(fault.InvalidArgument, "led", "usage: led on|off")
		}
		return s.admin.LED(ctx, args[1] == "on")
	case "help", "?":
		fmt.Fprintf(s.out, help, strings.Join(config.FieldNames(), ", "))
		return nil
	case "exit", "quit":
		return ErrExit
	default:
		return fault.New(fault.InvalidArgument, "shell", "unknown command %q, try help", args[0])
	}
}

func (s *Shell) config(args []string) error {
	if len(args) == 0 {
		return fault.New(fault.InvalidArgument, "config", "usage: config show | config set <field> <value>...")
	}
	switch args[0] {
	case "show":
		fmt.Fprint(s.out, s.admin.ConfigShow())
		return nil
	case "set":
		if len(args) < 2 {
			return fault.New(fault.InvalidArgument, "config set", "usage: config set <field> <value>...")
		}
		if err := s.admin.ConfigSet(args[1], args[2:]...); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s updated\n", args[1])
		return nil
	default:
		return fault.New(fault.InvalidArgument, "config", "unknown subcommand %q", args[0])
	}
}

func (s *Shell) coap(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fault.New(fault.InvalidArgument, "coap", "usage: coap send <recipient> <text> | coap updates")
	}
	switch args[0] {
	case "send":
		if len(args) < 3 {
			return fault.New(fault.InvalidArgument, "coap send", "usage: coap send <recipient> <text>")
		}
		res, err := s.admin.CoapSend(ctx, args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "sent: exchange=%d stage=%s rtt=%s\n", res.ExchangeID, res.Stage, res.RTT.Round(time.Millisecond))
		return nil
	case "updates":
		res, err := s.admin.CoapRequestUpdates(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "updates: exchange=%d stage=%s rtt=%s\n", res.ExchangeID, res.Stage, res.RTT.Round(time.Millisecond))
		return nil
	default:
		return fault.New(fault.InvalidArgument, "coap", "unknown subcommand %q", args[0])
	}
}
