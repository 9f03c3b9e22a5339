package shell

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"coapnotify/internal/admin"
	"coapnotify/internal/config"
	"coapnotify/internal/dispatch"
	"coapnotify/internal/logx"
	"coapnotify/internal/notify"
	"coapnotify/internal/remotecmd"
	"coapnotify/internal/sensor"
)

func init() {
	logx.SetOutput(io.Discard)
}

type ackTransport struct{}

func (ackTransport) Send(_ context.Context, req notify.Request, onResponse func(notify.Response)) (int, error) {
	go onResponse(notify.Response{MessageID: -1, Code: notify.CodeChanged})
	return len(req.Payload), nil
}

func newShell(t *testing.T) (*Shell, *config.Store, *strings.Builder) {
	t.Helper()
	store := config.New()
	store.SetBotToken("123:abc")
	if _, err := store.SetChat("alice", "111"); err != nil {
		t.Fatal(err)
	}
	client := notify.New(store, ackTransport{}, remotecmd.New(store, ""), notify.Options{
		ExchangeTimeout: time.Second,
		PollInterval:    time.Millisecond,
	})
	mock, err := sensor.NewMock("lab", "hum")
	if err != nil {
		t.Fatal(err)
	}
	n := dispatch.New(store, client, mock, nil, dispatch.Options{WaitBudget: time.Second})
	out := &strings.Builder{}
	return New(admin.New(store, n), out), store, out
}

func TestRunScript(t *testing.T) {
	sh, store, out := newShell(t)
	script := strings.Join([]string{
		"config set interval 30",
		"config set set-chat bob 222",
		"config show",
		"coap send bob hello there",
		"coap updates",
		"sensor",
		"led on",
		"bogus",
		"exit",
		"config set interval 40",
	}, "\n")
	if err := sh.Run(t.Context(), strings.NewReader(script)); !errors.Is(err, ErrExit) {
		t.Fatalf("Run err = %v, want ErrExit", err)
	}
	if store.Interval() != 30 {
		t.Fatalf("interval = %d, commands after exit must not run", store.Interval())
	}
	text := out.String()
	for _, want := range []string{
		"interval updated",
		"222",
		"[HIDDEN]",
		"sent: exchange=1 stage=complete",
		"updates: exchange=2 stage=complete",
		"The humidity of lab is",
		`unknown command "bogus"`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	sh, _, _ := newShell(t)
	if err := sh.Run(t.Context(), strings.NewReader("help")); err != nil {
		t.Fatalf("Run at end of input err = %v, want nil", err)
	}
	if err := sh.Run(t.Context(), strings.NewReader("help\nquit\n")); !errors.Is(err, ErrExit) {
		t.Fatalf("Run with quit err = %v, want ErrExit", err)
	}
}

func TestRunStopsWhenCanceled(t *testing.T) {
	sh, _, _ := newShell(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	pr, pw := io.Pipe()
	defer pw.Close()
	if err := sh.Run(ctx, pr); err != nil {
		t.Fatalf("Run after cancel err = %v, want nil", err)
	}
}

func TestExecUsageErrors(t *testing.T) {
	sh, _, _ := newShell(t)
	tests := []string{
		"config",
		"config set",
		"config set port 0",
		"coap send alice",
		"led blink",
	}
	for _, line := range tests {
		if err := sh.Exec(t.Context(), line); err == nil {
			t.Errorf("Exec(%q) succeeded", line)
		}
	}
}
