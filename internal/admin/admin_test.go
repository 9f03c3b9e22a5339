package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"coapnotify/internal/config"
	"coapnotify/internal/dispatch"
	"coapnotify/internal/fault"
	"coapnotify/internal/logx"
	"coapnotify/internal/notify"
	"coapnotify/internal/remotecmd"
	"coapnotify/internal/sensor"
)

func init() {
	logx.SetOutput(io.Discard)
}

type ackTransport struct {
	payloads []string
}

func (a *ackTransport) Send(_ context.Context, req notify.Request, onResponse func(notify.Response)) (int, error) {
	a.payloads = append(a.payloads, string(req.Payload))
	go onResponse(notify.Response{MessageID: -1, Code: notify.CodeChanged})
	return len(req.Payload), nil
}

func newAdmin(t *testing.T) (*Admin, *config.Store, *ackTransport) {
	t.Helper()
	store := config.New()
	store.SetBotToken("123:secret")
	if _, err := store.SetChat("alice", "111"); err != nil {
		t.Fatal(err)
	}
	tr := &ackTransport{}
	client := notify.New(store, tr, remotecmd.New(store, ""), notify.Options{
		ExchangeTimeout: time.Second,
		PollInterval:    time.Millisecond,
	})
	mock, err := sensor.NewMock("lab", "temp")
	if err != nil {
		t.Fatal(err)
	}
	n := dispatch.New(store, client, mock, nil, dispatch.Options{WaitBudget: time.Second})
	return New(store, n), store, tr
}

func TestConfigShowMasksToken(t *testing.T) {
	a, _, _ := newAdmin(t)
	out := a.ConfigShow()
	if strings.Contains(out, "secret") {
		t.Fatalf("token leaked:\n%s", out)
	}
	for _, want := range []string{"[HIDDEN]", "interval:     5 min", "alice", "111", "uri-path:     /message"} {
		if !strings.Contains(out, want) {
			t.Errorf("ConfigShow missing %q:\n%s", want, out)
		}
	}
}

func TestConfigJSON(t *testing.T) {
	a, _, _ := newAdmin(t)
	out, err := a.ConfigJSON()
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Interval float64 `json:"interval"`
		BotToken string  `json:"bot_token"`
		Chats    []struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"chats"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if got.Interval != 5 || got.BotToken != "[HIDDEN]" {
		t.Fatalf("decoded = %+v", got)
	}
	if len(got.Chats) != 1 || got.Chats[0].Name != "alice" || got.Chats[0].ID != "111" {
		t.Fatalf("chats = %+v", got.Chats)
	}
}

func TestConfigSet(t *testing.T) {
	a, store, _ := newAdmin(t)
	if err := a.ConfigSet("interval", "15"); err != nil {
		t.Fatal(err)
	}
	if store.Interval() != 15 {
		t.Fatalf("interval = %d", store.Interval())
	}
	err := a.ConfigSet("set-chat", "bob")
	if !errors.Is(err, fault.InvalidArgument) || !strings.Contains(err.Error(), "usage") {
		t.Fatalf("set-chat with one arg err = %v", err)
	}
	if _, ok := store.LookupChatID("bob"); ok {
		t.Fatal("partial set-chat applied")
	}
}

func TestConfigSetPortRoundTrip(t *testing.T) {
	a, _, _ := newAdmin(t)
	if err := a.ConfigSet("port", "5683"); err != nil {
		t.Fatal(err)
	}
	const shown = "port:         5683\n"
	if out := a.ConfigShow(); !strings.Contains(out, shown) {
		t.Fatalf("show after set:\n%s", out)
	}
	for _, bad := range []string{"0", "70000"} {
		if err := a.ConfigSet("port", bad); !errors.Is(err, fault.InvalidArgument) {
			t.Fatalf("ConfigSet(port, %s) err = %v", bad, err)
		}
		if out := a.ConfigShow(); !strings.Contains(out, shown) {
			t.Fatalf("show after rejected %s:\n%s", bad, out)
		}
	}
}

func TestCoapSend(t *testing.T) {
	a, _, tr := newAdmin(t)
	res, err := a.CoapSend(t.Context(), "alice", "hello there")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Completed || res.Stage != notify.StageComplete {
		t.Fatalf("result = %+v", res)
	}
	if len(tr.payloads) != 1 || !strings.Contains(tr.payloads[0], "chat_ids=111") {
		t.Fatalf("payloads = %q", tr.payloads)
	}

	if _, err := a.CoapSend(t.Context(), "carol", "hi"); !errors.Is(err, fault.ChatNotFound) {
		t.Fatalf("unknown recipient err = %v", err)
	}
}

func TestSensorAndLED(t *testing.T) {
	a, _, _ := newAdmin(t)
	r, err := a.Sensor(t.Context())
	if err != nil || r.Device != "lab" {
		t.Fatalf("Sensor() = %+v, %v", r, err)
	}
	if err := a.LED(t.Context(), true); err != nil {
		t.Fatal(err)
	}
}
