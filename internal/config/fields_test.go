package config

import (
	"errors"
	"strings"
	"testing"

	"coapnotify/internal/fault"
)

func TestSetField(t *testing.T) {
	s := New()
	steps := []struct {
		field  string
		values []string
	}{
		{"interval", []string{"15"}},
		{"feedback", []string{"1"}},
		{"bot-token", []string{"123:abc"}},
		{"set-chat", []string{"alice", "111"}},
		{"telegram-url", []string{"https://relay.example/bot"}},
		{"address", []string{"fe80::1"}},
		{"port", []string{"5684"}},
		{"uri-path", []string{"/notify"}},
	}
	for _, st := range steps {
		if err := s.SetField(st.field, st.values...); err != nil {
			t.Fatalf("SetField(%s) = %v", st.field, err)
		}
	}
	snap := s.Snapshot()
	if snap.IntervalMinutes != 15 || !snap.LEDFeedback || snap.BotToken != "123:abc" ||
		snap.Address != "fe80::1" || snap.Port != "5684" || snap.URIPath != "/notify" ||
		len(snap.Chats) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}

	if err := s.SetField("remove-chat", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetField("remove-chat", "alice"); !errors.Is(err, fault.ChatNotFound) {
		t.Fatalf("second remove err = %v", err)
	}
}

func TestSetFieldUsage(t *testing.T) {
	s := New()
	tests := []struct {
		field  string
		values []string
		hint   string
	}{
		{"set-chat", []string{"alice"}, "set-chat <name> <id>"},
		{"port", []string{"0"}, "port <1-65535>"},
		{"interval", []string{"-4"}, "interval <minutes>"},
		{"colour", []string{"red"}, "expected one of"},
	}
	for _, tc := range tests {
		err := s.SetField(tc.field, tc.values...)
		if !errors.Is(err, fault.InvalidArgument) {
			t.Errorf("SetField(%s) err = %v, want InvalidArgument", tc.field, err)
			continue
		}
		if !strings.Contains(err.Error(), tc.hint) {
			t.Errorf("SetField(%s) err = %q, missing %q", tc.field, err, tc.hint)
		}
	}
	if s.Port() != DefaultPort || s.Interval() != DefaultIntervalMinutes || s.ChatCount() != 0 {
		t.Fatalf("rejected values applied: %+v", s.Snapshot())
	}
}

func TestSetFieldRejectsNonIPv6Address(t *testing.T) {
	s := New()
	for _, addr := range []string{"foo", "10.0.0.1"} {
		err := s.SetField("address", addr)
		if !errors.Is(err, fault.AddressFormatInvalid) {
			t.Fatalf("SetField(address, %q) err = %v, want AddressFormatInvalid", addr, err)
		}
		if !strings.Contains(err.Error(), "address <ipv6>") {
			t.Fatalf("SetField(address, %q) err = %v, want usage hint", addr, err)
		}
		if s.Address() != DefaultAddress {
			t.Fatalf("address changed to %q", s.Address())
		}
	}
}
