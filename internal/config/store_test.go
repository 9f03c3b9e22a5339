package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coapnotify/internal/fault"
)

func TestSetChatInsertAndLookup(t *testing.T) {
	s := New()
	change, err := s.SetChat("alice", "111")
	if err != nil {
		t.Fatal(err)
	}
	if change != ChatInserted {
		t.Fatalf("change = %s, want inserted", change)
	}
	id, ok := s.LookupChatID("alice")
	if !ok || id != "111" {
		t.Fatalf("LookupChatID(alice) = %q, %v", id, ok)
	}
	if got := s.ChatIDsJoined(); got != "111" {
		t.Fatalf("ChatIDsJoined() = %q", got)
	}
}

func TestSetChatUpdatesInPlace(t *testing.T) {
	s := New()
	mustSetChat(t, s, "alice", "111")
	mustSetChat(t, s, "bob", "222")

	if change := mustSetChat(t, s, "alice", "333"); change != ChatIDUpdated {
		t.Fatalf("change = %s, want id-updated", change)
	}
	if change := mustSetChat(t, s, "robert", "222"); change != ChatNameUpdated {
		t.Fatalf("change = %s, want name-updated", change)
	}
	if got := s.ChatCount(); got != 2 {
		t.Fatalf("ChatCount() = %d, want 2", got)
	}
	if got := s.ChatIDsJoined(); got != "333,222" {
		t.Fatalf("ChatIDsJoined() = %q", got)
	}
	if _, ok := s.LookupChatID("bob"); ok {
		t.Fatal("old name bob still resolves")
	}
}

func TestSetChatKeepsIDsUnique(t *testing.T) {
	s := New()
	mustSetChat(t, s, "alice", "111")
	mustSetChat(t, s, "bob", "222")
	mustSetChat(t, s, "bob", "111")

	if got := s.ChatIDsJoined(); got != "111" {
		t.Fatalf("ChatIDsJoined() = %q, want 111", got)
	}
	if id, _ := s.LookupChatID("bob"); id != "111" {
		t.Fatalf("bob = %q", id)
	}
}

func TestSetChatRejectsEmpty(t *testing.T) {
	s := New()
	for _, tc := range []struct{ name, id string }{{"", "1"}, {"x", ""}} {
		_, err := s.SetChat(tc.name, tc.id)
		if !errors.Is(err, fault.InvalidArgument) {
			t.Fatalf("SetChat(%q, %q) err = %v", tc.name, tc.id, err)
		}
	}
	if s.ChatCount() != 0 {
		t.Fatal("store changed")
	}
}

func TestSetChatFullTableDrops(t *testing.T) {
	s := New()
	for i := 0; i < MaxChats; i++ {
		mustSetChat(t, s, "user"+string(rune('a'+i)), "10"+string(rune('0'+i)))
	}
	before := s.ChatIDsJoined()
	if change := mustSetChat(t, s, "extra", "999"); change != ChatDropped {
		t.Fatalf("change = %s, want dropped", change)
	}
	if s.ChatIDsJoined() != before {
		t.Fatal("full table changed")
	}
	// matching entries are still updated
	if change := mustSetChat(t, s, "usera", "555"); change != ChatIDUpdated {
		t.Fatalf("change = %s, want id-updated", change)
	}
}

func TestRemoveChat(t *testing.T) {
	s := New()
	mustSetChat(t, s, "alice", "111")
	mustSetChat(t, s, "bob", "222")
	mustSetChat(t, s, "carol", "333")

	if !s.RemoveChat("bob") {
		t.Fatal("RemoveChat(bob) = false")
	}
	if !s.RemoveChat("111") {
		t.Fatal("RemoveChat(111) = false")
	}
	if s.RemoveChat("ghost") {
		t.Fatal("RemoveChat(ghost) = true")
	}
	if got := s.ChatIDsJoined(); got != "333" {
		t.Fatalf("ChatIDsJoined() = %q", got)
	}

	mustSetChat(t, s, "dave", "444")
	if got := s.ChatIDsJoined(); got != "333,444" {
		t.Fatalf("ChatIDsJoined() = %q, want insertion order", got)
	}
}

func TestChatFieldsTruncate(t *testing.T) {
	s := New()
	long := strings.Repeat("n", 40)
	mustSetChat(t, s, long, "1234567890123456")

	chats := s.Chats()
	if len(chats) != 1 {
		t.Fatalf("len(chats) = %d", len(chats))
	}
	if got := len(chats[0].Name); got != ChatNameCap-1 {
		t.Fatalf("name length = %d, want %d", got, ChatNameCap-1)
	}
	if got := len(chats[0].ID); got != ChatIDCap-1 {
		t.Fatalf("id length = %d, want %d", got, ChatIDCap-1)
	}
	// the long name resolves through its stored form
	if _, ok := s.LookupChatID(long[:ChatNameCap-1]); !ok {
		t.Fatal("truncated name not found")
	}
}

func TestBoundedStringReportsTruncation(t *testing.T) {
	b := NewBounded(URIPathCap)
	if b.Set("/message") {
		t.Fatal("short value reported as truncated")
	}
	if !b.Set(strings.Repeat("x", 30)) {
		t.Fatal("long value not reported as truncated")
	}
	if len(b.String()) != URIPathCap-1 {
		t.Fatalf("len = %d", len(b.String()))
	}
	// multi-byte runes are never split
	b = NewBounded(4)
	b.Set("aé€")
	if b.String() != "aé" {
		t.Fatalf("String() = %q", b.String())
	}
}

func TestSetPort(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want string
	}{
		{"5683", true, "5683"},
		{"1", true, "1"},
		{"65535", true, "65535"},
		{"0000000080", true, "80"},
		{"0", false, ""},
		{"70000", false, ""},
		{"-1", false, ""},
		{"abc", false, ""},
		{"", false, ""},
	}
	for _, tc := range tests {
		s := New()
		err := s.SetPort(tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("SetPort(%q) = %v", tc.in, err)
			} else if s.Port() != tc.want {
				t.Errorf("Port() = %q, want %q", s.Port(), tc.want)
			} else if _, err := ParsePort(s.Port()); err != nil {
				t.Errorf("stored port %q does not parse: %v", s.Port(), err)
			}
			continue
		}
		if !errors.Is(err, fault.InvalidArgument) {
			t.Errorf("SetPort(%q) err = %v, want InvalidArgument", tc.in, err)
		}
		if s.Port() != DefaultPort {
			t.Errorf("SetPort(%q) changed port to %q", tc.in, s.Port())
		}
	}
}

func TestScalarSetters(t *testing.T) {
	s := New()
	if err := s.SetIntervalString("10"); err != nil || s.Interval() != 10 {
		t.Fatalf("interval = %d, err = %v", s.Interval(), err)
	}
	if err := s.SetInterval(0); !errors.Is(err, fault.InvalidArgument) {
		t.Fatalf("SetInterval(0) err = %v", err)
	}
	if err := s.SetInterval(200000000); !errors.Is(err, fault.InvalidArgument) {
		t.Fatalf("SetInterval(200000000) err = %v", err)
	}
	if err := s.SetInterval(MaxIntervalMinutes + 1); !errors.Is(err, fault.InvalidArgument) {
		t.Fatalf("SetInterval(max+1) err = %v", err)
	}
	if s.Interval() != 10 {
		t.Fatal("rejected interval applied")
	}
	if err := s.SetInterval(MaxIntervalMinutes); err != nil {
		t.Fatalf("SetInterval(max) = %v", err)
	}
	if time.Duration(s.Interval())*time.Minute <= 0 {
		t.Fatal("maximum interval overflows a duration")
	}
	if err := s.SetFeedbackFlag("1"); err != nil || !s.LEDFeedback() {
		t.Fatalf("feedback = %v, err = %v", s.LEDFeedback(), err)
	}
	if err := s.SetFeedbackFlag("yes"); !errors.Is(err, fault.InvalidArgument) {
		t.Fatalf("SetFeedbackFlag(yes) err = %v", err)
	}
	if !s.SetBotToken(strings.Repeat("t", 60)) {
		t.Fatal("long token not reported as truncated")
	}
	if len(s.BotToken()) != BotTokenCap-1 {
		t.Fatalf("token length = %d", len(s.BotToken()))
	}
}

func TestParseChatList(t *testing.T) {
	got := ParseChatList("Alice:123, Bob:-456,,789,Empty:")
	want := ChatList{{Name: "Alice", ID: "123"}, {Name: "Bob", ID: "-456"}, {ID: "789"}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coapnotify.yaml")
	data := `
interval: 7
bot_token: "123:abc"
port: "5684"
chats: "Alice:111,Bob:222"
exchange:
  wait_budget: 3s
breaker:
  failures: 5
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	d, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if d.IntervalMinutes != 7 || d.Exchange.WaitBudget != 3*time.Second || d.Breaker.Failures != 5 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	// untouched fields keep the compiled-in values
	if d.Address != DefaultAddress || d.Exchange.PollInterval != DefaultPollInterval {
		t.Fatalf("defaults lost: %+v", d)
	}

	s, err := NewStore(d)
	if err != nil {
		t.Fatal(err)
	}
	if s.Port() != "5684" || s.ChatIDsJoined() != "111,222" {
		t.Fatalf("store = %+v", s.Snapshot())
	}
}

func TestLoadFileChatSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	data := `
bot_token: x
chats:
  - name: alice
    id: "1"
  - name: bob
    id: "2"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	d, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Chats) != 2 || d.Chats[1].Name != "bob" {
		t.Fatalf("chats = %v", d.Chats)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvConfig, "")
	d, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if d.URIPath != DefaultURIPath {
		t.Fatalf("URIPath = %q", d.URIPath)
	}
	if err := d.Validate(); err == nil {
		t.Fatal("defaults without token and chats validated")
	}
}

func TestSetIPv6Address(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"::1", true},
		{"2001:db8::42", true},
		{"fe80::1%eth0", true},
		{"foo", false},
		{"127.0.0.1", false},
		{"", false},
		{"2001:0db8:0000:0000:0000:0000:0000:0001:extra", false},
	}
	for _, tc := range tests {
		s := New()
		err := s.SetIPv6Address(tc.in)
		if tc.ok {
			if err != nil || s.Address() != tc.in {
				t.Errorf("SetIPv6Address(%q) = %v, stored %q", tc.in, err, s.Address())
			}
			continue
		}
		if !errors.Is(err, fault.AddressFormatInvalid) {
			t.Errorf("SetIPv6Address(%q) err = %v, want AddressFormatInvalid", tc.in, err)
		}
		if s.Address() != DefaultAddress {
			t.Errorf("SetIPv6Address(%q) changed address to %q", tc.in, s.Address())
		}
	}
}

func mustSetChat(t *testing.T, s *Store, name, id string) ChatChange {
	t.Helper()
	change, err := s.SetChat(name, id)
	if err != nil {
		t.Fatalf("SetChat(%q, %q) = %v", name, id, err)
	}
	return change
}
