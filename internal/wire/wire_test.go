package wire

import (
	"reflect"
	"strings"
	"testing"
)

func TestMakeNotification(t *testing.T) {
	got := MakeNotification(Notification{
		RelayURL: "https://api.telegram.org/bot",
		Token:    "123:abc",
		ChatIDs:  "111,222",
		Text:     "cpu: 25.00 °C & rising",
	})
	if !strings.HasPrefix(got, "url=") || strings.Index(got, "&token=") > strings.Index(got, "&chat_ids=") {
		t.Fatalf("field order wrong: %q", got)
	}
	if strings.Count(got, "&") != 3 {
		t.Fatalf("text ampersand not escaped: %q", got)
	}

	n, ok := ParseNotification(got)
	if !ok {
		t.Fatalf("ParseNotification(%q) failed", got)
	}
	if n.Token != "123:abc" || n.ChatIDs != "111,222" || n.Text != "cpu: 25.00 °C & rising" {
		t.Fatalf("round trip = %+v", n)
	}
}

func TestUpdateRequestIsNotANotification(t *testing.T) {
	body := MakeUpdateRequest("https://api.telegram.org/bot", "t")
	if strings.Contains(body, "text=") {
		t.Fatalf("update request carries text: %q", body)
	}
	if _, ok := ParseNotification(body); ok {
		t.Fatal("update request parsed as notification")
	}
}

func TestCapacity(t *testing.T) {
	short := Capacity("/message")
	long := Capacity("/a/much/longer/path")
	if short <= 0 || short >= BufferSize {
		t.Fatalf("Capacity(/message) = %d", short)
	}
	if long >= short {
		t.Fatalf("longer path left more room: %d >= %d", long, short)
	}
}

func TestSplitCommands(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"f1;i10;bob:123456", []string{"f1", "i10", "bob:123456"}},
		{" f1 ; ;i10 ", []string{"f1", "i10"}},
		{"[f1,i10;rbob]", []string{"f1", "i10", "rbob"}},
		{"", []string{}},
	}
	for _, tc := range tests {
		got := SplitCommands(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitCommands(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
		ok   bool
	}{
		{"f0", Command{Kind: CmdFeedback}, true},
		{"f1", Command{Kind: CmdFeedback, Feedback: true}, true},
		{"i10", Command{Kind: CmdInterval, Interval: 10}, true},
		{"i0", Command{Kind: CmdInterval}, true},
		{"rbob", Command{Kind: CmdRemoveChat, Target: "bob"}, true},
		{"r123", Command{Kind: CmdRemoveChat, Target: "123"}, true},
		{"bob:123456", Command{Kind: CmdSetChat, Name: "bob", ID: "123456"}, true},
		{"grp:-100200", Command{Kind: CmdSetChat, Name: "grp", ID: "-100200"}, true},
		{"rob:42", Command{Kind: CmdSetChat, Name: "rob", ID: "42"}, true},
		{"No updates", Command{Kind: CmdSentinel}, true},
		{"Message sent successfully", Command{Kind: CmdSentinel}, true},
		{"config pw interval 3", Command{Kind: CmdConfig, Args: []string{"pw", "interval", "3"}}, true},
		{"Telegram API error: bad", Command{}, false},
		{"garbage", Command{}, false},
		{"f2", Command{}, false},
		{"i", Command{}, false},
		{"i-3", Command{}, false},
		{"ifoo", Command{}, false},
		{"r", Command{}, false},
		{":123", Command{}, false},
	}
	for _, tc := range tests {
		got, ok := ParseCommand(tc.in)
		if ok != tc.ok || !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseCommand(%q) = %+v, %v; want %+v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestJoinCommands(t *testing.T) {
	got := JoinCommands(
		Command{Kind: CmdFeedback, Feedback: true},
		Command{Kind: CmdInterval, Interval: 10},
		Command{Kind: CmdSetChat, Name: "bob", ID: "123456"},
		Command{Kind: CmdSentinel},
	)
	if got != "f1;i10;bob:123456" {
		t.Fatalf("JoinCommands = %q", got)
	}
	for _, tok := range SplitCommands(got) {
		c, ok := ParseCommand(tok)
		if !ok || MakeCommand(c) != tok {
			t.Fatalf("token %q does not round trip", tok)
		}
	}
}
