// Package wire holds the text formats carried in CoAP payloads: the
// notification and update requests sent to the relay, and the command
// stream it sends back.
package wire

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// BufferSize is the transmit buffer of one CoAP request: header, uri path,
// options, relay url, token, every chat id, message text and slack.
const BufferSize = 8 + 20 + 4 + 35 + 50 + 10*12 + 30 + 20

// MaxPayload is the largest single datagram body, the transmit buffer.
const MaxPayload = BufferSize

// MaxCommandPayload caps a reassembled response handed to the command
// interpreter: sixteen 1024-byte Block2 blocks.
const MaxCommandPayload = 16 * 1024

// tokenLen is the token length the CoAP library puts on requests.
const tokenLen = 8

// Overhead returns the bytes of a POST request to uriPath that are not
// payload: header, token, uri-path and content-format options, payload marker.
func Overhead(uriPath string) int {
	n := 4 + tokenLen + 2 + 1
	for _, seg := range strings.Split(strings.Trim(uriPath, "/"), "/") {
		if seg == "" {
			continue
		}
		n += optionLen(len(seg))
	}
	return n
}

// Capacity is the payload space left in the transmit buffer for uriPath.
func Capacity(uriPath string) int {
	c := BufferSize - Overhead(uriPath)
	if c < 0 {
		return 0
	}
	return c
}

func optionLen(valueLen int) int {
	switch {
	case valueLen < 13:
		return 1 + valueLen
	case valueLen < 269:
		return 2 + valueLen
	default:
		return 3 + valueLen
	}
}

// Notification is the form sent to the relay's message resource.
type Notification struct {
	RelayURL string
	Token    string
	ChatIDs  string
	Text     string
}

// MakeNotification encodes n as url=..&token=..&chat_ids=..&text=..
func MakeNotification(n Notification) string {
	var b strings.Builder
	writePair(&b, "url", n.RelayURL)
	b.WriteByte('&')
	writePair(&b, "token", n.Token)
	b.WriteByte('&')
	writePair(&b, "chat_ids", n.ChatIDs)
	b.WriteByte('&')
	writePair(&b, "text", n.Text)
	return b.String()
}

// MakeUpdateRequest encodes the body of an update poll.
func MakeUpdateRequest(relayURL, token string) string {
	var b strings.Builder
	writePair(&b, "url", relayURL)
	b.WriteByte('&')
	writePair(&b, "token", token)
	return b.String()
}

func writePair(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(value))
}

// ParseNotification decodes a notification body. The text field is
// required; update requests do not parse as notifications.
func ParseNotification(s string) (Notification, bool) {
	v, err := url.ParseQuery(s)
	if err != nil || !v.Has("text") {
		return Notification{}, false
	}
	return Notification{
		RelayURL: v.Get("url"),
		Token:    v.Get("token"),
		ChatIDs:  v.Get("chat_ids"),
		Text:     v.Get("text"),
	}, true
}

// SplitCommands splits a response payload into command tokens. Tokens are
// separated by ';'. A payload wrapped in brackets also splits on ','.
func SplitCommands(payload string) []string {
	payload = strings.TrimSpace(payload)
	seps := ";"
	if strings.HasPrefix(payload, "[") {
		seps = ";,[]"
	}
	fields := strings.FieldsFunc(payload, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// CommandKind identifies a token of the command stream.
type CommandKind int

const (
	CmdInvalid CommandKind = iota
	CmdFeedback
	CmdInterval
	CmdRemoveChat
	CmdSetChat
	CmdConfig
	// CmdSentinel is a delivery status such as "no updates".
	CmdSentinel
)

func (k CommandKind) String() string {
	switch k {
	case CmdFeedback:
		return "feedback"
	case CmdInterval:
		return "interval"
	case CmdRemoveChat:
		return "remove-chat"
	case CmdSetChat:
		return "set-chat"
	case CmdConfig:
		return "config"
	case CmdSentinel:
		return "sentinel"
	default:
		return "invalid"
	}
}

type Command struct {
	Kind     CommandKind
	Feedback bool
	Interval int
	// Target is the name or id of a chat to remove.
	Target string
	Name   string
	ID     string
	// Args holds the words after "config" for CmdConfig.
	Args []string
}

var sentinels = []string{"no updates", "sent successfully"}

var chatIDPattern = regexp.MustCompile(`^-?[0-9]+$`)

// ParseCommand classifies one token. A token containing ':' is always a chat
// assignment and only parses when the id is numeric.
func ParseCommand(token string) (Command, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Command{}, false
	}
	lower := strings.ToLower(token)
	for _, s := range sentinels {
		if strings.Contains(lower, s) {
			return Command{Kind: CmdSentinel}, true
		}
	}
	if f := strings.Fields(token); len(f) > 0 && f[0] == "config" {
		return Command{Kind: CmdConfig, Args: f[1:]}, true
	}
	if name, id, ok := strings.Cut(token, ":"); ok {
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if name == "" || !chatIDPattern.MatchString(id) {
			return Command{}, false
		}
		return Command{Kind: CmdSetChat, Name: name, ID: id}, true
	}
	switch token[0] {
	case 'f':
		switch token {
		case "f0":
			return Command{Kind: CmdFeedback, Feedback: false}, true
		case "f1":
			return Command{Kind: CmdFeedback, Feedback: true}, true
		}
	case 'i':
		digits := token[1:]
		if digits == "" || strings.Trim(digits, "0123456789") != "" {
			return Command{}, false
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return Command{}, false
		}
		return Command{Kind: CmdInterval, Interval: n}, true
	case 'r':
		target := strings.TrimSpace(token[1:])
		if target == "" {
			return Command{}, false
		}
		return Command{Kind: CmdRemoveChat, Target: target}, true
	}
	return Command{}, false
}

// MakeCommand renders c as a token. It is the inverse of ParseCommand for
// every kind except CmdSentinel and CmdInvalid.
func MakeCommand(c Command) string {
	switch c.Kind {
	case CmdFeedback:
		if c.Feedback {
			return "f1"
		}
		return "f0"
	case CmdInterval:
		return "i" + strconv.Itoa(c.Interval)
	case CmdRemoveChat:
		return "r" + c.Target
	case CmdSetChat:
		return c.Name + ":" + c.ID
	case CmdConfig:
		return strings.Join(append([]string{"config"}, c.Args...), " ")
	default:
		return ""
	}
}

// JoinCommands builds a ';' separated command stream.
func JoinCommands(cmds ...Command) string {
	tokens := make([]string, 0, len(cmds))
	for _, c := range cmds {
		if t := MakeCommand(c); t != "" {
			tokens = append(tokens, t)
		}
	}
	return strings.Join(tokens, ";")
}
