package config

import (
	"sort"
	"strings"

	"coapnotify/internal/fault"
)

type field struct {
	usage string
	args  int
	apply func(s *Store, v []string) error
}

var fields = map[string]field{
	"interval": {"interval <minutes>", 1, func(s *Store, v []string) error {
		return s.SetIntervalString(v[0])
	}},
	"feedback": {"feedback <0|1>", 1, func(s *Store, v []string) error {
		return s.SetFeedbackFlag(v[0])
	}},
	"bot-token": {"bot-token <token>", 1, func(s *Store, v []string) error {
		s.SetBotToken(v[0])
		return nil
	}},
	"set-chat": {"set-chat <name> <id>", 2, func(s *Store, v []string) error {
		change, err := s.SetChat(v[0], v[1])
		if err != nil {
			return err
		}
		if change == ChatDropped {
			return fault.New(fault.InvalidArgument, "config set-chat", "chat table is full (%d entries)", MaxChats)
		}
		return nil
	}},
	"remove-chat": {"remove-chat <id_or_name>", 1, func(s *Store, v []string) error {
		if !s.RemoveChat(v[0]) {
			return fault.New(fault.ChatNotFound, "config remove-chat", "no chat named or numbered %q", v[0])
		}
		return nil
	}},
	"telegram-url": {"telegram-url <url>", 1, func(s *Store, v []string) error {
		s.SetRelayURL(v[0])
		return nil
	}},
	"address": {"address <ipv6>", 1, func(s *Store, v []string) error {
		return s.SetIPv6Address(v[0])
	}},
	"port": {"port <1-65535>", 1, func(s *Store, v []string) error {
		return s.SetPort(v[0])
	}},
	"uri-path": {"uri-path <path>", 1, func(s *Store, v []string) error {
		s.SetURIPath(v[0])
		return nil
	}},
}

// SetField applies one named setting, as typed in "config set <field> ...".
// A wrong argument count or an invalid value leaves the store unchanged and
// the error carries the usage of the field.
func (s *Store) SetField(name string, values ...string) error {
	f, ok := fields[name]
	if !ok {
		return fault.New(fault.InvalidArgument, "config set", "unknown field %q, expected one of: %s", name, strings.Join(FieldNames(), ", "))
	}
	if len(values) != f.args {
		return fault.New(fault.InvalidArgument, "config set", "usage: config set %s", f.usage)
	}
	if err := f.apply(s, values); err != nil {
		return &fault.Error{Kind: fault.KindOf(err), Op: "config set", Msg: "usage: config set " + f.usage, Err: err}
	}
	return nil
}

// FieldNames lists the settable fields in sorted order.
func FieldNames() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldUsage returns the usage line of a field.
func FieldUsage(name string) (string, bool) {
	f, ok := fields[name]
	return f.usage, ok
}
