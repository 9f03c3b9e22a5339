package config

import (
	"net/netip"
	"strconv"
	"strings"
	"sync"

	"coapnotify/internal/fault"
)

// ChatEntry is a named recipient of the relay service.
type ChatEntry struct {
	Name string
	ID   string
}

type chatSlot struct {
	name BoundedString
	id   BoundedString
}

func (c *chatSlot) free() bool { return c.id.Empty() }

// ChatChange describes what SetChat did to the registry.
type ChatChange int

const (
	ChatInserted ChatChange = iota
	ChatIDUpdated
	ChatNameUpdated
	// ChatDropped means the table was full and nothing matched; the store
	// was left untouched.
	ChatDropped
)

func (c ChatChange) String() string {
	switch c {
	case ChatInserted:
		return "inserted"
	case ChatIDUpdated:
		return "id-updated"
	case ChatNameUpdated:
		return "name-updated"
	case ChatDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the store.
type Snapshot struct {
	IntervalMinutes int
	LEDFeedback     bool
	BotToken        string
	RelayURL        string
	Address         string
	Port            string
	URIPath         string
	Chats           []ChatEntry
}

// Store is the runtime configuration of the bridge. It is shared between the
// notifier loop, the shell and the response callback, so every access goes
// through the lock.
type Store struct {
	mu sync.RWMutex

	interval int
	feedback bool
	botToken BoundedString
	relayURL BoundedString
	address  BoundedString
	port     BoundedString
	uriPath  BoundedString
	chats    [MaxChats]chatSlot
}

// New returns a store holding the compiled-in defaults and no chats.
func New() *Store {
	s := &Store{
		interval: DefaultIntervalMinutes,
		feedback: DefaultLEDFeedback,
		botToken: NewBounded(BotTokenCap),
		relayURL: NewBounded(RelayURLCap),
		address:  NewBounded(AddressCap),
		port:     NewBounded(PortCap),
		uriPath:  NewBounded(URIPathCap),
	}
	for i := range s.chats {
		s.chats[i] = chatSlot{name: NewBounded(ChatNameCap), id: NewBounded(ChatIDCap)}
	}
	s.relayURL.Set(DefaultRelayURL)
	s.address.Set(DefaultAddress)
	s.port.Set(DefaultPort)
	s.uriPath.Set(DefaultURIPath)
	return s
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		IntervalMinutes: s.interval,
		LEDFeedback:     s.feedback,
		BotToken:        s.botToken.String(),
		RelayURL:        s.relayURL.String(),
		Address:         s.address.String(),
		Port:            s.port.String(),
		URIPath:         s.uriPath.String(),
		Chats:           s.chatsLocked(),
	}
}

func (s *Store) Interval() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interval
}

func (s *Store) LEDFeedback() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feedback
}

func (s *Store) BotToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.botToken.String()
}

func (s *Store) RelayURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.relayURL.String()
}

func (s *Store) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address.String()
}

func (s *Store) Port() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port.String()
}

func (s *Store) URIPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uriPath.String()
}

// SetInterval sets the notification interval in minutes, 1..MaxIntervalMinutes.
func (s *Store) SetInterval(minutes int) error {
	if minutes <= 0 || minutes > MaxIntervalMinutes {
		return fault.New(fault.InvalidArgument, "config interval", "interval must be 1-%d minutes, got %d", MaxIntervalMinutes, minutes)
	}
	s.mu.Lock()
	s.interval = minutes
	s.mu.Unlock()
	return nil
}

// SetIntervalString parses a decimal minute count.
func (s *Store) SetIntervalString(raw string) error {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fault.New(fault.InvalidArgument, "config interval", "interval must be a positive number, got %q", raw)
	}
	return s.SetInterval(n)
}

func (s *Store) SetFeedback(enable bool) {
	s.mu.Lock()
	s.feedback = enable
	s.mu.Unlock()
}

// SetFeedbackFlag accepts "0" (off) or "1" (on).
func (s *Store) SetFeedbackFlag(raw string) error {
	switch strings.TrimSpace(raw) {
	case "0":
		s.SetFeedback(false)
	case "1":
		s.SetFeedback(true)
	default:
		return fault.New(fault.InvalidArgument, "config feedback", "feedback must be 0 (off) or 1 (on), got %q", raw)
	}
	return nil
}

// SetPort validates raw as a port in 1..65535 and stores its canonical
// decimal form.
func (s *Store) SetPort(raw string) error {
	n, err := ParsePort(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.port.Set(strconv.Itoa(int(n)))
	s.mu.Unlock()
	return nil
}

// ParsePort converts a port string, rejecting anything outside 1..65535.
func ParsePort(raw string) (uint16, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 65535 {
		return 0, fault.New(fault.InvalidArgument, "config port", "port must be a valid number (1-65535), got %q", raw)
	}
	return uint16(n), nil
}

// ParseAddress checks that raw is an IPv6 literal that fits the address
// field without truncation.
func ParseAddress(raw string) (netip.Addr, error) {
	if len(raw) > AddressCap-1 {
		return netip.Addr{}, fault.New(fault.AddressFormatInvalid, "config address", "address longer than %d bytes", AddressCap-1)
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil || !addr.Is6() {
		return netip.Addr{}, fault.New(fault.AddressFormatInvalid, "config address", "%q is not an IPv6 address", raw)
	}
	return addr, nil
}

// SetIPv6Address stores raw after ParseAddress accepted it.
func (s *Store) SetIPv6Address(raw string) error {
	if _, err := ParseAddress(raw); err != nil {
		return err
	}
	s.SetAddress(raw)
	return nil
}

// The string setters below report whether the value had to be cut. SetAddress
// stores raw as given; SetIPv6Address is the validated form.

func (s *Store) SetBotToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botToken.Set(token)
}

func (s *Store) SetRelayURL(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relayURL.Set(url)
}

func (s *Store) SetAddress(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address.Set(addr)
}

func (s *Store) SetURIPath(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uriPath.Set(path)
}
