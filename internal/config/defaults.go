package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the defaults file path.
const EnvConfig = "COAPNOTIFY_CONFIG"

const (
	DefaultIntervalMinutes = 5
	// MaxIntervalMinutes is one year.
	MaxIntervalMinutes     = 365 * 24 * 60
	DefaultLEDFeedback     = false
	DefaultRelayURL        = "https://api.telegram.org/bot"
	DefaultAddress         = "::1"
	DefaultPort            = "5683"
	DefaultURIPath         = "/message"
	UpdateURIPath          = "/update"

	DefaultWaitBudget      = 2 * time.Second
	DefaultExchangeTimeout = 5 * time.Second
	DefaultPollInterval    = 20 * time.Millisecond
)

// Defaults is the startup configuration, read from a YAML file.
type Defaults struct {
	// IntervalMinutes is the notification period.
	IntervalMinutes int  `yaml:"interval"`
	LEDFeedback     bool `yaml:"led_feedback"`

	BotToken string `yaml:"bot_token"`
	// RelayURL is the messaging API base the relay forwards to.
	RelayURL string `yaml:"telegram_url"`

	// Address, Port and URIPath locate the CoAP relay.
	Address string `yaml:"address"`
	Port    string `yaml:"port"`
	URIPath string `yaml:"uri_path"`

	// Chats is either a list of {name, id} or a "Name:123,Other:456" string.
	Chats ChatList `yaml:"chats"`

	Exchange ExchangeConfig `yaml:"exchange"`

	// RemoteSecret enables "config <secret> ..." commands in relay
	// responses. Empty disables them.
	RemoteSecret string `yaml:"remote_secret"`

	DTLS      DTLSConfig      `yaml:"dtls"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Breaker   BreakerConfig   `yaml:"breaker"`

	// MetricsAddr is the listen address of the Prometheus handler; empty
	// disables it.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ExchangeConfig tunes a single CoAP exchange.
type ExchangeConfig struct {
	// WaitBudget bounds how long the dispatcher waits for the completion flag.
	WaitBudget time.Duration `yaml:"wait_budget"`
	// Timeout bounds a single request on the transport.
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the completion flag polling period.
	PollInterval time.Duration `yaml:"poll_interval"`
	// PollUpdates follows every notification with an update request.
	PollUpdates bool `yaml:"poll_updates"`
}

// DTLSConfig switches the transport to CoAP over DTLS with a pre-shared key.
type DTLSConfig struct {
	Identity string `yaml:"identity"`
	PSK      string `yaml:"psk"`
}

func (d DTLSConfig) Enabled() bool { return d.Identity != "" && d.PSK != "" }

// SensorConfig selects the measurement source: "mock", "cpu" or "serial".
type SensorConfig struct {
	Kind string `yaml:"kind"`
	// Name labels the reading in notifications.
	Name string `yaml:"name"`
	// Metric selects the mock quantity: "temp" or "hum".
	Metric string `yaml:"metric"`
	Port   string `yaml:"port"`
	Baud   int    `yaml:"baud"`
}

// IndicatorConfig selects the feedback LED: "log" or "serial".
type IndicatorConfig struct {
	Kind string `yaml:"kind"`
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// BreakerConfig configures the circuit breaker around periodic exchanges.
type BreakerConfig struct {
	Failures uint32        `yaml:"failures"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// ChatList decodes from a YAML sequence or from the compact string form.
type ChatList []ChatEntry

func (c *ChatList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*c = ParseChatList(node.Value)
		return nil
	case yaml.SequenceNode:
		var entries []struct {
			Name string `yaml:"name"`
			ID   string `yaml:"id"`
		}
		if err := node.Decode(&entries); err != nil {
			return err
		}
		out := make(ChatList, 0, len(entries))
		for _, e := range entries {
			out = append(out, ChatEntry{Name: e.Name, ID: e.ID})
		}
		*c = out
		return nil
	default:
		return fmt.Errorf("chats: expected a list or a \"Name:id,...\" string at line %d", node.Line)
	}
}

// ParseChatList parses "Name:123,Other:456". An entry without a colon is an
// id with no name; blank entries are skipped.
func ParseChatList(s string) ChatList {
	var out ChatList
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, id, ok := strings.Cut(part, ":")
		if !ok {
			out = append(out, ChatEntry{ID: part})
			continue
		}
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, ChatEntry{Name: name, ID: id})
	}
	return out
}

// Default returns the compiled-in defaults.
func Default() *Defaults {
	return &Defaults{
		IntervalMinutes: DefaultIntervalMinutes,
		LEDFeedback:     DefaultLEDFeedback,
		RelayURL:        DefaultRelayURL,
		Address:         DefaultAddress,
		Port:            DefaultPort,
		URIPath:         DefaultURIPath,
		Exchange: ExchangeConfig{
			WaitBudget:   DefaultWaitBudget,
			Timeout:      DefaultExchangeTimeout,
			PollInterval: DefaultPollInterval,
		},
		Sensor:    SensorConfig{Kind: "mock", Name: "mock", Metric: "temp", Baud: 9600},
		Indicator: IndicatorConfig{Kind: "log", Baud: 9600},
		Breaker:   BreakerConfig{Failures: 3, Cooldown: time.Minute},
	}
}

// Load reads the defaults file named by path, or by COAPNOTIFY_CONFIG when
// path is empty. Without either the compiled-in defaults are returned.
func Load(path string) (*Defaults, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile merges the YAML file at path over the compiled-in defaults.
func LoadFile(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	d := Default()
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return d, nil
}

// Validate checks the settings a running notifier cannot do without.
func (d *Defaults) Validate() error {
	var errs []error
	if d.BotToken == "" {
		errs = append(errs, errors.New("bot_token is required"))
	}
	if len(d.Chats) == 0 {
		errs = append(errs, errors.New("at least one chat is required"))
	}
	if d.IntervalMinutes <= 0 || d.IntervalMinutes > MaxIntervalMinutes {
		errs = append(errs, fmt.Errorf("interval must be 1-%d minutes, got %d", MaxIntervalMinutes, d.IntervalMinutes))
	}
	if _, err := ParseAddress(d.Address); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParsePort(d.Port); err != nil {
		errs = append(errs, err)
	}
	if len(d.Chats) > MaxChats {
		errs = append(errs, fmt.Errorf("at most %d chats are supported, got %d", MaxChats, len(d.Chats)))
	}
	switch d.Sensor.Kind {
	case "", "mock", "cpu", "serial":
	default:
		errs = append(errs, fmt.Errorf("unknown sensor kind %q", d.Sensor.Kind))
	}
	switch d.Indicator.Kind {
	case "", "log", "serial":
	default:
		errs = append(errs, fmt.Errorf("unknown indicator kind %q", d.Indicator.Kind))
	}
	return errors.Join(errs...)
}

// NewStore builds a store from d. Values the store rejects are reported
// together; the store keeps its defaults for those fields.
func NewStore(d *Defaults) (*Store, error) {
	s := New()
	var errs []error
	if d.IntervalMinutes > 0 {
		if err := s.SetInterval(d.IntervalMinutes); err != nil {
			errs = append(errs, err)
		}
	}
	s.SetFeedback(d.LEDFeedback)
	s.SetBotToken(d.BotToken)
	if d.RelayURL != "" {
		s.SetRelayURL(d.RelayURL)
	}
	if d.Address != "" {
		if err := s.SetIPv6Address(d.Address); err != nil {
			errs = append(errs, err)
		}
	}
	if d.Port != "" {
		if err := s.SetPort(d.Port); err != nil {
			errs = append(errs, err)
		}
	}
	if d.URIPath != "" {
		s.SetURIPath(d.URIPath)
	}
	for _, c := range d.Chats {
		var (
			change ChatChange
			err    error
		)
		if c.Name == "" {
			change, err = s.SetChatID(c.ID)
		} else {
			change, err = s.SetChat(c.Name, c.ID)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if change == ChatDropped {
			errs = append(errs, fmt.Errorf("chat %s:%s dropped, table is full", c.Name, c.ID))
		}
	}
	return s, errors.Join(errs...)
}
