// Package admin holds the administrative operations exposed to the shell and
// the CLI: configuration inspection and changes, on-demand CoAP exchanges,
// sensor reads and the feedback LED.
package admin

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"coapnotify/internal/config"
	"coapnotify/internal/dispatch"
	"coapnotify/internal/logx"
	"coapnotify/internal/sensor"
)

const hidden = "[HIDDEN]"

type Admin struct {
	store    *config.Store
	notifier *dispatch.Notifier
}

func New(store *config.Store, notifier *dispatch.Notifier) *Admin {
	return &Admin{store: store, notifier: notifier}
}

// ConfigShow renders the configuration with the bot token masked.
func (a *Admin) ConfigShow() string {
	snap := a.store.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "interval:     %d min\n", snap.IntervalMinutes)
	fmt.Fprintf(&b, "feedback:     %s\n", onOff(snap.LEDFeedback))
	fmt.Fprintf(&b, "bot-token:    %s\n", maskToken(snap.BotToken))
	fmt.Fprintf(&b, "telegram-url: %s\n", snap.RelayURL)
	fmt.Fprintf(&b, "address:      %s\n", snap.Address)
	fmt.Fprintf(&b, "port:         %s\n", snap.Port)
	fmt.Fprintf(&b, "uri-path:     %s\n", snap.URIPath)
	if len(snap.Chats) == 0 {
		b.WriteString("chats:        (none)\n")
		return b.String()
	}
	fmt.Fprintf(&b, "chats:        %d/%d\n", len(snap.Chats), config.MaxChats)
	for _, c := range snap.Chats {
		name := c.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "  %-15s %s\n", name, c.ID)
	}
	return b.String()
}

var jsonOptions = protojson.MarshalOptions{
	Multiline:       true,
	Indent:          "  ",
	EmitUnpopulated: true,
}

// ConfigJSON renders the configuration as JSON, token masked.
func (a *Admin) ConfigJSON() (string, error) {
	snap := a.store.Snapshot()
	chats := make([]any, 0, len(snap.Chats))
	for _, c := range snap.Chats {
		chats = append(chats, map[string]any{"name": c.Name, "id": c.ID})
	}
	st, err := structpb.NewStruct(map[string]any{
		"interval":     snap.IntervalMinutes,
		"feedback":     snap.LEDFeedback,
		"bot_token":    maskToken(snap.BotToken),
		"telegram_url": snap.RelayURL,
		"address":      snap.Address,
		"port":         snap.Port,
		"uri_path":     snap.URIPath,
		"chats":        chats,
	})
	if err != nil {
		return "", fmt.Errorf("build config struct: %w", err)
	}
	data, err := jsonOptions.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// ConfigSet changes one field. On error nothing is applied and the error
// carries the usage of the field.
func (a *Admin) ConfigSet(field string, values ...string) error {
	if err := a.store.SetField(field, values...); err != nil {
		return err
	}
	logx.Infof("config %s updated", field)
	return nil
}

// CoapSend sends message to recipient, a chat name or "all", and waits for
// the relay's answer.
func (a *Admin) CoapSend(ctx context.Context, recipient, message string) (dispatch.Result, error) {
	return a.notifier.SendNow(ctx, recipient, message)
}

func (a *Admin) CoapRequestUpdates(ctx context.Context) (dispatch.Result, error) {
	return a.notifier.RequestUpdatesNow(ctx)
}

func (a *Admin) Sensor(ctx context.Context) (sensor.Reading, error) {
	return a.notifier.ReadSensor(ctx)
}

func (a *Admin) LED(ctx context.Context, on bool) error {
	return a.notifier.SetLED(ctx, on)
}

func maskToken(token string) string {
	if token == "" {
		return "(unset)"
	}
	return hidden
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
