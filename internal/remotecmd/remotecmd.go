// Package remotecmd applies the command stream found in relay responses to
// the configuration store.
package remotecmd

import (
	"crypto/subtle"

	"coapnotify/internal/config"
	"coapnotify/internal/logx"
	"coapnotify/internal/wire"
)

// Report counts what Apply did with each token of a payload.
type Report struct {
	Applied int
	// Skipped counts malformed or rejected tokens.
	Skipped int
	// Ignored counts status messages and disabled commands.
	Ignored int
	// Dropped counts chat assignments lost to a full table.
	Dropped int
	// Oversized is set when the whole payload was refused.
	Oversized bool
}

func (r Report) Total() int { return r.Applied + r.Skipped + r.Ignored + r.Dropped }

type Interpreter struct {
	store  *config.Store
	secret string
}

// New returns an interpreter mutating store. An empty secret disables
// "config <secret> ..." commands.
func New(store *config.Store, secret string) *Interpreter {
	return &Interpreter{store: store, secret: secret}
}

// Apply interprets payload token by token. Bad tokens are skipped; the rest
// of the stream is still applied.
func (in *Interpreter) Apply(payload string) Report {
	var rep Report
	if len(payload) > wire.MaxCommandPayload {
		logx.Errorf("remotecmd: payload of %d bytes exceeds %d, ignored", len(payload), wire.MaxCommandPayload)
		rep.Oversized = true
		return rep
	}
	for _, token := range wire.SplitCommands(payload) {
		cmd, ok := wire.ParseCommand(token)
		if !ok {
			logx.Debugf("remotecmd skip: token=%q", token)
			rep.Skipped++
			continue
		}
		in.apply(token, cmd, &rep)
	}
	logx.Debugf("remotecmd apply: applied=%d skipped=%d ignored=%d dropped=%d", rep.Applied, rep.Skipped, rep.Ignored, rep.Dropped)
	return rep
}

func (in *Interpreter) apply(token string, cmd wire.Command, rep *Report) {
	switch cmd.Kind {
	case wire.CmdSentinel:
		logx.Debugf("remotecmd status: %q", token)
		rep.Ignored++
	case wire.CmdFeedback:
		in.store.SetFeedback(cmd.Feedback)
		logx.Infof("remote: led feedback set to %v", cmd.Feedback)
		rep.Applied++
	case wire.CmdInterval:
		if err := in.store.SetInterval(cmd.Interval); err != nil {
			logx.Errorf("remote: %v", err)
			rep.Skipped++
			return
		}
		logx.Infof("remote: interval set to %d minutes", cmd.Interval)
		rep.Applied++
	case wire.CmdRemoveChat:
		if in.store.RemoveChat(cmd.Target) {
			logx.Infof("remote: chat %s removed", cmd.Target)
		} else {
			logx.Debugf("remotecmd remove: no chat %q", cmd.Target)
		}
		rep.Applied++
	case wire.CmdSetChat:
		change, err := in.store.SetChat(cmd.Name, cmd.ID)
		switch {
		case err != nil:
			logx.Errorf("remote: %v", err)
			rep.Skipped++
		case change == config.ChatDropped:
			logx.Errorf("remote: chat table full, %s:%s dropped", cmd.Name, cmd.ID)
			rep.Dropped++
		default:
			logx.Infof("remote: chat %s:%s %s", cmd.Name, cmd.ID, change)
			rep.Applied++
		}
	case wire.CmdConfig:
		in.applyConfig(cmd.Args, rep)
	default:
		rep.Skipped++
	}
}

// applyConfig handles "config <secret> <field> <v1> [v2]".
func (in *Interpreter) applyConfig(args []string, rep *Report) {
	if in.secret == "" {
		logx.Debugf("remotecmd config: disabled, no secret configured")
		rep.Ignored++
		return
	}
	if len(args) < 2 {
		logx.Errorf("remote: config command without field")
		rep.Skipped++
		return
	}
	if subtle.ConstantTimeCompare([]byte(args[0]), []byte(in.secret)) != 1 {
		logx.Errorf("remote: config command with wrong secret")
		rep.Skipped++
		return
	}
	if err := in.store.SetField(args[1], args[2:]...); err != nil {
		logx.Errorf("remote: %v", err)
		rep.Skipped++
		return
	}
	logx.Infof("remote: config %s updated", args[1])
	rep.Applied++
}
