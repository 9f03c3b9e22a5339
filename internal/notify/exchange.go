package notify

import (
	"context"
	"fmt"
	"time"
)

// Stage is the position of an exchange in its lifecycle.
type Stage int

const (
	StageIdle Stage = iota
	StageBuilt
	StageSent
	StageAckOnly
	StagePayloadReceived
	StageAwaitingBlock
	StageComplete
	StageFailed
)

var stageNames = [...]string{
	StageIdle:            "idle",
	StageBuilt:           "built",
	StageSent:            "sent",
	StageAckOnly:         "ack-only",
	StagePayloadReceived: "payload-received",
	StageAwaitingBlock:   "awaiting-block",
	StageComplete:        "complete",
	StageFailed:          "failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Done reports whether a new exchange may start.
func (s Stage) Done() bool {
	return s == StageIdle || s == StageComplete || s == StageFailed
}

// RequestContext travels with every request of one exchange so the response
// callback can find its way back.
type RequestContext struct {
	MessageID uint16
	URIPath   string
}

// exchange is one logical request: the initial POST plus any Block2
// continuations. Guarded by Client.mu.
type exchange struct {
	reqCtx   RequestContext
	kind     string
	endpoint Endpoint
	stage    Stage
	// block is the Block2 number expected next.
	block    uint32
	buf      []byte
	err      error
	started  time.Time
	deadline time.Time
	parent   context.Context
}

// Status is a snapshot of the current exchange.
type Status struct {
	ExchangeID uint16
	Kind       string
	Stage      Stage
	// Block is the next Block2 number while Stage is StageAwaitingBlock.
	Block   uint32
	Err     error
	Started time.Time
}
