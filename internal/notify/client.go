// Package notify sends notifications and update polls to the relay over
// CoAP and feeds the relay's answers to the command interpreter. One
// exchange is in flight at a time; its completion is published through an
// atomic flag that callers poll with a bounded budget.
package notify

import (
	"context"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"coapnotify/internal/config"
	"coapnotify/internal/fault"
	"coapnotify/internal/logx"
	"coapnotify/internal/lru"
	"coapnotify/internal/metrics"
	"coapnotify/internal/remotecmd"
	"coapnotify/internal/wire"
)

const (
	KindNotification = "notification"
	KindUpdate       = "update"
)

// deadlineGrace is added to the exchange timeout before an exchange whose
// callback never fired is considered abandoned.
const deadlineGrace = time.Second

// maxReassembly bounds the Block2 reassembly buffer. It equals the
// interpreter's cap so a reassembled payload is never refused after the fact.
const maxReassembly = wire.MaxCommandPayload

// CommandSink receives the payload of a completed exchange.
type CommandSink interface {
	Apply(payload string) remotecmd.Report
}

type Options struct {
	// ExchangeTimeout bounds each request of an exchange.
	ExchangeTimeout time.Duration
	// PollInterval is the period of WaitForCompletion.
	PollInterval time.Duration
	Metrics      *metrics.Metrics
}

type responseKey struct {
	exchange uint16
	message  int32
}

type Client struct {
	store     *config.Store
	transport Transport
	commands  CommandSink
	metrics   *metrics.Metrics
	timeout   time.Duration
	poll      time.Duration
	seen      *lru.Cache[responseKey]

	completed atomic.Bool

	mu      sync.Mutex
	current *exchange
	nextID  uint16
	nowF    func() time.Time
}

func New(store *config.Store, transport Transport, commands CommandSink, opts Options) *Client {
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = config.DefaultExchangeTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	return &Client{
		store:     store,
		transport: transport,
		commands:  commands,
		metrics:   opts.Metrics,
		timeout:   opts.ExchangeTimeout,
		poll:      opts.PollInterval,
		seen:      lru.New[responseKey](64, time.Minute),
		nowF:      time.Now,
	}
}

// SendNotification posts message to recipient, a chat name or "all". It
// returns once the request is on the wire; the response is handled by
// OnResponse and signalled through the completion flag.
func (c *Client) SendNotification(ctx context.Context, message, recipient string) error {
	const op = "notify send"
	if message == "" {
		return fault.New(fault.InvalidArgument, op, "message must not be empty")
	}
	chatIDs, err := c.resolveRecipient(recipient)
	if err != nil {
		return err
	}
	snap := c.store.Snapshot()
	payload := wire.MakeNotification(wire.Notification{
		RelayURL: snap.RelayURL,
		Token:    snap.BotToken,
		ChatIDs:  chatIDs,
		Text:     message,
	})
	return c.start(ctx, KindNotification, snap, snap.URIPath, payload)
}

// RequestRemoteUpdates asks the relay for pending commands.
func (c *Client) RequestRemoteUpdates(ctx context.Context) error {
	snap := c.store.Snapshot()
	payload := wire.MakeUpdateRequest(snap.RelayURL, snap.BotToken)
	return c.start(ctx, KindUpdate, snap, config.UpdateURIPath, payload)
}

func (c *Client) resolveRecipient(recipient string) (string, error) {
	if recipient == "" || recipient == "all" {
		ids := c.store.ChatIDsJoined()
		if ids == "" {
			return "", fault.New(fault.ChatNotFound, "notify send", "no chats configured")
		}
		return ids, nil
	}
	id, ok := c.store.LookupChatID(recipient)
	if !ok {
		return "", fault.New(fault.ChatNotFound, "notify send", "no chat named %q", recipient)
	}
	return id, nil
}

func (c *Client) start(ctx context.Context, kind string, snap config.Snapshot, uriPath, payload string) error {
	op := "notify " + kind
	if capacity := wire.Capacity(uriPath); len(payload) > capacity {
		return fault.New(fault.PayloadTooLarge, op, "payload of %d bytes exceeds %d", len(payload), capacity)
	}
	addr, err := netip.ParseAddr(snap.Address)
	if err != nil || !addr.Is6() {
		return fault.New(fault.AddressFormatInvalid, op, "%q is not an IPv6 address", snap.Address)
	}
	port, err := config.ParsePort(snap.Port)
	if err != nil {
		return err
	}
	ep := Endpoint{Addr: addr, Port: port}

	c.mu.Lock()
	if prev := c.current; prev != nil && !prev.stage.Done() {
		if c.nowF().Before(prev.deadline) {
			c.mu.Unlock()
			return fault.New(fault.ExchangeBusy, op, "exchange %d is %s", prev.reqCtx.MessageID, prev.stage)
		}
		c.failLocked(prev, fault.New(fault.CoapTimeout, op, "exchange %d abandoned without response", prev.reqCtx.MessageID))
	}
	c.nextID++
	now := c.nowF()
	ex := &exchange{
		reqCtx:   RequestContext{MessageID: c.nextID, URIPath: uriPath},
		kind:     kind,
		endpoint: ep,
		stage:    StageBuilt,
		started:  now,
		deadline: now.Add(c.timeout + deadlineGrace),
		parent:   context.WithoutCancel(ctx),
	}
	c.current = ex
	c.completed.Store(false)
	c.mu.Unlock()
	c.metrics.ExchangeStarted()

	req := Request{
		Method:     MethodPost,
		Endpoint:   ep,
		URIPath:    uriPath,
		Payload:    []byte(payload),
		ExchangeID: ex.reqCtx.MessageID,
	}
	n, err := c.send(ex, req)
	if err != nil {
		ferr := fault.Wrap(fault.CoapSendFailed, op, err)
		c.mu.Lock()
		c.failLocked(ex, ferr)
		c.mu.Unlock()
		return ferr
	}
	c.mu.Lock()
	if ex.stage == StageBuilt {
		c.advanceLocked(ex, StageSent)
	}
	c.mu.Unlock()
	logx.Debugf("notify sent: id=%d kind=%s endpoint=%s path=%s bytes=%d", ex.reqCtx.MessageID, kind, ep, uriPath, n)
	return nil
}

func (c *Client) send(ex *exchange, req Request) (int, error) {
	ctx, cancel := context.WithTimeout(ex.parent, c.timeout)
	id := ex.reqCtx.MessageID
	n, err := c.transport.Send(ctx, req, func(resp Response) {
		cancel()
		c.OnResponse(id, resp)
	})
	if err != nil {
		cancel()
	}
	return n, err
}

// OnResponse handles the transport's answer for exchange exchangeID.
func (c *Client) OnResponse(exchangeID uint16, resp Response) {
	const op = "notify response"
	if resp.MessageID >= 0 && c.seen.Seen(responseKey{exchange: exchangeID, message: resp.MessageID}) {
		logx.Debugf("notify duplicate response: id=%d mid=%d", exchangeID, resp.MessageID)
		return
	}
	c.mu.Lock()
	ex := c.current
	if ex == nil || ex.reqCtx.MessageID != exchangeID || ex.stage.Done() {
		c.mu.Unlock()
		logx.Errorf("%v", fault.New(fault.NullReference, op, "no exchange %d in flight", exchangeID))
		return
	}
	switch {
	case resp.Timeout:
		c.failLocked(ex, fault.New(fault.CoapTimeout, op, "no response from %s", ex.endpoint))
		c.mu.Unlock()
		return
	case resp.Err != nil:
		c.failLocked(ex, fault.Wrap(fault.CoapSendFailed, op, resp.Err))
		c.mu.Unlock()
		return
	}
	logx.Debugf("notify response: id=%d code=%s bytes=%d block=%v", exchangeID, resp.Code, len(resp.Payload), resp.Block2)

	if b := resp.Block2; b != nil {
		if b.Num != ex.block {
			c.failLocked(ex, fault.New(fault.CoapPayloadFailed, op, "block %d out of order, want %d", b.Num, ex.block))
			c.mu.Unlock()
			return
		}
		if len(ex.buf)+len(resp.Payload) > maxReassembly {
			c.failLocked(ex, fault.New(fault.CoapPayloadFailed, op, "response exceeds %d bytes", maxReassembly))
			c.mu.Unlock()
			return
		}
		ex.buf = append(ex.buf, resp.Payload...)
		if b.More {
			c.requestBlockLocked(ex, b.Next())
			return
		}
	} else {
		ex.buf = append(ex.buf, resp.Payload...)
	}

	if len(ex.buf) == 0 {
		c.advanceLocked(ex, StageAckOnly)
		c.completeLocked(ex)
		c.mu.Unlock()
		return
	}
	payload := string(ex.buf)
	c.advanceLocked(ex, StagePayloadReceived)
	c.mu.Unlock()

	if c.commands != nil {
		rep := c.commands.Apply(payload)
		c.metrics.Commands(rep.Applied, rep.Skipped, rep.Ignored, rep.Dropped)
	}

	c.mu.Lock()
	if c.current == ex && ex.stage == StagePayloadReceived {
		c.completeLocked(ex)
	}
	c.mu.Unlock()
}

// requestBlockLocked asks for the next Block2 block against the endpoint and
// path of the original request. It releases c.mu.
func (c *Client) requestBlockLocked(ex *exchange, next BlockOption) {
	ex.block = next.Num
	ex.deadline = c.nowF().Add(c.timeout + deadlineGrace)
	c.advanceLocked(ex, StageAwaitingBlock)
	req := Request{
		Method:     MethodGet,
		Endpoint:   ex.endpoint,
		URIPath:    ex.reqCtx.URIPath,
		Block2:     &next,
		ExchangeID: ex.reqCtx.MessageID,
	}
	c.mu.Unlock()

	c.metrics.BlockRequested()
	if _, err := c.send(ex, req); err != nil {
		c.mu.Lock()
		if c.current == ex && !ex.stage.Done() {
			c.failLocked(ex, fault.Wrap(fault.CoapSendFailed, "notify block", err))
		}
		c.mu.Unlock()
	}
}

func (c *Client) advanceLocked(ex *exchange, to Stage) {
	logx.Debugf("notify exchange: id=%d %s -> %s", ex.reqCtx.MessageID, ex.stage, to)
	ex.stage = to
}

func (c *Client) completeLocked(ex *exchange) {
	c.advanceLocked(ex, StageComplete)
	c.completed.Store(true)
	c.metrics.ExchangeFinished(ex.kind, "complete")
	c.metrics.ObserveRTT(c.nowF().Sub(ex.started))
}

func (c *Client) failLocked(ex *exchange, err error) {
	ex.err = err
	c.advanceLocked(ex, StageFailed)
	c.completed.Store(false)
	c.metrics.ExchangeFinished(ex.kind, fault.KindOf(err).String())
	logx.Errorf("%v", err)
}

// Completed reports the completion flag of the latest exchange.
func (c *Client) Completed() bool {
	return c.completed.Load()
}

// WaitForCompletion polls the completion flag until it is set, the exchange
// fails, ctx ends or budget elapses. A non-positive budget means the
// default budget; the wait is never unbounded.
func (c *Client) WaitForCompletion(ctx context.Context, budget time.Duration) bool {
	if budget <= 0 {
		budget = config.DefaultWaitBudget
	}
	if c.completed.Load() {
		return true
	}
	timer := time.NewTimer(budget)
	defer timer.Stop()
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if c.completed.Load() {
				return true
			}
			if c.Status().Stage == StageFailed {
				return false
			}
		case <-timer.C:
			return c.completed.Load()
		case <-ctx.Done():
			return false
		}
	}
}

// Status describes the latest exchange.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	ex := c.current
	if ex == nil {
		return Status{Stage: StageIdle}
	}
	return Status{
		ExchangeID: ex.reqCtx.MessageID,
		Kind:       ex.kind,
		Stage:      ex.stage,
		Block:      ex.block,
		Err:        ex.err,
		Started:    ex.started,
	}
}

// Err returns the failure of the latest exchange, if any.
func (c *Client) Err() error {
	return c.Status().Err
}
