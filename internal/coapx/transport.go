// Package coapx carries notify requests over go-coap, on plain UDP or on
// DTLS with a pre-shared key.
package coapx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	piondtls "github.com/pion/dtls/v3"
	coapdtls "github.com/plgd-dev/go-coap/v3/dtls"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/plgd-dev/go-coap/v3/net/blockwise"
	"github.com/plgd-dev/go-coap/v3/options"
	"github.com/plgd-dev/go-coap/v3/udp"
	udpClient "github.com/plgd-dev/go-coap/v3/udp/client"

	"coapnotify/internal/logx"
	"coapnotify/internal/notify"
)

type Config struct {
	// Identity and PSK enable CoAP over DTLS when both are set.
	Identity string
	PSK      string
	// Timeout bounds a synchronous request made through Do or Ping.
	Timeout time.Duration
}

func (c Config) secure() bool { return c.Identity != "" && c.PSK != "" }

// Transport keeps one connection per relay endpoint. Library blockwise
// handling is off; Block2 continuations are driven by the notify client.
type Transport struct {
	cfg Config

	mu    sync.Mutex
	conns map[notify.Endpoint]*udpClient.Conn
}

var _ notify.Transport = (*Transport)(nil)

func New(cfg Config) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Transport{cfg: cfg, conns: map[notify.Endpoint]*udpClient.Conn{}}
}

// Scheme is "coaps" with DTLS and "coap" without.
func (t *Transport) Scheme() string {
	if t.cfg.secure() {
		return "coaps"
	}
	return "coap"
}

// Send implements notify.Transport. The exchange runs in its own goroutine
// and reports through onResponse.
func (t *Transport) Send(ctx context.Context, req notify.Request, onResponse func(notify.Response)) (int, error) {
	conn, err := t.conn(req.Endpoint)
	if err != nil {
		return 0, err
	}
	go func() {
		resp, err := t.do(ctx, conn, req)
		if err != nil {
			t.drop(req.Endpoint, conn, err)
			onResponse(failure(err))
			return
		}
		onResponse(resp)
	}()
	return len(req.Payload), nil
}

// Do performs req and waits for the response.
func (t *Transport) Do(ctx context.Context, req notify.Request) (notify.Response, error) {
	conn, err := t.conn(req.Endpoint)
	if err != nil {
		return notify.Response{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()
	resp, err := t.do(ctx, conn, req)
	if err != nil {
		t.drop(req.Endpoint, conn, err)
		return notify.Response{}, err
	}
	return resp, nil
}

// Ping sends an empty confirmable message and waits for the reset.
func (t *Transport) Ping(ctx context.Context, ep notify.Endpoint) (time.Duration, error) {
	conn, err := t.conn(ep)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()
	start := time.Now()
	if err := conn.Ping(ctx); err != nil {
		t.drop(ep, conn, err)
		return 0, fmt.Errorf("ping %s: %w", ep, err)
	}
	return time.Since(start), nil
}

func (t *Transport) do(ctx context.Context, conn *udpClient.Conn, req notify.Request) (notify.Response, error) {
	var opts []message.Option
	if req.Block2 != nil {
		opts = append(opts, message.Option{ID: message.Block2, Value: encodeUint(req.Block2.Value())})
	}
	logx.Debugf("coap request: %s %s://%s%s bytes=%d block=%v", req.Method, t.Scheme(), req.Endpoint, req.URIPath, len(req.Payload), req.Block2)

	var (
		msg *pool.Message
		err error
	)
	switch req.Method {
	case notify.MethodGet:
		msg, err = conn.Get(ctx, req.URIPath, opts...)
	case notify.MethodPost:
		msg, err = conn.Post(ctx, req.URIPath, message.TextPlain, bytes.NewReader(req.Payload), opts...)
	default:
		return notify.Response{}, fmt.Errorf("unsupported method %s", req.Method)
	}
	if err != nil {
		return notify.Response{}, err
	}
	return convert(msg)
}

func convert(msg *pool.Message) (notify.Response, error) {
	resp := notify.Response{
		MessageID: msg.MessageID(),
		Code:      notify.Code(msg.Code()),
	}
	if msg.Body() != nil {
		body, err := msg.ReadBody()
		if err != nil {
			return notify.Response{}, fmt.Errorf("read response body: %w", err)
		}
		resp.Payload = body
	}
	if v, err := msg.GetOptionUint32(message.Block2); err == nil {
		if b, ok := notify.ParseBlockOption(v); ok {
			resp.Block2 = &b
		}
	}
	logx.Debugf("coap response: mid=%d code=%s bytes=%d block=%v", resp.MessageID, resp.Code, len(resp.Payload), resp.Block2)
	return resp, nil
}

func failure(err error) notify.Response {
	if errors.Is(err, context.DeadlineExceeded) {
		return notify.Response{MessageID: -1, Timeout: true}
	}
	return notify.Response{MessageID: -1, Err: err}
}

func (t *Transport) conn(ep notify.Endpoint) (*udpClient.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.conns[ep]; ok {
		return c, nil
	}
	c, err := t.dial(ep)
	if err != nil {
		return nil, err
	}
	t.conns[ep] = c
	return c, nil
}

func (t *Transport) dial(ep notify.Endpoint) (*udpClient.Conn, error) {
	bw := options.WithBlockwise(false, blockwise.SZX1024, t.cfg.Timeout)
	if !t.cfg.secure() {
		c, err := udp.Dial(ep.String(), bw)
		if err != nil {
			return nil, fmt.Errorf("dial coap://%s: %w", ep, err)
		}
		logx.Debugf("coap dialed: %s", ep)
		return c, nil
	}
	psk := []byte(t.cfg.PSK)
	dcfg := &piondtls.Config{
		PSK: func([]byte) ([]byte, error) {
			return psk, nil
		},
		PSKIdentityHint: []byte(t.cfg.Identity),
		CipherSuites: []piondtls.CipherSuiteID{
			piondtls.TLS_PSK_WITH_AES_128_CCM_8,
			piondtls.TLS_PSK_WITH_AES_128_GCM_SHA256,
		},
		LoggerFactory: logx.DTLSLoggerFactory(),
	}
	c, err := coapdtls.Dial(ep.String(), dcfg, bw)
	if err != nil {
		return nil, fmt.Errorf("dial coaps://%s: %w", ep, err)
	}
	logx.Debugf("coap dialed: %s dtls identity=%s", ep, t.cfg.Identity)
	return c, nil
}

// drop forgets a connection after a failure so the next request redials.
// Timeouts keep the connection.
func (t *Transport) drop(ep notify.Endpoint, conn *udpClient.Conn, cause error) {
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		return
	}
	t.mu.Lock()
	if t.conns[ep] == conn {
		delete(t.conns, ep)
	}
	t.mu.Unlock()
	if err := conn.Close(); err != nil {
		logx.Debugf("coap close: %s err=%v", ep, err)
	}
}

// Close shuts every cached connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	conns := t.conns
	t.conns = map[notify.Endpoint]*udpClient.Conn{}
	t.mu.Unlock()
	var errs []error
	for ep, c := range conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ep, err))
		}
	}
	return errors.Join(errs...)
}

// encodeUint renders v as a minimal big-endian CoAP uint option value.
func encodeUint(v uint32) []byte {
	switch {
	case v == 0:
		return []byte{}
	case v <= 0xff:
		return []byte{byte(v)}
	case v <= 0xffff:
		return []byte{byte(v >> 8), byte(v)}
	case v <= 0xffffff:
		return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
	default:
		return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	}
}
