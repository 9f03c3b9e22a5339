package notify

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

type Method int

const (
	MethodGet Method = iota + 1
	MethodPost
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	default:
		return "Method(" + strconv.Itoa(int(m)) + ")"
	}
}

// Code is a CoAP response code, class in the top three bits.
type Code uint8

const (
	CodeEmpty   Code = 0x00
	CodeCreated Code = 0x41
	CodeChanged Code = 0x44
	CodeContent Code = 0x45
)

func (c Code) Class() uint8 { return uint8(c) >> 5 }

func (c Code) Success() bool { return c.Class() == 2 }

func (c Code) String() string {
	return fmt.Sprintf("%d.%02d", c.Class(), uint8(c)&0x1f)
}

// Endpoint is the relay's UDP address.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// ParseEndpoint accepts an IPv6 literal, optionally with a zone, and a port.
func ParseEndpoint(address string, port uint16) (Endpoint, bool) {
	addr, err := netip.ParseAddr(address)
	if err != nil || !addr.Is6() || port == 0 {
		return Endpoint{}, false
	}
	return Endpoint{Addr: addr, Port: port}, true
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Addr.String(), strconv.Itoa(int(e.Port)))
}

// Request is one CoAP request of an exchange.
type Request struct {
	Method   Method
	Endpoint Endpoint
	URIPath  string
	Payload  []byte
	// Block2 asks for a specific block of the response.
	Block2 *BlockOption
	// ExchangeID correlates the request with its exchange.
	ExchangeID uint16
}

// Response is what the transport hands back for a request.
type Response struct {
	// MessageID is the CoAP message id, or -1 when unknown.
	MessageID int32
	Code      Code
	Payload   []byte
	Block2    *BlockOption
	// Timeout is set when no response arrived in time.
	Timeout bool
	// Err is a transport failure after the request was accepted.
	Err error
}

// Transport carries requests to the relay. Send returns once the request is
// on the wire and calls onResponse exactly once later, from any goroutine,
// with the response, a timeout or an error. When Send itself fails
// onResponse is never called. ctx bounds the whole request.
type Transport interface {
	Send(ctx context.Context, req Request, onResponse func(Response)) (int, error)
}
