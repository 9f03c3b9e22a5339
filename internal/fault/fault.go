// Package fault holds the error taxonomy shared by the configuration store,
// the notification client and the dispatch loop.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error. A Kind is itself an error so callers can match
// with errors.Is(err, fault.ChatNotFound).
type Kind int

const (
	Unknown Kind = iota
	InvalidArgument
	NullReference
	ChatNotFound
	PayloadTooLarge
	CoapInitFailed
	CoapPayloadFailed
	CoapSendFailed
	CoapTimeout
	AddressFormatInvalid
	NoSensor
	SensorReadFailed
	ExchangeBusy
)

var kindNames = map[Kind]string{
	Unknown:              "Unknown",
	InvalidArgument:      "InvalidArgument",
	NullReference:        "NullReference",
	ChatNotFound:         "ChatNotFound",
	PayloadTooLarge:      "PayloadTooLarge",
	CoapInitFailed:       "CoapInitFailed",
	CoapPayloadFailed:    "CoapPayloadFailed",
	CoapSendFailed:       "CoapSendFailed",
	CoapTimeout:          "CoapTimeout",
	AddressFormatInvalid: "AddressFormatInvalid",
	NoSensor:             "NoSensor",
	SensorReadFailed:     "SensorReadFailed",
	ExchangeBusy:         "ExchangeBusy",
}

var kindMessages = map[Kind]string{
	Unknown:              "an unknown error occurred",
	InvalidArgument:      "invalid argument provided to function",
	NullReference:        "nil reference detected in callback",
	ChatNotFound:         "chat with this ID/person does not exist",
	PayloadTooLarge:      "payload does not fit the transmit buffer",
	CoapInitFailed:       "CoAP packet initialization failed",
	CoapPayloadFailed:    "payload appending to CoAP request failed",
	CoapSendFailed:       "CoAP request transmission failed",
	CoapTimeout:          "CoAP request timeout",
	AddressFormatInvalid: "invalid IPv6 address format encountered",
	NoSensor:             "sensor not found or unavailable",
	SensorReadFailed:     "sensor data read operation failed",
	ExchangeBusy:         "another CoAP exchange is still in flight",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Message returns the human readable description of the kind.
func (k Kind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[Unknown]
}

func (k Kind) Error() string {
	return k.Message()
}

// Error is a classified error raised by operation Op.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Message()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New builds a classified error with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields a bare kind error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the kind of err. Nil maps to Unknown as well; callers
// check err != nil first.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Unknown
}
