package config

import "unicode/utf8"

// Field capacities in bytes, terminator included. A field keeps at most
// capacity-1 bytes of its value.
const (
	BotTokenCap = 50
	ChatIDCap   = 12
	ChatNameCap = 15
	RelayURLCap = 30
	AddressCap  = 40
	PortCap     = 6
	URIPathCap  = 20
	MaxChats    = 10
)

// BoundedString is a string field with a fixed capacity. Writes that do not
// fit are cut, and Set reports it.
type BoundedString struct {
	capacity int
	value    string
}

// NewBounded returns an empty field that keeps at most capacity-1 bytes.
func NewBounded(capacity int) BoundedString {
	if capacity < 1 {
		capacity = 1
	}
	return BoundedString{capacity: capacity}
}

// Set stores s, cut to capacity-1 bytes on a rune boundary. It returns true
// when s did not fit.
func (b *BoundedString) Set(s string) bool {
	v, cut := truncate(s, b.capacity-1)
	b.value = v
	return cut
}

func (b BoundedString) String() string { return b.value }

// Cap is the capacity including the terminator byte.
func (b BoundedString) Cap() int { return b.capacity }

func (b BoundedString) Empty() bool { return b.value == "" }

func (b *BoundedString) Clear() { b.value = "" }

func truncate(s string, max int) (string, bool) {
	if len(s) <= max {
		return s, false
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
