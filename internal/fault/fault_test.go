package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKind(t *testing.T) {
	err := New(ChatNotFound, "send", "recipient %q", "ghost")
	if !errors.Is(err, ChatNotFound) {
		t.Fatalf("errors.Is(%v, ChatNotFound) = false", err)
	}
	if errors.Is(err, InvalidArgument) {
		t.Fatalf("errors.Is(%v, InvalidArgument) = true", err)
	}

	wrapped := fmt.Errorf("dispatch: %w", err)
	if got := KindOf(wrapped); got != ChatNotFound {
		t.Fatalf("KindOf(wrapped) = %s, want ChatNotFound", got)
	}
}

func TestBareKindIsAnError(t *testing.T) {
	var err error = CoapTimeout
	if !errors.Is(err, CoapTimeout) {
		t.Fatal("bare kind does not match itself")
	}
	if got := KindOf(fmt.Errorf("wait: %w", err)); got != CoapTimeout {
		t.Fatalf("KindOf = %s, want CoapTimeout", got)
	}
}

func TestErrorText(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CoapSendFailed, "transport", cause)
	want := "transport: CoAP request transmission failed: boom"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable")
	}
}

func TestKindOfForeignError(t *testing.T) {
	if got := KindOf(errors.New("x")); got != Unknown {
		t.Fatalf("KindOf(foreign) = %s, want Unknown", got)
	}
	if got := Kind(99).String(); got != "Kind(99)" {
		t.Fatalf("String() = %q", got)
	}
}
