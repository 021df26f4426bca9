package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// loopError points back at itself.
type loopError struct{}

func (e *loopError) Error() string   { return "loop" }
func (e *loopError) Layer() Layer    { return LayerProtocol }
func (e *loopError) Kind() ErrorKind { return KindIO }
func (e *loopError) Cause() error    { return e }

func TestWalkChain_Order(t *testing.T) {
	leaf := &OSError{ErrKind: KindConnectionReset, Syscall: "read"}
	proto := &ProtocolError{ErrKind: KindIO, Err: leaf}
	top := &TransportError{Op: "Get", URL: "http://x", Err: fmt.Errorf("wrapped: %w", proto)}

	var seen []string
	WalkChain(top, func(e error) bool {
		seen = append(seen, fmt.Sprintf("%T", e))
		return true
	})

	want := []string{"*domain.TransportError", "*fmt.wrapError", "*domain.ProtocolError", "*domain.OSError"}
	if len(seen) != len(want) {
		t.Fatalf("visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("entry %d = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestWalkChain_CycleIsBounded(t *testing.T) {
	visits := 0
	WalkChain(&loopError{}, func(error) bool {
		visits++
		return true
	})
	if visits != MaxChainDepth {
		t.Errorf("expected %d visits, got %d", MaxChainDepth, visits)
	}

	if _, ok := FindLayer(&loopError{}, LayerOS); ok {
		t.Error("expected no OS entry in a cyclic protocol chain")
	}
}

func TestFindLayer(t *testing.T) {
	leaf := &OSError{ErrKind: KindPermissionDenied, Syscall: "connect"}
	proto := &ProtocolError{ErrKind: KindIO, Err: leaf}
	top := &TransportError{Op: "Get", URL: "http://x", Err: proto}

	got, ok := FindLayer(top, LayerProtocol)
	if !ok || got != proto {
		t.Fatalf("FindLayer(protocol) = %v, %v", got, ok)
	}
	got, ok = FindLayer(top, LayerOS)
	if !ok || got.Kind() != KindPermissionDenied {
		t.Fatalf("FindLayer(os) = %v, %v", got, ok)
	}
	if _, ok := FindLayer(errors.New("plain"), LayerProtocol); ok {
		t.Error("plain error has no protocol entry")
	}
}

func TestChainKinds(t *testing.T) {
	err := &TransportError{
		Op:      "Get",
		URL:     "http://x",
		Timeout: true,
		Err:     &ProtocolError{ErrKind: KindIncompleteMessage},
	}
	kinds := ChainKinds(err)
	if len(kinds) != 2 || kinds[0] != "transport:timeout" || kinds[1] != "protocol:incomplete_message" {
		t.Errorf("unexpected kinds %v", kinds)
	}
}

func TestChainErrors_Unwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := &TransportError{Op: "Get", Err: &ProtocolError{ErrKind: KindIO, Err: &OSError{Err: sentinel}}}
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to reach the leaf")
	}
	var oe *OSError
	if !errors.As(err, &oe) {
		t.Error("expected errors.As to find the OS entry")
	}
}

func TestBackoffState_Advance(t *testing.T) {
	s := NewBackoffState(500 * time.Millisecond)
	if s.Attempt != 1 || s.Delay != 500*time.Millisecond {
		t.Fatalf("unexpected initial state %+v", s)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, d := range want {
		s.Advance(2, 0)
		if s.Attempt != i+2 {
			t.Errorf("attempt = %d, want %d", s.Attempt, i+2)
		}
		if s.Delay != d {
			t.Errorf("delay = %v, want %v", s.Delay, d)
		}
	}

	s.Advance(2, 10*time.Second)
	if s.Delay != 10*time.Second {
		t.Errorf("expected cap at 10s, got %v", s.Delay)
	}
}
