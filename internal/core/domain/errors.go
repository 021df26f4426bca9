package domain

import (
	"errors"
	"fmt"
)

// MaxChainDepth bounds every cause-chain walk. Chains built by the transport are a handful of
// entries deep; anything longer is treated as malformed.
const MaxChainDepth = 32

// Layer identifies which level of the network stack produced a chain entry.
type Layer string

const (
	LayerTransport Layer = "transport"
	LayerProtocol  Layer = "protocol"
	LayerOS        Layer = "os"
)

// ErrorKind is the discriminant tag of a chain entry.
type ErrorKind string

const (
	// Protocol level
	KindIncompleteMessage ErrorKind = "incomplete_message"
	KindCanceled          ErrorKind = "canceled"
	KindIO                ErrorKind = "io"

	// OS level
	KindConnectionReset   ErrorKind = "connection_reset"
	KindConnectionAborted ErrorKind = "connection_aborted"
	KindConnectionRefused ErrorKind = "connection_refused"
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindBrokenPipe        ErrorKind = "broken_pipe"
	KindTimedOut          ErrorKind = "timed_out"

	// Transport level
	KindConnect ErrorKind = "connect"
	KindTimeout ErrorKind = "timeout"
	KindRequest ErrorKind = "request"

	KindOther ErrorKind = "other"
)

// CauseError is one entry of a cause chain. Each entry reports its own layer and kind and
// points at the error it wraps, if any.
type CauseError interface {
	error
	Layer() Layer
	Kind() ErrorKind
	Cause() error
}

// TransportError is the top-level error returned for a failed attempt.
type TransportError struct {
	Op      string
	URL     string
	Connect bool // the connection could not be established
	Timeout bool // the attempt ran out of time
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %q", e.Op, e.URL)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Layer() Layer { return LayerTransport }

func (e *TransportError) Kind() ErrorKind {
	switch {
	case e.Connect:
		return KindConnect
	case e.Timeout:
		return KindTimeout
	default:
		return KindRequest
	}
}

func (e *TransportError) Cause() error  { return e.Err }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is raised by the HTTP layer while exchanging a message.
type ProtocolError struct {
	ErrKind ErrorKind
	Msg     string
	Err     error
}

func (e *ProtocolError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.ErrKind)
	}
	if e.Err == nil {
		return "http: " + msg
	}
	return fmt.Sprintf("http: %s: %v", msg, e.Err)
}

func (e *ProtocolError) Layer() Layer    { return LayerProtocol }
func (e *ProtocolError) Kind() ErrorKind { return e.ErrKind }
func (e *ProtocolError) Cause() error    { return e.Err }
func (e *ProtocolError) Unwrap() error   { return e.Err }

// OSError is the leaf reported by the operating system socket layer.
type OSError struct {
	ErrKind ErrorKind
	Syscall string
	Err     error
}

func (e *OSError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Syscall, e.ErrKind)
	}
	if e.Syscall == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Syscall, e.Err)
}

func (e *OSError) Layer() Layer    { return LayerOS }
func (e *OSError) Kind() ErrorKind { return e.ErrKind }
func (e *OSError) Cause() error    { return e.Err }
func (e *OSError) Unwrap() error   { return e.Err }

// causeOf returns the immediate underlying cause of err.
func causeOf(err error) error {
	if ce, ok := err.(CauseError); ok {
		return ce.Cause()
	}
	return errors.Unwrap(err)
}

// WalkChain visits err and each of its causes in order until visit returns false, the chain
// ends, or MaxChainDepth entries have been visited.
func WalkChain(err error, visit func(error) bool) {
	for depth := 0; err != nil && depth < MaxChainDepth; depth++ {
		if !visit(err) {
			return
		}
		err = causeOf(err)
	}
}

// FindLayer returns the first chain entry, starting at err, that belongs to layer.
func FindLayer(err error, layer Layer) (CauseError, bool) {
	var found CauseError
	WalkChain(err, func(e error) bool {
		if ce, ok := e.(CauseError); ok && ce.Layer() == layer {
			found = ce
			return false
		}
		return true
	})
	return found, found != nil
}

// ChainKinds lists the layer/kind tags of every tagged entry in the chain, top first.
func ChainKinds(err error) []string {
	var kinds []string
	WalkChain(err, func(e error) bool {
		if ce, ok := e.(CauseError); ok {
			kinds = append(kinds, string(ce.Layer())+":"+string(ce.Kind()))
		}
		return true
	})
	return kinds
}
