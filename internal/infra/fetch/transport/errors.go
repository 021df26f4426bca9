package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/vietddude/fetcher/internal/core/domain"
)

// translate turns an error from net/http into a tagged cause chain:
// TransportError -> ProtocolError -> OSError, keeping the original error at the leaf.
func translate(target, op string, err error) error {
	top := &domain.TransportError{Op: op, URL: target}

	inner := err
	var uerr *url.Error
	if errors.As(err, &uerr) {
		inner = uerr.Err
		if uerr.Op != "" {
			top.Op = uerr.Op
		}
	}

	top.Timeout = isTimeout(err)
	top.Connect = isConnectFailure(inner)
	top.Err = protocolLayer(inner)
	return top
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isConnectFailure reports a dial that reached the network but could not connect. Name
// resolution failures are not connect failures: retrying them does not help.
func isConnectFailure(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}
	var op *net.OpError
	return errors.As(err, &op) && op.Op == "dial"
}

func protocolLayer(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	var op *net.OpError
	if errors.As(err, &op) {
		if op.Op == "dial" {
			return osLayer(op.Err)
		}
		return &domain.ProtocolError{ErrKind: domain.KindIO, Msg: op.Op, Err: osLayer(op.Err)}
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &domain.ProtocolError{ErrKind: domain.KindIncompleteMessage, Msg: "incomplete message", Err: err}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "server closed idle connection"),
		strings.Contains(msg, "GOAWAY"):
		return &domain.ProtocolError{ErrKind: domain.KindCanceled, Msg: "connection closed", Err: err}
	case strings.Contains(msg, "malformed HTTP"),
		strings.Contains(msg, "broken connection"):
		return &domain.ProtocolError{ErrKind: domain.KindOther, Err: err}
	case errors.Is(err, net.ErrClosed), errors.Is(err, syscall.ECONNRESET):
		return &domain.ProtocolError{ErrKind: domain.KindIO, Err: osLayer(err)}
	}
	return err
}

func osLayer(err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		oe := &domain.OSError{ErrKind: errnoKind(errno), Err: errno}
		var se *os.SyscallError
		if errors.As(err, &se) {
			oe.Syscall = se.Syscall
		}
		return oe
	}
	if errors.Is(err, net.ErrClosed) {
		return &domain.OSError{ErrKind: domain.KindConnectionAborted, Err: err}
	}
	return err
}

func errnoKind(errno syscall.Errno) domain.ErrorKind {
	switch errno {
	case syscall.ECONNRESET:
		return domain.KindConnectionReset
	case syscall.ECONNABORTED:
		return domain.KindConnectionAborted
	case syscall.ECONNREFUSED:
		return domain.KindConnectionRefused
	case syscall.EACCES, syscall.EPERM:
		return domain.KindPermissionDenied
	case syscall.EPIPE:
		return domain.KindBrokenPipe
	case syscall.ETIMEDOUT:
		return domain.KindTimedOut
	}
	return domain.KindOther
}
