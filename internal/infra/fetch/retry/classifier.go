package retry

import (
	"net/http"

	"github.com/vietddude/fetcher/internal/core/domain"
)

// Classify decides whether an attempt should be retried.
//
// Responses are retried on 5xx and 429. Errors are retried when the transport reports a
// connect failure or a timeout directly, when the first protocol-level entry of the cause
// chain is an incomplete message or a canceled stream, or when that protocol entry wraps an
// OS-level connection reset or abort. Everything else is terminal.
func Classify(result domain.AttemptResult) domain.Decision {
	if result.Err == nil {
		if result.Response == nil {
			return domain.DecisionTerminal
		}
		return classifyStatus(result.Response.StatusCode)
	}
	return classifyError(result.Err)
}

func classifyStatus(code int) domain.Decision {
	if code >= http.StatusInternalServerError || code == http.StatusTooManyRequests {
		return domain.DecisionRetry
	}
	return domain.DecisionTerminal
}

func classifyError(err error) domain.Decision {
	if te, ok := err.(*domain.TransportError); ok && (te.Connect || te.Timeout) {
		return domain.DecisionRetry
	}

	proto, ok := domain.FindLayer(err, domain.LayerProtocol)
	if !ok {
		return domain.DecisionTerminal
	}

	switch proto.Kind() {
	case domain.KindIncompleteMessage, domain.KindCanceled:
		return domain.DecisionRetry
	}

	osErr, ok := domain.FindLayer(proto.Cause(), domain.LayerOS)
	if !ok {
		return domain.DecisionTerminal
	}
	switch osErr.Kind() {
	case domain.KindConnectionReset, domain.KindConnectionAborted:
		return domain.DecisionRetry
	}
	return domain.DecisionTerminal
}

// Categorize places a result in the failure taxonomy.
func Categorize(result domain.AttemptResult) domain.FailureClass {
	if result.Err != nil {
		if classifyError(result.Err) == domain.DecisionRetry {
			return domain.ClassTransientNetwork
		}
		return domain.ClassPermanentTransport
	}
	if result.Response == nil {
		return domain.ClassPermanentTransport
	}

	code := result.Response.StatusCode
	switch {
	case classifyStatus(code) == domain.DecisionRetry:
		return domain.ClassTransientResponse
	case code >= 200 && code < 300:
		return domain.ClassSuccess
	default:
		return domain.ClassPermanentResponse
	}
}
