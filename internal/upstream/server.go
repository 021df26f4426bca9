// Package upstream serves a deliberately unreliable HTTP endpoint set used to
// exercise the retrying client: throttling, server errors, dropped and reset
// connections, truncated bodies and a proxy with a dead backend.
package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/fetcher/internal/metrics"
)

// Server modes.
const (
	ModeDirect = "direct"
	ModeProxy  = "proxy"
)

// emptyReplyDelay is how long "/" holds the connection before dropping it.
const emptyReplyDelay = 100 * time.Millisecond

var errNoUpstream = errors.New("no upstream listening")

// Server runs the flaky upstream, optionally behind a reverse proxy.
type Server struct {
	mode    string
	server  *http.Server
	backend *http.Server
}

// NewServer creates a flaky upstream listening on port.
// In proxy mode the routes are served on port+1 and fronted by a reverse proxy on port.
func NewServer(port int, mode string) (*Server, error) {
	s := &Server{mode: mode}

	switch mode {
	case ModeDirect, "":
		s.mode = ModeDirect
		s.server = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: NewHandler(),
		}
	case ModeProxy:
		backendAddr := fmt.Sprintf("127.0.0.1:%d", port+1)
		s.backend = &http.Server{Addr: backendAddr, Handler: NewHandler()}
		proxy, err := NewProxyHandler(&url.URL{Scheme: "http", Host: backendAddr})
		if err != nil {
			return nil, err
		}
		s.server = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: proxy,
		}
	default:
		return nil, fmt.Errorf("unknown upstream mode %q", mode)
	}
	return s, nil
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	if s.backend != nil {
		ln, err := net.Listen("tcp", s.backend.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.backend.Addr, err)
		}
		go func() {
			if err := s.backend.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Upstream backend stopped", "error", err)
			}
		}()
		slog.Info("Proxying upstream", "listen", s.server.Addr, "backend", s.backend.Addr)
	}

	slog.Info("Upstream listening", "addr", s.server.Addr, "mode", s.mode)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.backend != nil {
		if err := s.backend.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.server.Shutdown(ctx)
}

// NewHandler returns the direct-mode routes.
func NewHandler() http.Handler {
	f := &flaky{failures: make(map[string]int)}

	mux := http.NewServeMux()
	mux.Handle("/429", counted("429", statusHandler(http.StatusTooManyRequests)))
	mux.Handle("/500", counted("500", statusHandler(http.StatusInternalServerError)))
	mux.Handle("/503", counted("503", statusHandler(http.StatusServiceUnavailable)))
	mux.Handle("/504", counted("504", statusHandler(http.StatusGatewayTimeout)))
	mux.Handle("/ok", counted("ok", http.HandlerFunc(handleOK)))
	mux.Handle("/flaky", counted("flaky", f))
	mux.Handle("/truncate", counted("truncate", http.HandlerFunc(handleTruncate)))
	mux.Handle("/reset", counted("reset", http.HandlerFunc(handleReset)))
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", counted("empty", http.HandlerFunc(handleEmptyReply)))
	return mux
}

// NewProxyHandler fronts backend with a reverse proxy that answers 502 when the backend fails.
// "/504" is answered by the proxy itself and "/none" always reaches a dead upstream.
func NewProxyHandler(backend *url.URL) (http.Handler, error) {
	if backend == nil || backend.Host == "" {
		return nil, fmt.Errorf("invalid backend url %v", backend)
	}

	pxy := httputil.NewSingleHostReverseProxy(backend)
	pxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Warn("Proxy error", "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusBadGateway)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/504":
			metrics.UpstreamRequestsTotal.WithLabelValues("504").Inc()
			w.WriteHeader(http.StatusGatewayTimeout)
		case "/none":
			metrics.UpstreamRequestsTotal.WithLabelValues("none").Inc()
			pxy.ErrorHandler(w, r, errNoUpstream)
		default:
			pxy.ServeHTTP(w, r)
		}
	}), nil
}

func counted(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.UpstreamRequestsTotal.WithLabelValues(route).Inc()
		slog.Debug("Upstream request", "route", route, "path", r.URL.Path, "request_id", r.Header.Get("X-Request-ID"))
		next.ServeHTTP(w, r)
	})
}

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func handleOK(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// handleEmptyReply accepts the request, then drops the connection without a response.
func handleEmptyReply(w http.ResponseWriter, r *http.Request) {
	select {
	case <-time.After(emptyReplyDelay):
	case <-r.Context().Done():
	}
	panic(http.ErrAbortHandler)
}

// handleTruncate declares a longer body than it sends, then closes the connection.
func handleTruncate(w http.ResponseWriter, r *http.Request) {
	conn, buf, err := hijack(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer conn.Close()

	_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 100\r\n\r\npartial")
	_ = buf.Flush()
}

// handleReset aborts the connection with a TCP RST.
func handleReset(w http.ResponseWriter, r *http.Request) {
	conn, _, err := hijack(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	_ = conn.Close()
}

func hijack(w http.ResponseWriter) (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("connection does not support hijacking")
	}
	return hj.Hijack()
}

// flaky answers 503 for the first N requests per key, then 200.
type flaky struct {
	mu       sync.Mutex
	failures map[string]int
}

func (f *flaky) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fail, err := strconv.Atoi(q.Get("fail"))
	if err != nil || fail < 0 {
		fail = 1
	}
	key := q.Get("key")

	f.mu.Lock()
	seen := f.failures[key]
	f.failures[key] = seen + 1
	f.mu.Unlock()

	if seen < fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	handleOK(w, r)
}
