// Package livetrace streams watch graph activity to a socket.io server so a
// viewer can follow sorts and flush passes as they happen.
package livetrace

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/vk/watchgraph/internal/ctxlog"
	"github.com/vk/watchgraph/internal/graph"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted by a Tracer.
const (
	EventGraph = "graph"
	EventFlush = "flush"
)

// Emitter is the part of a socket.io client a Tracer writes to.
type Emitter interface {
	Emit(ev string, args ...any) error
}

// Tracer implements graph.Observer. Every sort that recomputed the order
// emits a full dump of the graph; every flush pass emits its stats.
type Tracer struct {
	logger  *slog.Logger
	emitter Emitter
	graph   *graph.Graph
}

// New creates a tracer writing to e. Call Attach once the graph exists so
// sorts can be published with a dump.
func New(ctx context.Context, e Emitter) *Tracer {
	return &Tracer{
		logger:  ctxlog.FromContext(ctx).With("component", "livetrace"),
		emitter: e,
	}
}

// Attach sets the graph whose dump is published after each sort.
func (t *Tracer) Attach(g *graph.Graph) {
	t.graph = g
}

// Sorted implements graph.Observer.
func (t *Tracer) Sorted(s graph.SortStats) {
	payload := map[string]any{
		"edges":       s.Edges,
		"delayed":     s.Delayed,
		"remaining":   s.Remaining,
		"duration_ms": durationMillis(s.Duration),
	}
	if t.graph != nil {
		payload["dump"] = t.graph.Dump()
	}
	t.emit(EventGraph, payload)
}

// Flushed implements graph.Observer.
func (t *Tracer) Flushed(s graph.FlushStats) {
	t.emit(EventFlush, map[string]any{
		"seq":         s.Seq,
		"callbacks":   s.Callbacks,
		"traversed":   s.Traversed,
		"values":      s.Values,
		"failures":    s.Failures,
		"deferred":    s.Deferred,
		"cyclic":      s.Cyclic,
		"duration_ms": durationMillis(s.Duration),
	})
}

func (t *Tracer) emit(ev string, payload map[string]any) {
	if err := t.emitter.Emit(ev, payload); err != nil {
		t.logger.Warn("Failed to emit trace event.", "event", ev, "error", err)
	}
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

var _ graph.Observer = (*Tracer)(nil)

// DialOptions configures Dial.
type DialOptions struct {
	Namespace          string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Dial connects a socket.io client to rawURL over WebSocket and waits for the
// connection to be acknowledged.
func Dial(ctx context.Context, rawURL string, o DialOptions) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("component", "livetrace", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("URL %q must be absolute", rawURL)
	}
	namespace := o.Namespace
	if namespace == "" {
		namespace = "/"
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Live trace connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})

	logger.Debug("Connecting live trace.")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}
