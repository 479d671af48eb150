// Package remote implements the coordinator.Runner contract against the
// platform's execution service over socket.io: one "execute" emit starts a
// run, and the service streams log/progress events back until a terminal
// "completed" or "failed" event.
package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/vk/flowforge/internal/coordinator"
	"github.com/vk/flowforge/internal/ctxlog"
	"github.com/vk/flowforge/internal/workflow"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Config holds the connection settings for the execution service.
type Config struct {
	URL       string
	Namespace string
	Token     string
	// ConnectTimeout bounds the initial connection and run acknowledgement
	// only; a run itself has no client-side timeout.
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// Client is a socket.io implementation of coordinator.Runner. A client
// carries at most one active run, matching the coordinator's one-run rule.
type Client struct {
	cfg Config

	mu      sync.Mutex
	manager *socket.Manager
	io      *socket.Socket
}

// ErrNotConnected is returned by Stop when no run was started.
var ErrNotConnected = errors.New("no active connection to the execution service")

// New creates a client; the connection is established lazily by Execute.
func New(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "/"
	}
	return &Client{cfg: cfg}
}

// Execute connects, submits the graph, and returns the run handle announced
// by the service. Events stream to the sink from socket callbacks until a
// terminal event arrives; Execute itself returns as soon as the run is
// acknowledged.
func (c *Client) Execute(ctx context.Context, g *workflow.Graph, sink coordinator.EventSink) (coordinator.Handle, error) {
	logger := ctxlog.FromContext(ctx).With("runner", "remote", "url", c.cfg.URL)

	parsedURL, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse execution service URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if c.cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(c.cfg.Namespace, opts)

	c.mu.Lock()
	c.manager = manager
	c.io = io
	c.mu.Unlock()

	started := make(chan coordinator.Handle, 1)
	connectErrs := make(chan error, 1)
	payload := executePayload(c.cfg.Token, g)

	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Connected to execution service", "sid", io.Id())
		io.Emit("execute", payload)
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				connectErrs <- e
				return
			}
			connectErrs <- fmt.Errorf("connect error: %v", errs[0])
			return
		}
		connectErrs <- errors.New("connect error")
	})
	io.On(types.EventName("run_started"), func(data ...any) {
		started <- coordinator.Handle(decodeRunID(first(data)))
	})
	io.On(types.EventName("log"), func(data ...any) {
		sink.Log(decodeLogEvent(first(data)))
	})
	io.On(types.EventName("progress"), func(data ...any) {
		sink.Progress(decodeProgressEvent(first(data)))
	})
	io.On(types.EventName("completed"), func(...any) {
		sink.Finished(nil)
		c.disconnect()
	})
	io.On(types.EventName("failed"), func(data ...any) {
		sink.Finished(errors.New(decodeFailure(first(data))))
		c.disconnect()
	})

	io.Connect()

	select {
	case handle := <-started:
		logger.Debug("Run acknowledged", "handle", string(handle))
		return handle, nil
	case err := <-connectErrs:
		c.disconnect()
		return "", fmt.Errorf("failed to connect to execution service: %w", err)
	case <-time.After(c.cfg.ConnectTimeout):
		c.disconnect()
		return "", fmt.Errorf("timed out waiting for the execution service to acknowledge the run")
	case <-ctx.Done():
		c.disconnect()
		return "", ctx.Err()
	}
}

// Stop asks the service to cancel the run. Best-effort: the service may
// acknowledge asynchronously or not at all; terminal events keep flowing to
// the sink either way.
func (c *Client) Stop(ctx context.Context, handle coordinator.Handle) error {
	c.mu.Lock()
	io := c.io
	c.mu.Unlock()
	if io == nil {
		return ErrNotConnected
	}
	ctxlog.FromContext(ctx).Debug("Requesting run cancellation", "handle", string(handle))
	io.Emit("stop", map[string]any{"run_id": string(handle)})
	return nil
}

func (c *Client) disconnect() {
	c.mu.Lock()
	io := c.io
	c.io = nil
	c.mu.Unlock()
	if io != nil {
		io.Disconnect()
	}
}

func first(data []any) any {
	if len(data) == 0 {
		return nil
	}
	return data[0]
}
