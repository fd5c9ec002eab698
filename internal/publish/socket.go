package publish

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ErrConnectTimeout is returned by Dial when the server never acknowledges
// the connection.
var ErrConnectTimeout = errors.New("timed out waiting for socket.io connection")

// DialOptions configures a socket.io connection.
type DialOptions struct {
	Namespace          string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Logger             *slog.Logger
}

// SocketEmitter is an Emitter over a socket.io client connection.
type SocketEmitter struct {
	io     *socket.Socket
	logger *slog.Logger
}

// Dial connects to a socket.io server over WebSocket and waits for the
// namespace connect acknowledgement. rawURL's path selects the socket.io
// endpoint path.
func Dial(ctx context.Context, rawURL string, o DialOptions) (*SocketEmitter, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Namespace == "" {
		o.Namespace = "/"
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("failed to parse URL: %q has no scheme or host", rawURL)
	}

	opts := socket.DefaultOptions()
	if parsed.Path != "" {
		opts.SetPath(parsed.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), opts)
	client := manager.Socket(o.Namespace, opts)

	done := make(chan error, 1)
	client.On(types.EventName("connect"), func(...any) {
		logger.Info("publisher connected", "url", rawURL, "namespace", o.Namespace)
		select {
		case done <- nil:
		default:
		}
	})
	client.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case done <- err:
		default:
		}
	})

	client.Connect()

	dialCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	select {
	case <-dialCtx.Done():
		client.Disconnect()
		if errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrConnectTimeout
		}
		return nil, dialCtx.Err()
	case err := <-done:
		if err != nil {
			client.Disconnect()
			return nil, fmt.Errorf("connecting to %s: %w", rawURL, err)
		}
	}
	return &SocketEmitter{io: client, logger: logger}, nil
}

// Emit sends one event.
func (e *SocketEmitter) Emit(event string, payload any) error {
	e.io.Emit(event, payload)
	return nil
}

// Close disconnects the client.
func (e *SocketEmitter) Close() error {
	e.logger.Debug("disconnecting publisher")
	e.io.Disconnect()
	return nil
}
