package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pegboard/mastermind/internal/channel"
	"github.com/pegboard/mastermind/internal/protocol"
)

const reconnectDelay = 2 * time.Second

// Client maintains a session with the game server. It reconnects with the
// saved token when the connection drops, acks every command on arrival, and
// hands each command to its registered handler exactly once; a retried
// command whose handler is still running is re-acked and swallowed.
type Client struct {
	cfg    *Config
	logger *slog.Logger
	outbox *channel.Outbox

	mu       sync.Mutex
	pending  map[protocol.Kind]bool
	handlers map[protocol.Kind]func(protocol.Envelope)
	events   map[protocol.Kind]func(protocol.Envelope)
}

// NewClient creates a session client
func NewClient(cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:      cfg,
		logger:   logger,
		outbox:   channel.NewOutbox(),
		pending:  make(map[protocol.Kind]bool),
		handlers: make(map[protocol.Kind]func(protocol.Envelope)),
		events:   make(map[protocol.Kind]func(protocol.Envelope)),
	}
}

// OnCommand registers the handler for a server command. The handler runs off
// the read loop and usually replies via Send; the command stays pending until
// it returns.
func (c *Client) OnCommand(kind protocol.Kind, fn func(protocol.Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = fn
}

// OnEvent registers the handler for a fire-and-forget notification
func (c *Client) OnEvent(kind protocol.Kind, fn func(protocol.Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[kind] = fn
}

// Send queues an envelope for the server, surviving reconnects
func (c *Client) Send(kind protocol.Kind, payload any) error {
	env, err := protocol.NewEnvelope(kind, payload)
	if err != nil {
		return err
	}
	return c.outbox.Send(env)
}

// Run connects and keeps the session alive until ctx is cancelled
func (c *Client) Run(ctx context.Context) error {
	target, err := wsURL(c.cfg.ServerURL)
	if err != nil {
		return err
	}

	jobs := make(chan protocol.Envelope, 16)
	go c.worker(ctx, jobs)
	defer c.outbox.Close()

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("connection failed (%v), retrying...\n", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reconnectDelay):
			}
			continue
		}

		ch := channel.NewWS(conn, c.logger)

		// Identity first, then any traffic queued while offline
		hello, err := protocol.NewEnvelope(protocol.KindHello, protocol.HelloPayload{
			Token:       c.cfg.Token,
			DisplayName: c.cfg.DisplayName,
		})
		if err != nil {
			return err
		}
		if err := ch.Send(hello); err == nil {
			_ = c.outbox.Attach(ch)
		}

		_ = ch.ReadLoop(func(env protocol.Envelope) {
			c.dispatch(env, jobs)
		})

		c.outbox.Detach()
		ch.Close()

		if ctx.Err() != nil {
			return nil
		}
		fmt.Println("connection lost, reconnecting...")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) dispatch(env protocol.Envelope, jobs chan<- protocol.Envelope) {
	if env.Kind == protocol.KindHello {
		var hello protocol.HelloPayload
		if err := env.Decode(&hello); err != nil {
			return
		}
		if hello.Token != c.cfg.Token {
			if err := c.cfg.SaveToken(hello.Token); err != nil {
				fmt.Printf("warning: could not save session token: %v\n", err)
			}
		}
		return
	}

	c.mu.Lock()
	if _, isCommand := c.handlers[env.Kind]; isCommand {
		alreadyPending := c.pending[env.Kind]
		if !alreadyPending {
			c.pending[env.Kind] = true
		}
		c.mu.Unlock()

		_ = c.outbox.Send(protocol.Ack(env.Kind))
		if !alreadyPending {
			jobs <- env
		}
		return
	}
	event := c.events[env.Kind]
	c.mu.Unlock()

	if event != nil {
		event(env)
	}
}

func (c *Client) worker(ctx context.Context, jobs <-chan protocol.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-jobs:
			c.mu.Lock()
			handler := c.handlers[env.Kind]
			c.mu.Unlock()

			if handler != nil {
				handler(env)
			}

			c.mu.Lock()
			delete(c.pending, env.Kind)
			c.mu.Unlock()
		}
	}
}

// wsURL converts the configured http(s) server URL to its websocket endpoint
func wsURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}
