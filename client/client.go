package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saeidalz13/battleship-session/internal/logging"
	mb "github.com/saeidalz13/battleship-session/models/battleship"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

var (
	// The server no longer knows this identity. Retrying cannot help.
	ErrSessionGone = errors.New("session is gone")

	ErrNotConnected = errors.New("not connected")

	// Another connection for the same player took over.
	ErrSuperseded = errors.New("connection superseded")
)

// Client keeps one player's websocket open and feeds every server message
// into its Store.
type Client struct {
	url     string
	dialer  websocket.Dialer
	backoff Backoff
	store   *Store
	logger  *logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

type Option func(*Client)

// WithJar supplies the identity cookie set by the HTTP endpoints.
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.dialer.Jar = jar
	}
}

func WithBackoff(b Backoff) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

func WithStore(store *Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a client for a websocket url such as ws://host/battleship.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:     url,
		dialer:  websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		backoff: DefaultBackoff(),
		store:   NewStore(),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Store() *Store {
	return c.store
}

// Run connects and reads until ctx is done, the server closes normally, the
// session is gone or the backoff gives up. Every successful connect resets
// the attempt count; the server replays the current state on each one.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
		if err == nil {
			attempt = 0
			err = c.serve(ctx, conn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				switch {
				case closeErr.Code == websocket.CloseNormalClosure:
					return nil
				case closeErr.Code == websocket.ClosePolicyViolation && closeErr.Text == mc.CloseReasonSuperseded:
					return ErrSuperseded
				case closeErr.Code == websocket.ClosePolicyViolation:
					return ErrSessionGone
				}
			}
		} else if resp != nil && resp.StatusCode == http.StatusNotFound {
			return ErrSessionGone
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay, ok := c.backoff.Delay(attempt)
		if !ok {
			return fmt.Errorf("gave up after %d reconnect attempts: %w", attempt, err)
		}
		attempt++
		c.logger.Warn(ctx, "connection lost, retrying", "attempt", attempt, "delay", delay.String(), "error", err.Error())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := make(chan struct{})
	defer func() {
		close(stop)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := c.store.Dispatch(raw); err != nil {
			c.logger.Debug(ctx, "ignoring server message", "error", err.Error())
		}
	}
}

func (c *Client) send(msgType string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	msg := mc.NewMessage[any](msgType)
	msg.AddPayload(payload)
	return c.conn.WriteJSON(msg)
}

func (c *Client) PlaceBoats(boats []mb.ShipPlacement) error {
	return c.send(mc.TypePlaceBoats, mc.ReqPlaceBoats{Boats: boats})
}

func (c *Client) FireShot(x, y int) error {
	return c.send(mc.TypeFireShot, mc.ReqFireShot{X: x, Y: y})
}

func (c *Client) RequestNewGame() error {
	return c.send(mc.TypeRequestNewGame, mc.ReqRequestNewGame{})
}
