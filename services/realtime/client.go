package realtime

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pawhub/models"
	"pawhub/utils"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
	pongWait   = 60 * time.Second
)

// Client keeps one socket to the booking API open and dispatches every event it receives.
type Client struct {
	*Registry

	url       string
	header    http.Header
	dialer    *websocket.Dialer
	logger    *zap.Logger
	connected atomic.Bool
}

// NewClient builds a client for the socket at url, identifying as viewerID.
func NewClient(url, viewerID string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	header := http.Header{}
	header.Set(utils.ViewerHeader, viewerID)
	return &Client{
		Registry: NewRegistry(),
		url:      url,
		header:   header,
		dialer:   websocket.DefaultDialer,
		logger:   logger,
	}
}

// IsConnected reports whether the socket is currently open.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Run connects and reads until ctx is done, reconnecting with exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	backoff := minBackoff
	dialed := false
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("Socket dial failed", zap.String("url", c.url), zap.Duration("retryIn", backoff), zap.Error(err))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = minBackoff
		c.connected.Store(true)
		c.logger.Info("Socket connected", zap.String("url", c.url), zap.Bool("reconnect", dialed))
		if dialed {
			c.Dispatch(models.RealtimeEvent{Type: models.EventReconnected})
		}
		dialed = true
		err = c.read(ctx, conn)
		c.connected.Store(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("Socket closed, reconnecting", zap.Error(err))
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		var ev models.RealtimeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if ev.Type == "" || ev.Type == models.EventReconnected {
			continue
		}
		c.Dispatch(ev)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
