// Package transport owns the single duplexed gateway socket: it frames
// messages in and out, paces outbound traffic, and classifies disconnects.
// It never decides whether to reconnect; that is the session manager's job.
package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/LimeProgramming/defectio"
	"github.com/LimeProgramming/defectio/internal/wire"
)

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 256
)

// Options configures a single connection attempt.
type Options struct {
	// Encoding is negotiated at dial time via the format query parameter
	// and fixed for the connection's lifetime.
	Encoding wire.Encoding
	// SendRate and SendBurst pace outbound frames with a token bucket.
	// Zero SendRate disables pacing.
	SendRate  rate.Limit
	SendBurst int
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
	Logger logrus.FieldLogger
}

// Conn is one live gateway connection. Inbound frames arrive on Frames in
// receipt order; the channel closes when the read loop exits, after which
// Reason reports why.
type Conn struct {
	ws      *websocket.Conn
	enc     wire.Encoding
	limiter *rate.Limiter
	log     logrus.FieldLogger

	frames chan wire.Envelope
	sendCh chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	failOnce sync.Once
	done     chan struct{}
	disc     defectio.Disconnect

	mu     sync.RWMutex
	closed bool
}

// Dial opens the gateway socket. The encoding is appended as a format query
// parameter so the server speaks the negotiated codec from the first frame.
func Dial(ctx context.Context, rawURL string, opts Options) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid gateway url: %w", err)
	}
	q := u.Query()
	q.Set("format", string(opts.Encoding))
	u.RawQuery = q.Encode()

	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", u.Host, err)
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	var limiter *rate.Limiter
	if opts.SendRate > 0 {
		limiter = rate.NewLimiter(opts.SendRate, opts.SendBurst)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ws:      ws,
		enc:     opts.Encoding,
		limiter: limiter,
		log:     log.WithFields(logrus.Fields{"remoteAddr": ws.RemoteAddr(), "encoding": opts.Encoding}),
		frames:  make(chan wire.Envelope),
		sendCh:  make(chan []byte, sendQueueSize),
		ctx:     connCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go c.readLoop()
	go c.writePump()

	c.log.Debug("Gateway connection established")
	return c, nil
}

// Frames returns the inbound frame stream. Closed when the connection ends.
func (c *Conn) Frames() <-chan wire.Envelope { return c.frames }

// Done is closed once the connection has ended for any reason.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Reason reports why the connection ended. Valid only after Done.
func (c *Conn) Reason() defectio.Disconnect { return c.disc }

// Send encodes and queues one outbound frame. Queued frames are written in
// submission order. Fails fast once the connection is closed.
func (c *Conn) Send(ctx context.Context, v interface{}) error {
	data, err := c.enc.Marshal(v)
	if err != nil {
		return fmt.Errorf("transport: encode frame: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return defectio.ErrNotConnected
	}

	select {
	case c.sendCh <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return defectio.ErrNotConnected
	}
}

// Close ends the connection as a local logout. Idempotent.
func (c *Conn) Close() {
	c.CloseWithReason(defectio.Disconnect{Reason: defectio.ReasonLogout}, websocket.CloseNormalClosure)
}

// CloseWithReason ends the connection and records the given disconnect as
// its cause. The first recorded reason wins; a racing read error cannot
// overwrite it.
func (c *Conn) CloseWithReason(d defectio.Disconnect, closeCode int) {
	c.fail(d)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	message := websocket.FormatCloseMessage(closeCode, "")
	deadline := time.Now().Add(time.Second)
	c.ws.WriteControl(websocket.CloseMessage, message, deadline)
	c.ws.Close()
}

// fail records the terminal disconnect exactly once and wakes everything
// blocked on the connection.
func (c *Conn) fail(d defectio.Disconnect) {
	c.failOnce.Do(func() {
		c.disc = d
		c.cancel()
		close(c.done)
	})
}

func (c *Conn) readLoop() {
	defer close(c.frames)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(classifyReadError(err))
			return
		}

		env, err := wire.ParseEnvelope(c.enc, data)
		if err != nil {
			// Malformed frame: drop it and close the connection.
			c.log.WithError(err).Warn("Protocol violation on gateway connection")
			c.CloseWithReason(defectio.Disconnect{
				Reason: defectio.ReasonProtocolViolation,
				Err:    err,
			}, websocket.CloseProtocolError)
			return
		}

		select {
		case c.frames <- env:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Conn) writePump() {
	defer func() {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
			c.ws.Close()
		}
		c.mu.Unlock()
	}()

	messageType := websocket.TextMessage
	if c.enc.Binary() {
		messageType = websocket.BinaryMessage
	}

	for {
		select {
		case data := <-c.sendCh:
			if c.limiter != nil {
				if err := c.limiter.Wait(c.ctx); err != nil {
					return
				}
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(messageType, data); err != nil {
				c.fail(defectio.Disconnect{Reason: defectio.ReasonConnectionError, Err: err})
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// classifyReadError maps a read failure to the uniform disconnect taxonomy:
// a close frame from the server is a clean close carrying its code,
// anything else is an abrupt socket failure.
func classifyReadError(err error) defectio.Disconnect {
	if ce, ok := err.(*websocket.CloseError); ok {
		return defectio.Disconnect{
			Reason: defectio.ReasonServerClose,
			Code:   ce.Code,
			Err:    err,
		}
	}
	return defectio.Disconnect{Reason: defectio.ReasonConnectionError, Err: err}
}
