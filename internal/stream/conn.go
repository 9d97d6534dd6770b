// Package stream owns the single streaming connection of a client: the
// dial, the read pump, the delivery worker and the disconnect transition.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"hstrader/internal/channel"
	"hstrader/internal/dispatch"
	"hstrader/internal/event"
	"hstrader/internal/metrics"
	"hstrader/internal/session"
	"hstrader/internal/wire"
	"hstrader/logger"
)

const (
	defaultFrameBuffer = 256
	writeWait          = time.Second
)

var (
	// ErrAlreadyConnected is returned by Start while a connection is open
	// or being opened.
	ErrAlreadyConnected = errors.New("stream already connected")
	// ErrNotConnected is session.ErrNotConnected.
	ErrNotConnected = session.ErrNotConnected
)

// State is the lifecycle state of the connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HandlerError reports an application handler that panicked. The stream is
// closed when it is returned.
type HandlerError struct {
	Kind  string
	Value interface{}
	Stack []byte
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler panicked: %v", e.Kind, e.Value)
}

func (e *HandlerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Options tune a connection. Zero values fall back to defaults.
type Options struct {
	UserAgent    string
	PingInterval time.Duration
	FrameBuffer  int
	// Scheme is "wss" unless set; tests dial plain "ws".
	Scheme string
}

// Stats counts frames seen during the current or last connection.
type Stats struct {
	Received uint64
	Decoded  uint64
	Dropped  uint64
}

// link is one dialed socket. It is never reused across Start calls.
type link struct {
	sock      Socket
	closeOnce sync.Once
	closeErr  error
	stopping  atomic.Bool
}

func (l *link) close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.sock.Close()
	})
	return l.closeErr
}

// Conn is the streaming connection.
type Conn struct {
	sess       *session.Session
	dispatcher *dispatch.Dispatcher
	dialer     Dialer
	opts       Options
	log        *logger.Entry

	mu    sync.Mutex
	state State
	link  *link

	writeMu sync.Mutex

	received atomic.Uint64
	decoded  atomic.Uint64
	dropped  atomic.Uint64
	queue    atomic.Pointer[channel.Frames]
}

// New builds a connection over the given session and dispatcher. A nil
// dialer uses WebsocketDialer.
func New(sess *session.Session, dispatcher *dispatch.Dispatcher, dialer Dialer, opts Options) *Conn {
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	if opts.FrameBuffer <= 0 {
		opts.FrameBuffer = defaultFrameBuffer
	}
	if opts.Scheme == "" {
		opts.Scheme = "wss"
	}
	return &Conn{
		sess:       sess,
		dispatcher: dispatcher,
		dialer:     dialer,
		opts:       opts,
		log:        logger.GetLogger().WithComponent("stream"),
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns the frame counters of the current or last connection.
func (c *Conn) Stats() Stats {
	return Stats{
		Received: c.received.Load(),
		Decoded:  c.decoded.Load(),
		Dropped:  c.dropped.Load(),
	}
}

// ReportFields exposes the frame counters and the frame queue of the
// current or last connection to the periodic report.
func (c *Conn) ReportFields() logger.Fields {
	s := c.Stats()
	fields := logger.Fields{
		"stream_state":    c.State().String(),
		"frames_received": s.Received,
		"frames_decoded":  s.Decoded,
		"frames_dropped":  s.Dropped,
	}
	if q := c.queue.Load(); q != nil {
		qs := q.GetStats()
		fields["queue_sent"] = qs.Sent
		fields["queue_bytes"] = qs.Bytes
		fields["queue_abandoned"] = qs.Abandoned
		fields["queue_depth"] = len(q.C)
	}
	return fields
}

func (c *Conn) url(sessionID string) string {
	u := url.URL{
		Scheme:   c.opts.Scheme,
		Host:     c.sess.Endpoint(),
		Path:     "/ws/v1",
		RawQuery: "session_id=" + url.QueryEscape(sessionID),
	}
	return u.String()
}

// Start dials the stream and blocks until it closes. It returns nil after
// Stop, context cancellation or a normal close, a *HandlerError when an
// application handler panicked, and the read error otherwise.
func (c *Conn) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	l, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	c.received.Store(0)
	c.decoded.Store(0)
	c.dropped.Store(0)

	c.mu.Lock()
	c.link = l
	c.state = StateConnected
	c.mu.Unlock()
	c.sess.SetConnected(true)
	c.log.WithField("endpoint", c.sess.Endpoint()).Info("stream connected")

	if c.dispatcher.Has(event.KindMarket) {
		if err := c.Send(wire.CommandStartMarketFeed, nil); err != nil {
			c.log.WithError(err).Warn("failed to start market feed")
		}
	}

	if herr := guard(event.KindConnect.String(), c.dispatcher.FireConnect); herr != nil {
		_ = l.close()
		if derr := c.disconnected(); derr != nil {
			c.log.WithError(derr).Error("disconnect handler failed")
		}
		c.setState(StateDisconnected)
		return herr
	}

	err = c.run(ctx, l)
	c.setState(StateDisconnected)
	return err
}

func (c *Conn) dial(ctx context.Context) (*link, error) {
	token, err := c.sess.Token()
	if err != nil {
		return nil, err
	}
	creds := c.sess.Credentials()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	if c.opts.UserAgent != "" {
		header.Set("User-Agent", c.opts.UserAgent)
	}

	target := c.url(creds.SessionID)
	sock, err := c.dialer.Dial(ctx, target, header)
	if err != nil {
		c.log.WithError(err).WithField("endpoint", c.sess.Endpoint()).Warn("failed to connect to stream")
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	return &link{sock: sock}, nil
}

func (c *Conn) run(ctx context.Context, l *link) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := channel.NewFrames(c.opts.FrameBuffer)
	c.queue.Store(frames)
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		<-gctx.Done()
		_ = l.close()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return c.readPump(gctx, l, frames)
	})
	g.Go(func() error {
		return c.deliver(l, frames)
	})
	if c.opts.PingInterval > 0 {
		g.Go(func() error {
			c.pingLoop(gctx, l)
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		c.log.WithError(err).Warn("stream closed with error")
	} else {
		c.log.Info("stream closed")
	}
	return err
}

func (c *Conn) readPump(ctx context.Context, l *link, frames *channel.Frames) error {
	defer frames.Close()

	for {
		typ, data, err := l.sock.ReadMessage()
		if err != nil {
			if l.stopping.Load() || ctx.Err() != nil || isNormalClose(err) {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}

		c.received.Add(1)
		frame := wire.Frame{Binary: typ == websocket.BinaryMessage, Data: data}
		if !frames.Send(ctx, frame) {
			metrics.EmitDropMetric(nil, metrics.DropMetricAbandoned, frameType(frame), "shutdown")
			return nil
		}
	}
}

// deliver is the only consumer of frames. It decodes and dispatches in
// arrival order and performs the disconnect transition when the queue ends.
func (c *Conn) deliver(l *link, frames *channel.Frames) (err error) {
	defer func() {
		_ = l.close()
		if derr := c.disconnected(); derr != nil {
			if err == nil {
				err = derr
			} else {
				c.log.WithError(derr).Error("disconnect handler failed after handler error")
			}
		}
	}()

	for frame := range frames.C {
		frames.Received()

		ev, derr := wire.Decode(frame)
		if derr != nil {
			c.dropped.Add(1)
			c.log.WithError(derr).WithField("frame_type", frameType(frame)).Debug("dropping undecodable frame")
			metrics.EmitDropMetric(nil, metrics.DropMetricUndecodable, frameType(frame), "decode")
			continue
		}
		c.decoded.Add(1)

		if herr := guard(ev.Kind().String(), func() { c.dispatcher.Dispatch(ev) }); herr != nil {
			return herr
		}
	}
	return nil
}

func (c *Conn) disconnected() error {
	c.sess.SetConnected(false)

	stats := c.Stats()
	for name, value := range map[string]uint64{
		"frames_received": stats.Received,
		"frames_decoded":  stats.Decoded,
	} {
		metrics.EmitMetric(nil, "stream", name, value, "counter", nil)
	}

	if herr := guard(event.KindDisconnect.String(), c.dispatcher.FireDisconnect); herr != nil {
		return herr
	}
	return nil
}

func (c *Conn) pingLoop(ctx context.Context, l *link) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := l.sock.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.log.WithError(err).Warn("failed to send websocket ping")
				return
			}
		}
	}
}

// Stop closes the connection. Start then returns nil.
func (c *Conn) Stop() error {
	c.mu.Lock()
	l, state := c.link, c.state
	c.mu.Unlock()
	if state != StateConnected || l == nil {
		return ErrNotConnected
	}

	l.stopping.Store(true)
	c.writeMu.Lock()
	_ = l.sock.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return l.close()
}

// Send writes one command envelope to the stream.
func (c *Conn) Send(command string, payload interface{}) error {
	if !c.sess.Connected() {
		return ErrNotConnected
	}
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()
	if l == nil {
		return ErrNotConnected
	}

	data, err := wire.Encode(command, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := l.sock.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", command, err)
	}
	return nil
}

// StartMarketFeed asks the server to stream quotes.
func (c *Conn) StartMarketFeed() error {
	return c.Send(wire.CommandStartMarketFeed, nil)
}

// StopMarketFeed asks the server to stop streaming quotes.
func (c *Conn) StopMarketFeed() error {
	return c.Send(wire.CommandStopMarketFeed, nil)
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func guard(kind string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Kind: kind, Value: r, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

func isNormalClose(err error) bool {
	return errors.Is(err, io.EOF) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func frameType(f wire.Frame) string {
	if f.Binary {
		return "binary"
	}
	return "text"
}
