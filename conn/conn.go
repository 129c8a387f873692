package conn

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	tomb "gopkg.in/tomb.v2"

	"github.com/ngerakines/rgbops/wire"
)

// Conn is one session with an OpenRGB server. The protocol has no request
// ids, so at most one request is outstanding at a time; replies are matched
// to callers by arrival order. Notifications are fanned out to subscribers.
//
// All methods are safe for concurrent use.
type Conn struct {
	rwc  io.ReadWriteCloser
	opts options
	log  log.FieldLogger

	version       uint32
	serverVersion uint32

	// gate spans "write request, await reply".
	gate chan struct{}
	// wlock serializes writes of whole packets.
	wlock chan struct{}

	mu      sync.Mutex
	pending []*waiter
	subs    map[*Subscription]struct{}
	done    bool

	t tomb.Tomb
}

type waiter struct {
	kind        wire.Kind
	deviceIndex uint32
	ch          chan []byte
	abandoned   bool
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Dial connects to an OpenRGB server over TCP and performs the handshake.
func Dial(ctx context.Context, address string, opts ...Option) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return New(ctx, nc, opts...)
}

// New starts a session over rwc and performs the handshake: SetClientName
// when a name is configured, then RequestProtocolVersion. The session uses
// the lower of the two versions. rwc is closed if the handshake fails.
func New(ctx context.Context, rwc io.ReadWriteCloser, opts ...Option) (*Conn, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.resolve()

	c := &Conn{
		rwc:   rwc,
		opts:  o,
		log:   o.logger.WithField("session", uuid.NewString()),
		gate:  make(chan struct{}, 1),
		wlock: make(chan struct{}, 1),
		subs:  map[*Subscription]struct{}{},
	}
	c.t.Go(c.readLoop)
	c.t.Go(func() error {
		<-c.t.Dying()
		if err := c.rwc.Close(); err != nil {
			c.log.WithError(err).Debug("closing transport")
		}
		return nil
	})

	if err := c.handshake(ctx); err != nil {
		c.Close()
		return nil, errors.Wrap(err, "openrgb handshake failed")
	}
	return c, nil
}

func (c *Conn) handshake(ctx context.Context) error {
	if c.opts.name != "" {
		w := wire.NewWriter()
		w.WriteRawString(c.opts.name)
		if err := c.Send(ctx, wire.SetClientName, 0, w.Bytes()); err != nil {
			return err
		}
	}

	w := wire.NewWriter()
	w.WriteUint32(c.opts.maxVersion)
	b, err := c.Request(ctx, wire.RequestProtocolVersion, 0, w.Bytes())
	if err != nil {
		return err
	}
	server, err := wire.Uint32Payload(b)
	if err != nil {
		return err
	}
	c.serverVersion = server
	c.version = min(server, c.opts.maxVersion)
	c.log.WithFields(log.Fields{
		"version":        c.version,
		"server_version": server,
		"client_version": c.opts.maxVersion,
		"name":           c.opts.name,
	}).Info("negotiated openrgb protocol")
	return nil
}

// Version is the negotiated protocol version.
func (c *Conn) Version() uint32 {
	return c.version
}

// ServerVersion is the version the server reported during the handshake.
func (c *Conn) ServerVersion() uint32 {
	return c.serverVersion
}

// Request writes a request and waits for its reply payload. The call gives
// up when ctx ends or the request timeout passes; a reply that arrives
// afterwards is discarded and the next request is unaffected.
func (c *Conn) Request(ctx context.Context, kind wire.Kind, deviceIndex uint32, payload []byte) (reply []byte, err error) {
	if !kind.HasReply() {
		return nil, errors.Errorf("conn: %v has no reply, use Send", kind)
	}
	if err := wire.CheckVersion(kind, c.version); err != nil {
		return nil, err
	}
	if !c.t.Alive() {
		return nil, c.deadError(kind, deviceIndex)
	}
	if c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}

	ctx, span := c.startSpan(ctx, "conn.Request", kind, deviceIndex)
	start := time.Now()
	defer func() {
		c.opts.metrics.observeRequest(kind, err, time.Since(start))
		endSpan(span, err)
	}()

	select {
	case c.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, c.contextError(kind, deviceIndex, ctx.Err())
	case <-c.t.Dying():
		return nil, c.deadError(kind, deviceIndex)
	}
	defer func() { <-c.gate }()

	w := &waiter{kind: kind, deviceIndex: deviceIndex, ch: make(chan []byte, 1)}
	if err := c.write(ctx, kind, deviceIndex, payload, w); err != nil {
		return nil, err
	}

	select {
	case b, ok := <-w.ch:
		if !ok {
			return nil, c.deadError(kind, deviceIndex)
		}
		return b, nil
	case <-ctx.Done():
		c.abandon(w)
		select {
		case b, ok := <-w.ch:
			if ok {
				return b, nil
			}
		default:
		}
		c.log.WithFields(log.Fields{
			"kind":   kind,
			"device": deviceIndex,
		}).Warn("abandoning request, its reply will be discarded")
		return nil, c.contextError(kind, deviceIndex, ctx.Err())
	}
}

// Send writes a command that has no reply. It returns once the packet is
// written; the server does not acknowledge commands.
func (c *Conn) Send(ctx context.Context, kind wire.Kind, deviceIndex uint32, payload []byte) (err error) {
	if kind.HasReply() {
		return errors.Errorf("conn: %v expects a reply, use Request", kind)
	}
	if err := wire.CheckVersion(kind, c.version); err != nil {
		return err
	}
	ctx, span := c.startSpan(ctx, "conn.Send", kind, deviceIndex)
	defer func() { endSpan(span, err) }()

	if err := c.write(ctx, kind, deviceIndex, payload, nil); err != nil {
		return err
	}
	c.opts.metrics.command(kind)
	return nil
}

// write sends one packet. When w is set it is queued as the expected reply
// immediately before the bytes go out, so a fast reply always finds it and
// a request that never reached the wire never leaves a waiter behind.
func (c *Conn) write(ctx context.Context, kind wire.Kind, deviceIndex uint32, payload []byte, w *waiter) error {
	if uint64(len(payload)) > uint64(c.opts.maxPayload) {
		return wire.Errorf(kind.String(), wire.ErrTooLarge, "%d byte payload", len(payload))
	}
	if !c.t.Alive() {
		return c.deadError(kind, deviceIndex)
	}

	select {
	case c.wlock <- struct{}{}:
	case <-ctx.Done():
		return c.contextError(kind, deviceIndex, ctx.Err())
	case <-c.t.Dying():
		return c.deadError(kind, deviceIndex)
	}
	defer func() { <-c.wlock }()

	if w != nil {
		c.mu.Lock()
		if c.done {
			c.mu.Unlock()
			return c.deadError(kind, deviceIndex)
		}
		c.enqueue(w)
		c.mu.Unlock()
	}

	if d, ok := c.rwc.(writeDeadliner); ok {
		deadline, _ := ctx.Deadline()
		if err := d.SetWriteDeadline(deadline); err != nil {
			c.log.WithError(err).Debug("could not set write deadline")
		}
	}
	if _, err := c.rwc.Write(wire.Packet(deviceIndex, kind, payload)); err != nil {
		terr := &TransportError{Op: "write", Err: err}
		if c.t.Alive() {
			c.t.Kill(terr)
		}
		return &RequestError{Kind: kind, DeviceIndex: deviceIndex, Err: ErrDisconnected, Cause: terr}
	}

	c.log.WithFields(log.Fields{
		"kind":   kind,
		"device": deviceIndex,
		"length": len(payload),
	}).Debug("wrote packet")
	return nil
}

// enqueue adds w to the pending replies. Replies carry no id, so replies to
// requests with the same kind and device are interchangeable: w goes ahead
// of abandoned waiters for its key and takes the first matching reply. The
// abandoned entries behind it absorb late replies, or are dropped once a
// reply for another key shows the server never answered them.
// Callers hold c.mu.
func (c *Conn) enqueue(w *waiter) {
	for i, p := range c.pending {
		if p.abandoned && p.kind == w.kind && p.deviceIndex == w.deviceIndex {
			c.pending = append(c.pending, nil)
			copy(c.pending[i+1:], c.pending[i:])
			c.pending[i] = w
			return
		}
	}
	c.pending = append(c.pending, w)
}

func (c *Conn) abandon(w *waiter) {
	c.mu.Lock()
	w.abandoned = true
	c.mu.Unlock()
}

func (c *Conn) readLoop() error {
	err := c.readPackets()
	if err != nil {
		c.log.WithError(err).Error("openrgb session failed")
	}
	c.t.Kill(err)
	c.drain()
	return err
}

func (c *Conn) readPackets() error {
	for {
		h, err := wire.ReadHeader(c.rwc)
		if err != nil {
			return c.readFailure("read header", err)
		}
		if h.Length > c.opts.maxPayload {
			return wire.Errorf("header", wire.ErrTooLarge, "%v announces %d bytes", h.Kind, h.Length)
		}
		payload := make([]byte, h.Length)
		if _, err := io.ReadFull(c.rwc, payload); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return c.readFailure("read payload", err)
		}
		c.log.WithFields(log.Fields{
			"kind":   h.Kind,
			"device": h.DeviceIndex,
			"length": h.Length,
		}).Debug("read packet")
		if err := c.dispatch(h, payload); err != nil {
			return err
		}
	}
}

func (c *Conn) readFailure(op string, err error) error {
	if !c.t.Alive() {
		// Close or a failed write got here first.
		return nil
	}
	if wire.IsProtocolError(err) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

func (c *Conn) dispatch(h wire.Header, payload []byte) error {
	if h.Kind.IsNotification() {
		c.broadcast(Notification{Kind: h.Kind, DeviceIndex: h.DeviceIndex, Payload: payload})
		return nil
	}

	c.mu.Lock()
	for len(c.pending) > 0 {
		w := c.pending[0]
		if w.kind == h.Kind && w.deviceIndex == h.DeviceIndex {
			c.pending = c.pending[1:]
			abandoned := w.abandoned
			c.mu.Unlock()
			if abandoned {
				c.opts.metrics.orphan()
				c.log.WithField("kind", h.Kind).Warn("discarding reply for abandoned request")
				return nil
			}
			w.ch <- payload
			return nil
		}
		if !w.abandoned {
			c.mu.Unlock()
			return wire.Errorf("reply", ErrUnexpectedReply, "got %v for device %d while waiting for %v for device %d",
				h.Kind, h.DeviceIndex, w.kind, w.deviceIndex)
		}
		// The server never answered this one.
		c.pending = c.pending[1:]
		c.log.WithField("kind", w.kind).Warn("dropping abandoned request without reply")
	}
	c.mu.Unlock()

	c.opts.metrics.orphan()
	c.log.WithFields(log.Fields{
		"kind":   h.Kind,
		"device": h.DeviceIndex,
	}).Warn("discarding reply with no pending request")
	return nil
}

// drain fails everything still waiting once the read loop is gone.
func (c *Conn) drain() {
	c.mu.Lock()
	c.done = true
	pending := c.pending
	c.pending = nil
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, w := range pending {
		close(w.ch)
	}
	for s := range subs {
		close(s.ch)
	}
	c.opts.metrics.disconnect()
	c.log.WithField("pending", len(pending)).Info("openrgb session ended")
}

func (c *Conn) contextError(kind wire.Kind, deviceIndex uint32, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestError{Kind: kind, DeviceIndex: deviceIndex, Err: ErrTimeout, Cause: err}
	}
	return &RequestError{Kind: kind, DeviceIndex: deviceIndex, Err: err}
}

func (c *Conn) deadError(kind wire.Kind, deviceIndex uint32) error {
	if err := c.Err(); err != ErrClosed {
		return &RequestError{Kind: kind, DeviceIndex: deviceIndex, Err: ErrDisconnected, Cause: err}
	}
	return &RequestError{Kind: kind, DeviceIndex: deviceIndex, Err: ErrClosed}
}

// Done is closed once the session has ended and its goroutines exited.
func (c *Conn) Done() <-chan struct{} {
	return c.t.Dead()
}

// Err returns nil while the session is alive, ErrClosed after Close, or
// the error that ended it.
func (c *Conn) Err() error {
	if c.t.Alive() {
		return nil
	}
	if err := c.t.Err(); err != nil && err != tomb.ErrStillAlive {
		return err
	}
	return ErrClosed
}

// Close ends the session. Pending calls fail with ErrClosed and
// subscriptions are closed.
func (c *Conn) Close() error {
	c.t.Kill(nil)
	err := c.t.Wait()
	if err != nil {
		c.log.WithError(err).Debug("closed failed session")
	}
	return nil
}
