package conn

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/ngerakines/rgbops/wire"
)

// peer is the server end of a net.Pipe driven step by step by a test.
type peer struct {
	t      *testing.T
	nc     net.Conn
	wg     sync.WaitGroup
	closed atomic.Bool
}

func (p *peer) errorf(format string, args ...interface{}) {
	if !p.closed.Load() {
		p.t.Errorf(format, args...)
	}
}

// run executes f on its own goroutine; the test waits for it on cleanup.
func (p *peer) run(f func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		f()
	}()
}

func (p *peer) next() (wire.Header, []byte) {
	p.nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	h, err := wire.ReadHeader(p.nc)
	if err != nil {
		p.errorf("peer: read header: %v", err)
		return wire.Header{}, nil
	}
	b := make([]byte, h.Length)
	if _, err := io.ReadFull(p.nc, b); err != nil {
		p.errorf("peer: read payload: %v", err)
	}
	return h, b
}

func (p *peer) expect(kind wire.Kind) (wire.Header, []byte) {
	h, b := p.next()
	if h.Kind != kind {
		p.errorf("peer: got %v, want %v", h.Kind, kind)
	}
	return h, b
}

func (p *peer) send(deviceIndex uint32, kind wire.Kind, payload []byte) {
	p.write(wire.Packet(deviceIndex, kind, payload))
}

func (p *peer) write(b []byte) {
	p.nc.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := p.nc.Write(b); err != nil {
		p.errorf("peer: write: %v", err)
	}
}

func u32(v uint32) []byte {
	w := wire.NewWriter()
	w.WriteUint32(v)
	return w.Bytes()
}

func quietLogger() log.FieldLogger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestConn(t *testing.T, serverVersion uint32, opts ...Option) (*Conn, *peer) {
	t.Helper()
	client, server := net.Pipe()
	p := &peer{t: t, nc: server}
	p.run(func() {
		h, _ := p.expect(wire.RequestProtocolVersion)
		p.send(h.DeviceIndex, wire.RequestProtocolVersion, u32(serverVersion))
	})

	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c, err := New(context.Background(), client, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() {
		p.closed.Store(true)
		c.Close()
		server.Close()
		p.wg.Wait()
	})
	return c, p
}

func waitDone(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection did not shut down")
	}
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

// waitCounter polls c until it reaches want.
func waitCounter(t *testing.T, c prometheus.Counter, want float64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for metricCounterValue(t, c) != want {
		if time.Now().After(deadline) {
			t.Fatalf("counter = %v, want %v", metricCounterValue(t, c), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandshake(t *testing.T) {
	tests := []struct {
		name          string
		serverVersion uint32
		opts          []Option
		wantOffered   uint32
		wantVersion   uint32
	}{
		{"server older", 3, nil, 5, 3},
		{"server newer", 9, nil, 5, 5},
		{"client capped", 4, []Option{WithMaxVersion(2)}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer server.Close()
			p := &peer{t: t, nc: server}
			p.run(func() {
				h, b := p.expect(wire.SetClientName)
				if string(b) != "rgbops-test\x00" {
					p.errorf("client name payload = %q", b)
				}
				h, b = p.expect(wire.RequestProtocolVersion)
				if got, _ := wire.Uint32Payload(b); got != tt.wantOffered {
					p.errorf("offered version %d, want %d", got, tt.wantOffered)
				}
				p.send(h.DeviceIndex, wire.RequestProtocolVersion, u32(tt.serverVersion))
			})

			opts := append([]Option{WithLogger(quietLogger()), WithClientName("rgbops-test")}, tt.opts...)
			c, err := New(context.Background(), client, opts...)
			p.wg.Wait()
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			defer c.Close()
			if c.Version() != tt.wantVersion || c.ServerVersion() != tt.serverVersion {
				t.Errorf("Version() = %d, ServerVersion() = %d", c.Version(), c.ServerVersion())
			}
		})
	}
}

func TestHandshakeFailureClosesTransport(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		wire.ReadHeader(server)
		server.Close()
	}()
	_, err := New(context.Background(), client, WithLogger(quietLogger()))
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("New() error = %v, want ErrDisconnected", err)
	}
	if _, err := client.Write([]byte{0}); err == nil {
		t.Error("transport still open after failed handshake")
	}
}

func TestConcurrentRequestsMatchCallers(t *testing.T) {
	c, p := newTestConn(t, 5)
	sub := c.Subscribe()
	defer sub.Close()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx uint32) {
			defer wg.Done()
			b, err := c.Request(context.Background(), wire.RequestControllerData, idx, u32(5))
			if err != nil {
				errs <- err
				return
			}
			if got, _ := wire.Uint32Payload(b); got != idx*10 {
				errs <- fmt.Errorf("caller for device %d got the reply for device %d", idx, got/10)
			}
		}(uint32(i))
	}

	seen := map[uint32]bool{}
	for i := 0; i < n; i++ {
		h, _ := p.expect(wire.RequestControllerData)
		if seen[h.DeviceIndex] {
			t.Errorf("device %d requested twice", h.DeviceIndex)
		}
		seen[h.DeviceIndex] = true
		// A notification between every request and its reply.
		p.send(0, wire.DeviceListUpdated, nil)
		p.send(h.DeviceIndex, wire.RequestControllerData, u32(h.DeviceIndex*10))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for i := 0; i < n; i++ {
		select {
		case nt := <-sub.C():
			if nt.Kind != wire.DeviceListUpdated {
				t.Errorf("notification kind = %v", nt.Kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("received %d of %d notifications", i, n)
		}
	}
}

func TestNotificationDoesNotConsumeReply(t *testing.T) {
	c, p := newTestConn(t, 5)
	sub := c.Subscribe()
	defer sub.Close()

	p.run(func() {
		h, _ := p.expect(wire.RequestControllerCount)
		p.send(0, wire.DeviceListUpdated, nil)
		p.send(h.DeviceIndex, wire.RequestControllerCount, u32(2))
	})
	b, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if got, _ := wire.Uint32Payload(b); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	select {
	case nt := <-sub.C():
		if nt.Kind != wire.DeviceListUpdated {
			t.Errorf("notification kind = %v", nt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestTimedOutRequestReleasesGate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	c, p := newTestConn(t, 5, WithMetrics(m))

	release := make(chan struct{})
	p.run(func() {
		p.expect(wire.RequestControllerCount)
		<-release
		p.send(0, wire.RequestControllerCount, u32(1))
		h, _ := p.expect(wire.RequestControllerCount)
		p.send(h.DeviceIndex, wire.RequestControllerCount, u32(7))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Request(ctx, wire.RequestControllerCount, 0, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Request() error = %v, want ErrTimeout", err)
	}
	var rerr *RequestError
	if !errors.As(err, &rerr) || rerr.Kind != wire.RequestControllerCount {
		t.Errorf("error %v is not a RequestError for RequestControllerCount", err)
	}
	close(release)
	waitCounter(t, m.orphans, 1)

	b, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil)
	if err != nil {
		t.Fatalf("Request() after timeout error: %v", err)
	}
	if got, _ := wire.Uint32Payload(b); got != 7 {
		t.Errorf("count = %d, want 7 (late reply leaked to next caller)", got)
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil", c.Err())
	}
	if got := metricCounterValue(t, m.orphans); got != 1 {
		t.Errorf("orphaned replies = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.requests.WithLabelValues("RequestControllerCount", "timeout")); got != 1 {
		t.Errorf("timeout requests = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.requests.WithLabelValues("RequestControllerCount", "ok")); got != 1 {
		t.Errorf("ok requests = %v, want 1", got)
	}
}

func TestUnansweredRequestDoesNotStallSameKey(t *testing.T) {
	c, p := newTestConn(t, 5)

	p.run(func() {
		// The first request is never answered.
		p.expect(wire.RequestControllerData)
		for i := 0; i < 3; i++ {
			h, _ := p.expect(wire.RequestControllerData)
			p.send(h.DeviceIndex, wire.RequestControllerData, []byte(fmt.Sprintf("reply-%d", i)))
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Request(ctx, wire.RequestControllerData, 2, u32(5)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Request() error = %v, want ErrTimeout", err)
	}

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		b, err := c.Request(ctx, wire.RequestControllerData, 2, u32(5))
		cancel()
		if err != nil {
			t.Fatalf("Request() #%d error: %v", i, err)
		}
		if want := fmt.Sprintf("reply-%d", i); string(b) != want {
			t.Errorf("Request() #%d = %q, want %q", i, b, want)
		}
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil", c.Err())
	}
}

func TestLateReplyAnswersIdenticalRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	c, p := newTestConn(t, 5, WithMetrics(m))

	release := make(chan struct{})
	p.run(func() {
		p.expect(wire.RequestControllerCount)
		<-release
		p.expect(wire.RequestControllerCount)
		p.send(0, wire.RequestControllerCount, u32(1))
		p.send(0, wire.RequestControllerCount, u32(1))
		h, _ := p.expect(wire.RequestProtocolVersion)
		p.send(h.DeviceIndex, wire.RequestProtocolVersion, u32(5))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Request(ctx, wire.RequestControllerCount, 0, nil); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Request() error = %v, want ErrTimeout", err)
	}
	close(release)

	b, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if got, _ := wire.Uint32Payload(b); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
	// The second reply is absorbed; the next exchange is not out of step.
	b, err = c.Request(context.Background(), wire.RequestProtocolVersion, 0, u32(5))
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if got, _ := wire.Uint32Payload(b); got != 5 {
		t.Errorf("version = %d, want 5", got)
	}
	if got := metricCounterValue(t, m.orphans); got != 1 {
		t.Errorf("orphaned replies = %v, want 1", got)
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil", c.Err())
	}
}

func TestCancelledRequestNeverAnswered(t *testing.T) {
	c, p := newTestConn(t, 5)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	p.run(func() {
		p.expect(wire.RequestControllerCount)
		cancel()
		<-release
		h, _ := p.expect(wire.RequestControllerData)
		p.send(h.DeviceIndex, wire.RequestControllerData, []byte("ok"))
	})

	_, err := c.Request(ctx, wire.RequestControllerCount, 0, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Request() error = %v, want context.Canceled", err)
	}
	close(release)

	b, err := c.Request(context.Background(), wire.RequestControllerData, 2, u32(5))
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if string(b) != "ok" {
		t.Errorf("reply = %q", b)
	}
}

func TestGateHonoursContext(t *testing.T) {
	c, p := newTestConn(t, 5)

	got := make(chan struct{})
	release := make(chan struct{})
	p.run(func() {
		h, _ := p.expect(wire.RequestControllerCount)
		close(got)
		<-release
		p.send(h.DeviceIndex, wire.RequestControllerCount, u32(1))
	})
	first := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil)
		first <- err
	}()
	<-got

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Request(ctx, wire.RequestControllerCount, 0, nil); !errors.Is(err, ErrTimeout) {
		t.Errorf("queued Request() error = %v, want ErrTimeout", err)
	}

	close(release)
	if err := <-first; err != nil {
		t.Errorf("first Request() error: %v", err)
	}
}

func TestDisconnectFailsPending(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	c, p := newTestConn(t, 5, WithMetrics(m))
	sub := c.Subscribe()

	p.run(func() {
		p.expect(wire.RequestControllerCount)
		p.nc.Close()
	})
	_, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil)
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Request() error = %v, want ErrDisconnected", err)
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Errorf("error %v does not carry a TransportError", err)
	}

	waitDone(t, c)
	if !errors.Is(c.Err(), io.EOF) {
		t.Errorf("Err() = %v, want EOF", c.Err())
	}
	if _, ok := <-sub.C(); ok {
		t.Error("subscription still open")
	}
	if _, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Request() after disconnect = %v", err)
	}
	if err := c.Send(context.Background(), wire.UpdateSingleLED, 0, nil); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Send() after disconnect = %v", err)
	}
	if _, ok := <-c.Subscribe().C(); ok {
		t.Error("late subscription open")
	}
	if got := metricCounterValue(t, m.disconnects); got != 1 {
		t.Errorf("disconnects = %v, want 1", got)
	}
}

func TestProtocolErrorsTearDown(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", append([]byte("ORGX"), make([]byte, 12)...), wire.ErrBadMagic},
		{"oversized payload", wire.EncodeHeader(0, wire.DeviceListUpdated, 1<<20), wire.ErrTooLarge},
		{"reply for another request", wire.Packet(0, wire.RequestProfileList, nil), ErrUnexpectedReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, p := newTestConn(t, 5, WithMaxPayload(1024))
			p.run(func() {
				p.expect(wire.RequestControllerCount)
				p.write(tt.data)
			})
			_, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil)
			if !errors.Is(err, ErrDisconnected) {
				t.Fatalf("Request() error = %v, want ErrDisconnected", err)
			}
			waitDone(t, c)
			if !errors.Is(c.Err(), tt.want) {
				t.Errorf("Err() = %v, want %v", c.Err(), tt.want)
			}
			if !wire.IsProtocolError(c.Err()) {
				t.Errorf("Err() %T is not a ProtocolError", c.Err())
			}
		})
	}
}

func TestUnsolicitedReplyDiscarded(t *testing.T) {
	c, p := newTestConn(t, 5)
	sub := c.Subscribe()
	defer sub.Close()

	p.send(0, wire.RequestControllerCount, u32(99))
	// Notifications are dispatched in wire order, so once this one
	// arrives the stray reply has been handled.
	p.send(0, wire.DeviceListUpdated, nil)
	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}

	p.run(func() {
		h, _ := p.expect(wire.RequestControllerCount)
		p.send(h.DeviceIndex, wire.RequestControllerCount, u32(3))
	})
	b, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if got, _ := wire.Uint32Payload(b); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
}

func TestVersionGateIsLocal(t *testing.T) {
	c, _ := newTestConn(t, 2)

	if err := c.Send(context.Background(), wire.SaveMode, 0, nil); !errors.Is(err, wire.ErrUnsupportedKind) {
		t.Errorf("Send(SaveMode) = %v, want ErrUnsupportedKind", err)
	}
	if _, err := c.Request(context.Background(), wire.RequestPluginList, 0, nil); !errors.Is(err, wire.ErrUnsupportedKind) {
		t.Errorf("Request(RequestPluginList) = %v, want ErrUnsupportedKind", err)
	}
	if _, err := c.Request(context.Background(), wire.UpdateLEDs, 0, nil); err == nil {
		t.Error("Request(UpdateLEDs) succeeded")
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil", c.Err())
	}
}

func TestSendWritesPacket(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	c, p := newTestConn(t, 5, WithMetrics(m))

	want := []byte{7, 0, 0, 0, 255, 0, 0, 0}
	p.run(func() {
		h, b := p.expect(wire.UpdateSingleLED)
		if h.DeviceIndex != 3 || !bytes.Equal(b, want) {
			p.errorf("peer got device %d payload %v", h.DeviceIndex, b)
		}
	})
	if err := c.Send(context.Background(), wire.UpdateSingleLED, 3, want); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got := metricCounterValue(t, m.commands.WithLabelValues("UpdateSingleLED")); got != 1 {
		t.Errorf("commands = %v, want 1", got)
	}

	if err := c.Send(context.Background(), wire.UpdateLEDs, 0, make([]byte, wire.DefaultMaxPayload+1)); !errors.Is(err, wire.ErrTooLarge) {
		t.Errorf("Send(oversized) = %v, want ErrTooLarge", err)
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	c, p := newTestConn(t, 5, WithMetrics(m), WithNotificationBuffer(1))
	slow := c.Subscribe()
	defer slow.Close()

	p.run(func() {
		h, _ := p.expect(wire.RequestControllerCount)
		for i := 0; i < 3; i++ {
			p.send(0, wire.DeviceListUpdated, nil)
		}
		p.send(h.DeviceIndex, wire.RequestControllerCount, u32(0))
	})
	if _, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil); err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if got := len(slow.C()); got != 1 {
		t.Errorf("buffered notifications = %d, want 1", got)
	}
	if got := metricCounterValue(t, m.notificationsDropped); got != 2 {
		t.Errorf("dropped = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.notifications.WithLabelValues("DeviceListUpdated")); got != 3 {
		t.Errorf("notifications = %v, want 3", got)
	}
}

func TestClose(t *testing.T) {
	c, p := newTestConn(t, 5)
	sub := c.Subscribe()

	got := make(chan struct{})
	p.run(func() {
		p.expect(wire.RequestControllerCount)
		close(got)
	})
	pending := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil)
		pending <- err
	}()
	<-got

	if err := c.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := <-pending; !errors.Is(err, ErrClosed) {
		t.Errorf("pending Request() error = %v, want ErrClosed", err)
	}
	if !errors.Is(c.Err(), ErrClosed) {
		t.Errorf("Err() = %v, want ErrClosed", c.Err())
	}
	if _, ok := <-sub.C(); ok {
		t.Error("subscription still open")
	}
	if _, err := c.Request(context.Background(), wire.RequestControllerCount, 0, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Request() after Close = %v, want ErrClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		h, _ := wire.ReadHeader(nc)
		io.CopyN(io.Discard, nc, int64(h.Length))
		nc.Write(wire.Packet(0, wire.RequestProtocolVersion, u32(4)))
		io.Copy(io.Discard, nc)
	}()

	c, err := Dial(context.Background(), ln.Addr().String(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer c.Close()
	if c.Version() != 4 {
		t.Errorf("Version() = %d, want 4", c.Version())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "127.0.0.1:1", WithLogger(quietLogger())); err == nil {
		t.Error("Dial() to a closed port succeeded")
	} else {
		var terr *TransportError
		if !errors.As(err, &terr) || terr.Op != "dial" {
			t.Errorf("Dial() error = %v, want dial TransportError", err)
		}
	}
}

// fixedConn is a transport that cannot take write deadlines.
type fixedConn struct {
	net.Conn
}

func (fixedConn) SetWriteDeadline(time.Time) error {
	return errors.New("deadlines unsupported")
}

func TestWriteDeadlineFailureIsLogged(t *testing.T) {
	client, server := net.Pipe()
	p := &peer{t: t, nc: server}
	p.run(func() {
		h, _ := p.expect(wire.RequestProtocolVersion)
		p.send(h.DeviceIndex, wire.RequestProtocolVersion, u32(5))
		h, _ = p.expect(wire.RequestControllerCount)
		p.send(h.DeviceIndex, wire.RequestControllerCount, u32(3))
	})

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	c, err := New(context.Background(), fixedConn{client}, WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() {
		p.closed.Store(true)
		c.Close()
		server.Close()
		p.wg.Wait()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := c.Request(ctx, wire.RequestControllerCount, 0, nil)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if got, _ := wire.Uint32Payload(b); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "could not set write deadline" && e.Level == log.DebugLevel {
			logged = true
		}
	}
	if !logged {
		t.Error("write deadline failure was not logged")
	}
}
