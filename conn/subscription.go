package conn

import (
	log "github.com/sirupsen/logrus"

	"github.com/ngerakines/rgbops/wire"
)

// Notification is a packet the server pushed without being asked.
type Notification struct {
	Kind        wire.Kind
	DeviceIndex uint32
	Payload     []byte
}

// Subscription receives notifications in wire order. Its channel is closed
// when the subscription or the session ends. A subscriber that falls more
// than the buffer size behind misses notifications.
type Subscription struct {
	c  *Conn
	ch chan Notification
}

// C returns the notification channel.
func (s *Subscription) C() <-chan Notification {
	return s.ch
}

// Close stops delivery and closes the channel.
func (s *Subscription) Close() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if _, ok := s.c.subs[s]; ok {
		delete(s.c.subs, s)
		close(s.ch)
	}
}

// Subscribe registers a new notification subscriber. On an ended session
// the returned subscription is already closed.
func (c *Conn) Subscribe() *Subscription {
	s := &Subscription{c: c, ch: make(chan Notification, c.opts.notifyBuffer)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		close(s.ch)
		return s
	}
	c.subs[s] = struct{}{}
	return s
}

func (c *Conn) broadcast(n Notification) {
	c.opts.metrics.notification(n.Kind)

	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.subs {
		select {
		case s.ch <- n:
		default:
			c.opts.metrics.dropped()
			c.log.WithFields(log.Fields{
				"kind":   n.Kind,
				"buffer": cap(s.ch),
			}).Debug("subscriber full, dropping notification")
		}
	}
}
