package client

import (
	log "github.com/sirupsen/logrus"

	"github.com/ngerakines/rgbops/wire"
)

// watch drops cached controller snapshots whenever the server reports that
// its device list changed. It runs until the client is closed or the
// session ends.
func (c *rgbClient) watch() error {
	for {
		select {
		case n, ok := <-c.sub.C():
			if !ok {
				log.Debug("session ended, stopping controller cache watcher")
				return nil
			}
			if n.Kind != wire.DeviceListUpdated {
				continue
			}
			c.mu.Lock()
			cached := len(c.cache)
			c.mu.Unlock()
			log.WithFields(log.Fields{
				"kind":   n.Kind,
				"cached": cached,
			}).Debug("device list updated, dropping controller cache")
			c.invalidate()
		case <-c.t.Dying():
			c.sub.Close()
			return nil
		}
	}
}
