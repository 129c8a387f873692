package rgbops

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type poller struct {
	statusDestination chan StatusMap

	location string
	ticker   *time.Ticker
	stop     chan struct{}
	client   *http.Client
}

type StatusMap map[string]string

// NewPoller fetches status.location every status.interval seconds and sends
// the decoded thing to status map to statusDestination. It blocks until
// stop is closed.
func NewPoller(stop chan struct{}, wg *sync.WaitGroup, statusDestination chan StatusMap) error {
	location := viper.GetString("status.location")
	if location == "" {
		return fmt.Errorf("error: status.location is not set")
	}
	interval := viper.GetInt64("status.interval")
	if interval <= 0 {
		interval = 30
	}
	p := &poller{
		statusDestination: statusDestination,
		location:          location,
		ticker:            time.NewTicker(time.Duration(interval) * time.Second),
		stop:              make(chan struct{}),
		client:            &http.Client{Timeout: 10 * time.Second},
	}
	stopOnSignal("poller", stop, wg, p.stop)
	return p.Run()
}

// stopOnSignal closes done once stop closes. wg tracks the watching
// goroutine.
func stopOnSignal(name string, stop <-chan struct{}, wg *sync.WaitGroup, done chan struct{}) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-stop
		log.WithField("component", name).Info("Stopping.")
		close(done)
	}()
}

func (p *poller) Run() error {
	log.WithField("location", p.location).Info("poller starting")
	defer p.ticker.Stop()
	for {
		select {
		case <-p.stop:
			return nil
		case t := <-p.ticker.C:
			log.WithField("time", t).Debug("Tick")
			statusData := StatusMap{}
			if err := p.poll(&statusData); err != nil {
				log.WithError(err).Warn("Could not poll status.")
				continue
			}
			select {
			case p.statusDestination <- statusData:
			case <-p.stop:
				return nil
			}
		}
	}
}

func (p *poller) poll(target interface{}) error {
	response, err := p.client.Get(p.location)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("error: bad status code from %s: %d", p.location, response.StatusCode)
	}
	return errors.Wrap(json.NewDecoder(response.Body).Decode(target), "cannot decode status")
}
