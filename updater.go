package rgbops

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ngerakines/rgbops/client"
	"github.com/ngerakines/rgbops/wire"
)

type updater struct {
	statusDestination chan StatusMap
	thingManager      *ThingManager
	rgbClient         client.RGBClient

	stop chan struct{}
}

type thingStatusPair struct {
	thing  string
	status string
}

// NewUpdater applies received statuses to things and re-resolves targets
// when the server's device list changes. It blocks until stop is closed or
// the OpenRGB session ends.
func NewUpdater(stop chan struct{}, wg *sync.WaitGroup, statusDestination chan StatusMap, thingManager *ThingManager, rgbClient client.RGBClient) error {
	u := &updater{
		statusDestination: statusDestination,
		thingManager:      thingManager,
		rgbClient:         rgbClient,
		stop:              make(chan struct{}),
	}
	stopOnSignal("updater", stop, wg, u.stop)
	return u.Run()
}

func (p *updater) Run() error {
	log.Info("updater starting")

	sub := p.rgbClient.Notifications()
	defer sub.Close()
	for {
		select {
		case <-p.stop:
			return nil
		case n, ok := <-sub.C():
			if !ok {
				return errors.Wrap(p.rgbClient.Err(), "openrgb session ended")
			}
			if n.Kind != wire.DeviceListUpdated {
				continue
			}
			log.Info("Device list updated, resolving targets again.")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := p.thingManager.Reapply(ctx, p.rgbClient)
			cancel()
			if err != nil {
				log.WithError(err).Error("Could not reapply things.")
			}
		case data := <-p.statusDestination:
			thingPairs := p.validate(data)
			fields := log.Fields{}
			for _, thingPair := range thingPairs {
				fields[thingPair.thing] = thingPair.status
			}
			log.WithFields(fields).Info("received data")
			for _, thingPair := range thingPairs {
				if err := p.thingManager.UpdateThing(thingPair.thing, thingPair.status); err != nil {
					log.WithError(err).WithFields(log.Fields{
						"thing":  thingPair.thing,
						"status": thingPair.status,
					}).Error("Could not update thing.")
				}
			}
		}
	}
}

func (p *updater) validate(statusData StatusMap) []thingStatusPair {
	warnOnUnknownStatus := viper.GetBool("validate.status")
	warnOnUnknownThing := viper.GetBool("validate.thing")

	pairs := []thingStatusPair{}
	for thing, status := range statusData {
		_, thingOK := p.thingManager.Things[thing]
		_, statusOK := p.thingManager.Status[status]
		if warnOnUnknownThing && !thingOK {
			log.WithField("thing", thing).Warn("Unexpected thing found.")
		}
		if warnOnUnknownStatus && !statusOK {
			log.WithField("status", status).Warn("Unexpected status found.")
		}
		if thingOK && statusOK {
			pairs = append(pairs, thingStatusPair{thing, status})
		}
	}
	return pairs
}

func containsString(s []string, e string) bool {
	for _, a := range s {
		if a == e {
			return true
		}
	}
	return false
}
