package rgbops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ngerakines/rgbops/client"
)

// TargetConfig names a zone by controller and zone name. An empty zone
// selects every zone of the controller.
type TargetConfig struct {
	Controller string `mapstructure:"controller"`
	Zone       string `mapstructure:"zone"`
}

func (t TargetConfig) String() string {
	if t.Zone == "" {
		return t.Controller
	}
	return t.Controller + "/" + t.Zone
}

// zoneRef is a target resolved against the current device list. Device
// indices only hold until the next DeviceListUpdated.
type zoneRef struct {
	Device uint32
	Zone   uint32
}

type targetGroupState struct {
	status    string
	updatedAt time.Time
}

type targetGroup struct {
	thing        string
	targets      []TargetConfig
	zones        []zoneRef
	currentState targetGroupState
	action       Action
	onStart      string
	onStop       string
}

// resolveTargets maps target names onto the server's current controllers.
// Names match ignoring case.
func resolveTargets(ctx context.Context, rgbClient client.RGBClient, targets []TargetConfig) ([]zoneRef, error) {
	controllers, err := rgbClient.Controllers(ctx)
	if err != nil {
		return nil, err
	}
	refs := []zoneRef{}
	for _, target := range targets {
		found := false
		for _, controller := range controllers {
			if !strings.EqualFold(controller.Name, target.Controller) {
				continue
			}
			if target.Zone == "" {
				for _, zone := range controller.Zones {
					refs = append(refs, zoneRef{controller.Index, uint32(zone.Index)})
				}
				found = true
				break
			}
			if zone := controller.FindZone(target.Zone); zone != nil {
				refs = append(refs, zoneRef{controller.Index, uint32(zone.Index)})
				found = true
				break
			}
		}
		if !found {
			return refs, fmt.Errorf("target %s not found", target)
		}
	}
	return refs, nil
}
