package rgbops

import (
	"context"
	"fmt"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	log "github.com/sirupsen/logrus"

	"github.com/ngerakines/rgbops/client"
	"github.com/ngerakines/rgbops/device"
	"github.com/ngerakines/rgbops/wire"
)

// commandTimeout bounds each write an action makes.
const commandTimeout = 5 * time.Second

type Action interface {
	Start() error
	Stop(ctx context.Context) error
}

type noOpAction struct {
}

type solidFillAction struct {
	targets []zoneRef
	color   colorful.Color

	rgbClient client.RGBClient
}

func NewNoOpAction() Action {
	return &noOpAction{}
}

func NewSolidFillAction(rgbClient client.RGBClient, targets []zoneRef, color colorful.Color) (Action, error) {
	if !color.IsValid() {
		return nil, fmt.Errorf("error: invalid color")
	}
	return &solidFillAction{targets, color, rgbClient}, nil
}

func (a *solidFillAction) Start() error {
	return fillTargets(a.rgbClient, a.targets, deviceColor(a.color))
}

func (a *solidFillAction) Stop(ctx context.Context) error {
	log.WithField("action", "solidfill").Info("Stopping")
	return nil
}

func (noOpAction) Start() error {
	return nil
}

func (noOpAction) Stop(ctx context.Context) error {
	log.WithField("action", "noOpAction").Info("Stopping")
	return nil
}

// ClearAll paints every zone of every controller with the onstart color.
func ClearAll(ctx context.Context, rgbClient client.RGBClient, onstart string) error {
	color, err := colorful.Hex(onstart)
	if err != nil {
		return err
	}
	if !color.IsValid() {
		return fmt.Errorf("error: color %s is invalid", onstart)
	}
	controllers, err := rgbClient.Controllers(ctx)
	if err != nil {
		return err
	}

	c := deviceColor(color)
	for _, controller := range controllers {
		if _, err := rgbClient.SetControllableMode(ctx, controller.Index); err != nil {
			log.WithError(err).WithField("controller", controller.Name).Warn("Cannot switch controller to a controllable mode")
		}
		for _, zone := range controller.Zones {
			log.WithFields(log.Fields{
				"controller": controller.Name,
				"zone":       zone.Name,
				"hex":        c.Hex(),
			}).Debug("Setting zone colors")
			if err := rgbClient.UpdateZoneColor(ctx, controller.Index, uint32(zone.Index), c); err != nil {
				return err
			}
		}
	}
	return nil
}

func fillTargets(rgbClient client.RGBClient, targets []zoneRef, c device.Color) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	for _, target := range targets {
		if err := rgbClient.UpdateZoneColor(ctx, target.Device, target.Zone, c); err != nil {
			return err
		}
	}
	return nil
}

func deviceColor(c colorful.Color) device.Color {
	r, g, b := c.Clamped().RGB255()
	return wire.RGB(r, g, b)
}
