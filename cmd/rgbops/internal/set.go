package internal

import (
	"context"
	"fmt"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ngerakines/rgbops/client"
	"github.com/ngerakines/rgbops/device"
	"github.com/ngerakines/rgbops/wire"
)

var setSkipMode bool

var setCmd = &cobra.Command{
	Use:   "set <controller> <zone> <color>",
	Short: "Set every LED of a zone to one color",
	Long: `Set every LED of a zone to one color. Controller and zone are
given by index or by name, color as a hex value such as #ff8800.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		color, err := colorful.Hex(args[2])
		if err != nil {
			return fmt.Errorf("error: invalid color %s", args[2])
		}

		ctx := context.Background()
		rgbClient, err := connect(ctx, nil)
		if err != nil {
			return err
		}
		defer rgbClient.Close()

		controllers, err := rgbClient.Controllers(ctx)
		if err != nil {
			return err
		}
		controller := findController(controllers, args[0])
		if controller == nil {
			return fmt.Errorf("error: no controller %s", args[0])
		}
		zone := findZone(controller, args[1])
		if zone == nil {
			return fmt.Errorf("error: controller %s has no zone %s", controller.Name, args[1])
		}

		if !setSkipMode {
			if _, err := rgbClient.SetControllableMode(ctx, controller.Index); err != nil && !client.IsValidation(err) {
				return err
			}
		}
		r, g, b := color.Clamped().RGB255()
		if err := rgbClient.UpdateZoneColor(ctx, controller.Index, uint32(zone.Index), wire.RGB(r, g, b)); err != nil {
			return err
		}
		// Commands are not acknowledged; a read makes sure the server
		// has processed the update before the connection closes.
		if _, err := rgbClient.ControllerCount(ctx); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"controller": controller.Name,
			"zone":       zone.Name,
			"color":      color.Hex(),
		}).Info("Zone updated")
		return nil
	},
}

func findController(controllers []*device.Controller, ref string) *device.Controller {
	if i, err := strconv.Atoi(ref); err == nil {
		if i >= 0 && i < len(controllers) {
			return controllers[i]
		}
		return nil
	}
	for _, c := range controllers {
		if c.Name == ref {
			return c
		}
	}
	return nil
}

func findZone(c *device.Controller, ref string) *device.Zone {
	if i, err := strconv.Atoi(ref); err == nil {
		return c.Zone(i)
	}
	return c.FindZone(ref)
}

func init() {
	setCmd.Flags().BoolVar(&setSkipMode, "keep-mode", false, "do not switch the controller to a direct or static mode first")
	RootCmd.AddCommand(setCmd)
}
