package rgbops

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	log "github.com/sirupsen/logrus"

	"github.com/ngerakines/rgbops/client"
)

type StatusConfigSet struct {
	Color   string `mapstructure:"color"`
	Type    string `mapstructure:"type"`
	Seconds int    `mapstructure:"seconds"`
}

type ThingConfigSet struct {
	Targets []TargetConfig `mapstructure:"targets"`
	OnStart string         `mapstructure:"onstart"`
	OnStop  string         `mapstructure:"onstop"`
}

type ThingManager struct {
	Status map[string]StatusConfigSet
	Things map[string]ThingConfigSet

	mu           sync.Mutex
	rgbClient    client.RGBClient
	targetGroups map[string]*targetGroup
}

func NewThingManager() *ThingManager {
	return &ThingManager{
		Status:       make(map[string]StatusConfigSet),
		Things:       make(map[string]ThingConfigSet),
		targetGroups: make(map[string]*targetGroup),
	}
}

func (m *ThingManager) validate() error {
	targets := []string{}
	for _, thingConfig := range m.Things {
		for _, target := range thingConfig.Targets {
			key := strings.ToLower(target.String())
			if containsString(targets, key) {
				return fmt.Errorf("Target %s is referenced in multiple things.", target)
			}
			targets = append(targets, key)
		}
	}
	for status, statusConfig := range m.Status {
		switch statusConfig.Type {
		case "", "solid", "breath":
		default:
			return fmt.Errorf("Status %s has unknown type %q.", status, statusConfig.Type)
		}
		if _, err := colorful.Hex(statusConfig.Color); err != nil {
			return fmt.Errorf("Status %s has invalid color %q.", status, statusConfig.Color)
		}
	}
	return nil
}

func (m *ThingManager) Init() error {
	if err := m.validate(); err != nil {
		return err
	}
	for thing, thingInfo := range m.Things {
		m.targetGroups[thing] = &targetGroup{
			thing:   thing,
			targets: thingInfo.Targets,
			currentState: targetGroupState{
				status:    "",
				updatedAt: time.Now(),
			},
			action:  NewNoOpAction(),
			onStart: thingInfo.OnStart,
			onStop:  thingInfo.OnStop,
		}
	}
	return nil
}

// Resolve maps every thing's targets onto the current device list. Targets
// that cannot be found are logged and skipped.
func (m *ThingManager) Resolve(ctx context.Context, rgbClient client.RGBClient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolve(ctx, rgbClient)
}

func (m *ThingManager) resolve(ctx context.Context, rgbClient client.RGBClient) error {
	m.rgbClient = rgbClient
	for _, targetGroup := range m.targetGroups {
		zones, err := resolveTargets(ctx, rgbClient, targetGroup.targets)
		if err != nil {
			if rgbClient.Err() != nil {
				return err
			}
			log.WithError(err).WithField("thing", targetGroup.thing).Warn("Could not resolve all targets.")
		}
		targetGroup.zones = zones
		log.WithFields(log.Fields{
			"thing": targetGroup.thing,
			"zones": len(zones),
		}).Debug("Resolved targets")
	}
	return nil
}

func (m *ThingManager) StartAll(ctx context.Context, rgbClient client.RGBClient) error {
	if err := m.Resolve(ctx, rgbClient); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, targetGroup := range m.targetGroups {
		if err := m.controllable(ctx, targetGroup); err != nil {
			return err
		}
		if targetGroup.onStart != "" {
			if err := m.fill(targetGroup, targetGroup.onStart); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *ThingManager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, targetGroup := range m.targetGroups {
		if err := targetGroup.action.Stop(ctx); err != nil {
			return err
		}
		targetGroup.action = NewNoOpAction()
		if targetGroup.onStop != "" {
			if err := m.fill(targetGroup, targetGroup.onStop); err != nil {
				return err
			}
		}
	}
	return nil
}

// UpdateThing replaces the thing's running action with the one configured
// for status. Repeating the current status is a no-op.
func (m *ThingManager) UpdateThing(thing, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateThing(thing, status, false)
}

// Reapply resolves targets again and restarts every thing's current action
// against the new zones. Device indices change when the server's device
// list does.
func (m *ThingManager) Reapply(ctx context.Context, rgbClient client.RGBClient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.resolve(ctx, rgbClient); err != nil {
		return err
	}
	for thing, targetGroup := range m.targetGroups {
		if err := m.controllable(ctx, targetGroup); err != nil {
			return err
		}
		if targetGroup.currentState.status == "" {
			continue
		}
		if err := m.updateThing(thing, targetGroup.currentState.status, true); err != nil {
			return err
		}
	}
	return nil
}

func (m *ThingManager) updateThing(thing, status string, force bool) error {
	targetGroup, ok := m.targetGroups[thing]
	if !ok {
		return fmt.Errorf("error: unknown thing %s", thing)
	}
	statusConfig, ok := m.Status[status]
	if !ok {
		return fmt.Errorf("error: unknown status %s", status)
	}
	if m.rgbClient == nil {
		return fmt.Errorf("error: things have not been started")
	}
	if targetGroup.currentState.status == status && !force {
		return nil
	}

	color, err := colorful.Hex(statusConfig.Color)
	if err != nil {
		return err
	}
	var action Action
	switch statusConfig.Type {
	case "breath":
		action, err = NewBreathAction(m.rgbClient, targetGroup.zones, color, colorful.Color{}, statusConfig.Seconds)
	default:
		action, err = NewSolidFillAction(m.rgbClient, targetGroup.zones, color)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := targetGroup.action.Stop(ctx); err != nil {
		log.WithError(err).WithField("thing", thing).Warn("Previous action did not stop cleanly.")
	}
	targetGroup.action = action
	if err := action.Start(); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"thing":  thing,
		"status": status,
		"from":   targetGroup.currentState.status,
		"since":  targetGroup.currentState.updatedAt,
	}).Info("Thing updated")
	targetGroup.currentState = targetGroupState{status: status, updatedAt: time.Now()}
	return nil
}

// State returns the last status applied to thing.
func (m *ThingManager) State(thing string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	targetGroup, ok := m.targetGroups[thing]
	if !ok {
		return "", false
	}
	return targetGroup.currentState.status, true
}

func (m *ThingManager) controllable(ctx context.Context, targetGroup *targetGroup) error {
	seen := map[uint32]bool{}
	for _, zone := range targetGroup.zones {
		if seen[zone.Device] {
			continue
		}
		seen[zone.Device] = true
		if _, err := m.rgbClient.SetControllableMode(ctx, zone.Device); err != nil {
			if !client.IsValidation(err) {
				return err
			}
			log.WithError(err).WithField("thing", targetGroup.thing).Warn("Controller has no controllable mode.")
		}
	}
	return nil
}

func (m *ThingManager) fill(targetGroup *targetGroup, hex string) error {
	color, err := colorful.Hex(hex)
	if err != nil {
		return err
	}
	action, err := NewSolidFillAction(m.rgbClient, targetGroup.zones, color)
	if err != nil {
		return err
	}
	targetGroup.action = action
	return action.Start()
}
