package client

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	tomb "gopkg.in/tomb.v2"

	"github.com/ngerakines/rgbops/conn"
	"github.com/ngerakines/rgbops/device"
	"github.com/ngerakines/rgbops/wire"
)

// DefaultAddress is where an OpenRGB server listens by default.
const DefaultAddress = "localhost:6742"

// RGBClient is a typed view of one OpenRGB session. Commands that change
// lighting are fire-and-forget: they return once the packet is written and
// the server never acknowledges them.
type RGBClient interface {
	ProtocolVersion() uint32
	ControllerCount(ctx context.Context) (uint32, error)
	Controller(ctx context.Context, deviceIndex uint32) (*device.Controller, error)
	Controllers(ctx context.Context) ([]*device.Controller, error)
	Profiles(ctx context.Context) ([]string, error)
	Plugins(ctx context.Context) ([]device.Plugin, error)

	SetClientName(ctx context.Context, name string) error
	UpdateLEDs(ctx context.Context, deviceIndex uint32, colors []device.Color) error
	UpdateZoneLEDs(ctx context.Context, deviceIndex, zone uint32, colors []device.Color) error
	UpdateZoneColor(ctx context.Context, deviceIndex, zone uint32, color device.Color) error
	UpdateSingleLED(ctx context.Context, deviceIndex, led uint32, color device.Color) error
	ResizeZone(ctx context.Context, deviceIndex, zone, size uint32) error
	SetCustomMode(ctx context.Context, deviceIndex uint32) error
	UpdateMode(ctx context.Context, deviceIndex uint32, mode *device.Mode) error
	SaveMode(ctx context.Context, deviceIndex uint32, mode *device.Mode) error
	SetControllableMode(ctx context.Context, deviceIndex uint32) (*device.Mode, error)
	SaveProfile(ctx context.Context, name string) error
	LoadProfile(ctx context.Context, name string) error
	DeleteProfile(ctx context.Context, name string) error
	ClearSegments(ctx context.Context, deviceIndex, zone uint32) error
	AddSegment(ctx context.Context, deviceIndex, zone uint32, segment *device.Segment) error

	Notifications() *conn.Subscription
	Done() <-chan struct{}
	Err() error
	Close() error
}

type rgbClient struct {
	c *conn.Conn

	mu    sync.Mutex
	gen   uint64
	count *uint32
	cache map[uint32]*device.Controller

	sub *conn.Subscription
	t   tomb.Tomb
}

// New dials an OpenRGB server and completes the handshake.
func New(ctx context.Context, address string, opts ...conn.Option) (RGBClient, error) {
	c, err := conn.Dial(ctx, address, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to openrgb server %s", address)
	}
	return NewFromConn(c), nil
}

// NewFromConn wraps an established session. The client owns c from then on
// and closes it on Close.
func NewFromConn(c *conn.Conn) RGBClient {
	client := &rgbClient{
		c:     c,
		cache: map[uint32]*device.Controller{},
		sub:   c.Subscribe(),
	}
	client.t.Go(client.watch)
	return client
}

func (c *rgbClient) ProtocolVersion() uint32 {
	return c.c.Version()
}

func (c *rgbClient) ControllerCount(ctx context.Context) (uint32, error) {
	gen := c.generation()
	b, err := c.c.Request(ctx, wire.RequestControllerCount, 0, nil)
	if err != nil {
		return 0, err
	}
	n, err := wire.Uint32Payload(b)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	if c.gen == gen {
		c.count = &n
	}
	c.mu.Unlock()
	return n, nil
}

// Controller fetches a fresh snapshot of one controller.
func (c *rgbClient) Controller(ctx context.Context, deviceIndex uint32) (*device.Controller, error) {
	if err := c.checkIndex(ctx, "Controller", deviceIndex); err != nil {
		return nil, err
	}
	return c.fetch(ctx, deviceIndex)
}

func (c *rgbClient) Controllers(ctx context.Context) ([]*device.Controller, error) {
	n, err := c.ControllerCount(ctx)
	if err != nil {
		return nil, err
	}
	controllers := make([]*device.Controller, 0, n)
	for i := uint32(0); i < n; i++ {
		controller, err := c.fetch(ctx, i)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read controller %d", i)
		}
		controllers = append(controllers, controller)
	}
	return controllers, nil
}

func (c *rgbClient) Profiles(ctx context.Context) ([]string, error) {
	b, err := c.c.Request(ctx, wire.RequestProfileList, 0, nil)
	if err != nil {
		return nil, err
	}
	return device.DecodeProfiles(b)
}

func (c *rgbClient) Plugins(ctx context.Context) ([]device.Plugin, error) {
	b, err := c.c.Request(ctx, wire.RequestPluginList, 0, nil)
	if err != nil {
		return nil, err
	}
	return device.DecodePlugins(b)
}

func (c *rgbClient) SetClientName(ctx context.Context, name string) error {
	if name == "" {
		return invalid("SetClientName", 0, "name is empty")
	}
	return c.c.Send(ctx, wire.SetClientName, 0, device.EncodeName(name))
}

func (c *rgbClient) UpdateLEDs(ctx context.Context, deviceIndex uint32, colors []device.Color) error {
	const op = "UpdateLEDs"
	snap, err := c.snapshot(ctx, op, wire.UpdateLEDs, deviceIndex)
	if err != nil {
		return err
	}
	if len(colors) != len(snap.LEDs) {
		return invalid(op, deviceIndex, "%d colors for %d LEDs", len(colors), len(snap.LEDs))
	}
	payload, err := device.EncodeUpdateLEDs(colors)
	if err != nil {
		return err
	}
	return c.c.Send(ctx, wire.UpdateLEDs, deviceIndex, payload)
}

func (c *rgbClient) UpdateZoneLEDs(ctx context.Context, deviceIndex, zone uint32, colors []device.Color) error {
	const op = "UpdateZoneLEDs"
	snap, err := c.snapshot(ctx, op, wire.UpdateZoneLEDs, deviceIndex)
	if err != nil {
		return err
	}
	z, err := zoneOf(op, deviceIndex, snap, zone)
	if err != nil {
		return err
	}
	if uint32(len(colors)) != z.LEDCount {
		return invalid(op, deviceIndex, "%d colors for zone %q with %d LEDs", len(colors), z.Name, z.LEDCount)
	}
	payload, err := device.EncodeUpdateZoneLEDs(zone, colors)
	if err != nil {
		return err
	}
	return c.c.Send(ctx, wire.UpdateZoneLEDs, deviceIndex, payload)
}

// UpdateZoneColor sets every LED of a zone to one color.
func (c *rgbClient) UpdateZoneColor(ctx context.Context, deviceIndex, zone uint32, color device.Color) error {
	snap, err := c.snapshot(ctx, "UpdateZoneColor", wire.UpdateZoneLEDs, deviceIndex)
	if err != nil {
		return err
	}
	z, err := zoneOf("UpdateZoneColor", deviceIndex, snap, zone)
	if err != nil {
		return err
	}
	return c.UpdateZoneLEDs(ctx, deviceIndex, zone, wire.Fill(color, int(z.LEDCount)))
}

func (c *rgbClient) UpdateSingleLED(ctx context.Context, deviceIndex, led uint32, color device.Color) error {
	const op = "UpdateSingleLED"
	snap, err := c.snapshot(ctx, op, wire.UpdateSingleLED, deviceIndex)
	if err != nil {
		return err
	}
	if int(led) >= len(snap.LEDs) {
		return invalid(op, deviceIndex, "LED %d out of range, controller has %d", led, len(snap.LEDs))
	}
	return c.c.Send(ctx, wire.UpdateSingleLED, deviceIndex, device.EncodeUpdateSingleLED(int32(led), color))
}

func (c *rgbClient) ResizeZone(ctx context.Context, deviceIndex, zone, size uint32) error {
	const op = "ResizeZone"
	snap, err := c.snapshot(ctx, op, wire.ResizeZone, deviceIndex)
	if err != nil {
		return err
	}
	z, err := zoneOf(op, deviceIndex, snap, zone)
	if err != nil {
		return err
	}
	if size < z.LEDsMin || size > z.LEDsMax {
		return invalid(op, deviceIndex, "size %d outside [%d, %d] for zone %q", size, z.LEDsMin, z.LEDsMax, z.Name)
	}
	if err := c.c.Send(ctx, wire.ResizeZone, deviceIndex, device.EncodeResizeZone(int32(zone), int32(size))); err != nil {
		return err
	}
	c.forget(deviceIndex)
	return nil
}

func (c *rgbClient) SetCustomMode(ctx context.Context, deviceIndex uint32) error {
	if _, err := c.snapshot(ctx, "SetCustomMode", wire.SetCustomMode, deviceIndex); err != nil {
		return err
	}
	if err := c.c.Send(ctx, wire.SetCustomMode, deviceIndex, nil); err != nil {
		return err
	}
	c.forget(deviceIndex)
	return nil
}

// UpdateMode makes mode the active mode. mode.Index selects which of the
// controller's modes is replaced.
func (c *rgbClient) UpdateMode(ctx context.Context, deviceIndex uint32, mode *device.Mode) error {
	return c.sendMode(ctx, "UpdateMode", wire.UpdateMode, deviceIndex, mode)
}

// SaveMode is UpdateMode that also asks the device to persist the mode.
func (c *rgbClient) SaveMode(ctx context.Context, deviceIndex uint32, mode *device.Mode) error {
	return c.sendMode(ctx, "SaveMode", wire.SaveMode, deviceIndex, mode)
}

func (c *rgbClient) sendMode(ctx context.Context, op string, kind wire.Kind, deviceIndex uint32, mode *device.Mode) error {
	snap, err := c.snapshot(ctx, op, kind, deviceIndex)
	if err != nil {
		return err
	}
	if mode == nil {
		return invalid(op, deviceIndex, "mode is nil")
	}
	current := snap.Mode(mode.Index)
	if current == nil {
		return invalid(op, deviceIndex, "mode %d out of range, controller has %d", mode.Index, len(snap.Modes))
	}
	if mode.ColorMode == device.ColorModeSpecific {
		n := uint32(len(mode.Colors))
		if n < current.ColorsMin || n > current.ColorsMax {
			return invalid(op, deviceIndex, "%d colors for mode %q outside [%d, %d]", n, current.Name, current.ColorsMin, current.ColorsMax)
		}
	}
	payload, err := device.EncodeUpdateMode(int32(mode.Index), mode, c.c.Version())
	if err != nil {
		return err
	}
	if err := c.c.Send(ctx, kind, deviceIndex, payload); err != nil {
		return err
	}
	c.forget(deviceIndex)
	return nil
}

// SetControllableMode switches the controller to the first of its Direct,
// Custom or Static modes so that color updates take effect.
func (c *rgbClient) SetControllableMode(ctx context.Context, deviceIndex uint32) (*device.Mode, error) {
	const op = "SetControllableMode"
	snap, err := c.snapshot(ctx, op, wire.UpdateMode, deviceIndex)
	if err != nil {
		return nil, err
	}
	mode := snap.FindMode("direct", "custom", "static")
	if mode == nil {
		return nil, invalid(op, deviceIndex, "controller %q has no direct, custom or static mode", snap.Name)
	}
	mode = mode.Clone()
	if err := c.UpdateMode(ctx, deviceIndex, mode); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"device": deviceIndex,
		"mode":   mode.Name,
	}).Debug("switched to controllable mode")
	return mode, nil
}

func (c *rgbClient) SaveProfile(ctx context.Context, name string) error {
	return c.profile(ctx, "SaveProfile", wire.RequestSaveProfile, name)
}

func (c *rgbClient) LoadProfile(ctx context.Context, name string) error {
	if err := c.profile(ctx, "LoadProfile", wire.RequestLoadProfile, name); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

func (c *rgbClient) DeleteProfile(ctx context.Context, name string) error {
	return c.profile(ctx, "DeleteProfile", wire.RequestDeleteProfile, name)
}

func (c *rgbClient) profile(ctx context.Context, op string, kind wire.Kind, name string) error {
	if err := wire.CheckVersion(kind, c.c.Version()); err != nil {
		return err
	}
	if name == "" {
		return invalid(op, 0, "profile name is empty")
	}
	return c.c.Send(ctx, kind, 0, device.EncodeName(name))
}

func (c *rgbClient) ClearSegments(ctx context.Context, deviceIndex, zone uint32) error {
	const op = "ClearSegments"
	snap, err := c.snapshot(ctx, op, wire.ClearSegments, deviceIndex)
	if err != nil {
		return err
	}
	if _, err := zoneOf(op, deviceIndex, snap, zone); err != nil {
		return err
	}
	if err := c.c.Send(ctx, wire.ClearSegments, deviceIndex, device.EncodeClearSegments(zone)); err != nil {
		return err
	}
	c.forget(deviceIndex)
	return nil
}

func (c *rgbClient) AddSegment(ctx context.Context, deviceIndex, zone uint32, segment *device.Segment) error {
	const op = "AddSegment"
	snap, err := c.snapshot(ctx, op, wire.AddSegment, deviceIndex)
	if err != nil {
		return err
	}
	z, err := zoneOf(op, deviceIndex, snap, zone)
	if err != nil {
		return err
	}
	switch {
	case segment == nil:
		return invalid(op, deviceIndex, "segment is nil")
	case segment.Name == "":
		return invalid(op, deviceIndex, "segment name is empty")
	case uint64(segment.Start)+uint64(segment.LEDCount) > uint64(z.LEDCount):
		return invalid(op, deviceIndex, "segment [%d, +%d) exceeds zone %q with %d LEDs", segment.Start, segment.LEDCount, z.Name, z.LEDCount)
	}
	payload, err := device.EncodeAddSegment(zone, segment)
	if err != nil {
		return err
	}
	if err := c.c.Send(ctx, wire.AddSegment, deviceIndex, payload); err != nil {
		return err
	}
	c.forget(deviceIndex)
	return nil
}

// Notifications subscribes to server pushes. Callers must Close the
// subscription when done with it.
func (c *rgbClient) Notifications() *conn.Subscription {
	return c.c.Subscribe()
}

func (c *rgbClient) Done() <-chan struct{} {
	return c.c.Done()
}

func (c *rgbClient) Err() error {
	return c.c.Err()
}

func (c *rgbClient) Close() error {
	c.t.Kill(nil)
	if err := c.t.Wait(); err != nil {
		log.WithError(err).Warn("controller cache watcher failed")
	}
	return c.c.Close()
}

// fetch reads one controller and refreshes its cached snapshot.
func (c *rgbClient) fetch(ctx context.Context, deviceIndex uint32) (*device.Controller, error) {
	version := c.c.Version()
	var payload []byte
	if version > 0 {
		payload = device.EncodeUint32(version)
	}
	gen := c.generation()
	b, err := c.c.Request(ctx, wire.RequestControllerData, deviceIndex, payload)
	if err != nil {
		return nil, err
	}
	controller, err := device.DecodeController(b, version)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode controller %d", deviceIndex)
	}
	controller.Index = deviceIndex

	c.mu.Lock()
	if c.gen == gen {
		c.cache[deviceIndex] = controller
	}
	c.mu.Unlock()
	return controller, nil
}

// snapshot gates kind on the negotiated version, then returns the cached
// controller for deviceIndex, reading it from the server on a miss.
func (c *rgbClient) snapshot(ctx context.Context, op string, kind wire.Kind, deviceIndex uint32) (*device.Controller, error) {
	if err := wire.CheckVersion(kind, c.c.Version()); err != nil {
		return nil, err
	}
	c.mu.Lock()
	snap, ok := c.cache[deviceIndex]
	c.mu.Unlock()
	if ok {
		return snap, nil
	}
	if err := c.checkIndex(ctx, op, deviceIndex); err != nil {
		return nil, err
	}
	return c.fetch(ctx, deviceIndex)
}

func (c *rgbClient) checkIndex(ctx context.Context, op string, deviceIndex uint32) error {
	c.mu.Lock()
	count := c.count
	c.mu.Unlock()

	n := uint32(0)
	if count != nil {
		n = *count
	} else {
		var err error
		if n, err = c.ControllerCount(ctx); err != nil {
			return err
		}
	}
	if deviceIndex >= n {
		return invalid(op, deviceIndex, "device index out of range, server has %d controllers", n)
	}
	return nil
}

func (c *rgbClient) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// forget drops one controller after a command that changes its layout.
func (c *rgbClient) forget(deviceIndex uint32) {
	c.mu.Lock()
	delete(c.cache, deviceIndex)
	c.mu.Unlock()
}

func (c *rgbClient) invalidate() {
	c.mu.Lock()
	c.gen++
	c.count = nil
	c.cache = map[uint32]*device.Controller{}
	c.mu.Unlock()
}

func zoneOf(op string, deviceIndex uint32, snap *device.Controller, zone uint32) (*device.Zone, error) {
	z := snap.Zone(int(zone))
	if z == nil {
		return nil, invalid(op, deviceIndex, "zone %d out of range, controller has %d", zone, len(snap.Zones))
	}
	return z, nil
}
