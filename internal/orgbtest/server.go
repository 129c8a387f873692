// Package orgbtest provides an in-memory OpenRGB server for tests. It keeps
// a list of controllers, answers requests from it and applies commands to
// it, so a client can write colors and read them back.
package orgbtest

import (
	"fmt"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ngerakines/rgbops/device"
	"github.com/ngerakines/rgbops/wire"
)

// Packet is one message received from a client.
type Packet struct {
	Header  wire.Header
	Payload []byte
}

// Server is a conformant OpenRGB peer. The zero value is not usable; use
// NewServer.
type Server struct {
	// OnPacket, when set, runs after a packet is applied and before its
	// reply is written. Tests use it to interleave notifications.
	OnPacket func(p Packet)

	mu          sync.Mutex
	version     uint32
	controllers []*device.Controller
	profiles    []string
	loaded      string
	plugins     []device.Plugin
	clientName  string
	packets     []Packet
	peers       map[*peer]struct{}
}

type peer struct {
	rwc     io.ReadWriteCloser
	version uint32
	mu      sync.Mutex
}

func (p *peer) write(deviceIndex uint32, kind wire.Kind, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.rwc.Write(wire.Packet(deviceIndex, kind, payload))
	return err
}

// NewServer returns a server reporting protocol version and holding copies
// of controllers.
func NewServer(version uint32, controllers ...*device.Controller) *Server {
	s := &Server{
		version: version,
		peers:   map[*peer]struct{}{},
	}
	s.SetControllers(controllers...)
	return s
}

// SetControllers replaces the device list. It does not notify clients.
func (s *Server) SetControllers(controllers ...*device.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controllers = nil
	for i, c := range controllers {
		cc := clone(c)
		cc.Index = uint32(i)
		s.controllers = append(s.controllers, cc)
	}
}

func (s *Server) SetProfiles(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append([]string(nil), names...)
}

func (s *Server) SetPlugins(plugins ...device.Plugin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plugins = append([]device.Plugin(nil), plugins...)
}

// Controller returns a copy of controller i as the server currently holds it.
func (s *Server) Controller(i int) *device.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.controllers) {
		return nil
	}
	return clone(s.controllers[i])
}

func (s *Server) Profiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.profiles...)
}

// LoadedProfile is the last profile a client asked to load.
func (s *Server) LoadedProfile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Server) ClientName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientName
}

// Packets returns every packet received so far, in order.
func (s *Server) Packets() []Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Packet(nil), s.packets...)
}

// Kinds returns the kinds of every packet received so far.
func (s *Server) Kinds() []wire.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]wire.Kind, 0, len(s.packets))
	for _, p := range s.packets {
		kinds = append(kinds, p.Header.Kind)
	}
	return kinds
}

// Pipe serves one end of an in-memory connection and returns the other.
func (s *Server) Pipe() net.Conn {
	client, server := net.Pipe()
	go s.Serve(server)
	return client
}

// Start listens on a loopback port for the duration of the test and
// returns the address.
func (s *Server) Start(t testing.TB) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go s.Serve(nc)
		}
	}()
	return ln.Addr().String()
}

// NotifyDeviceListUpdated pushes a DeviceListUpdated to every connected
// client.
func (s *Server) NotifyDeviceListUpdated() {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		if err := p.write(0, wire.DeviceListUpdated, nil); err != nil {
			log.WithError(err).Debug("orgbtest: notify failed")
		}
	}
}

// Serve handles one client until it disconnects or sends something the
// server cannot parse.
func (s *Server) Serve(rwc io.ReadWriteCloser) error {
	p := &peer{rwc: rwc}
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
		rwc.Close()
	}()

	for {
		h, err := wire.ReadHeader(rwc)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		payload := make([]byte, h.Length)
		if _, err := io.ReadFull(rwc, payload); err != nil {
			return err
		}
		pkt := Packet{Header: h, Payload: payload}

		reply, err := s.handle(p, pkt)
		if err != nil {
			log.WithError(err).WithField("kind", h.Kind).Warn("orgbtest: rejecting packet")
			return err
		}
		if s.OnPacket != nil {
			s.OnPacket(pkt)
		}
		if reply != nil {
			if err := p.write(h.DeviceIndex, h.Kind, reply); err != nil {
				return err
			}
		}
	}
}

// handle applies one packet and returns the reply payload, or nil when the
// kind has no reply or the server declines to answer.
func (s *Server) handle(p *peer, pkt Packet) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets = append(s.packets, pkt)

	h := pkt.Header
	switch h.Kind {
	case wire.RequestProtocolVersion:
		v, err := wire.Uint32Payload(pkt.Payload)
		if err != nil {
			return nil, err
		}
		p.version = min(v, s.version)
		return device.EncodeUint32(s.version), nil

	case wire.SetClientName:
		name, err := device.DecodeName(pkt.Payload)
		if err != nil {
			return nil, err
		}
		s.clientName = name
		return nil, nil

	case wire.RequestControllerCount:
		return device.EncodeUint32(uint32(len(s.controllers))), nil

	case wire.RequestControllerData:
		version := uint32(0)
		if len(pkt.Payload) == 4 {
			v, _ := wire.Uint32Payload(pkt.Payload)
			version = min(v, s.version)
		}
		c := s.controller(h.DeviceIndex)
		if c == nil {
			// OpenRGB stays silent for unknown devices.
			return nil, nil
		}
		return device.EncodeController(c, version)

	case wire.RequestProfileList:
		return device.EncodeProfiles(s.profiles)

	case wire.RequestSaveProfile, wire.RequestLoadProfile, wire.RequestDeleteProfile:
		name, err := device.DecodeName(pkt.Payload)
		if err != nil {
			return nil, err
		}
		s.profile(h.Kind, name)
		return nil, nil

	case wire.RequestPluginList:
		return device.EncodePlugins(s.plugins)
	}

	c := s.controller(h.DeviceIndex)
	if c == nil {
		return nil, nil
	}
	return nil, s.apply(c, p.version, pkt)
}

func (s *Server) controller(i uint32) *device.Controller {
	if int(i) >= len(s.controllers) {
		return nil
	}
	return s.controllers[i]
}

func (s *Server) profile(kind wire.Kind, name string) {
	idx := -1
	for i, p := range s.profiles {
		if p == name {
			idx = i
		}
	}
	switch kind {
	case wire.RequestSaveProfile:
		if idx < 0 {
			s.profiles = append(s.profiles, name)
		}
	case wire.RequestLoadProfile:
		if idx >= 0 {
			s.loaded = name
		}
	case wire.RequestDeleteProfile:
		if idx >= 0 {
			s.profiles = append(s.profiles[:idx], s.profiles[idx+1:]...)
		}
	}
}

func (s *Server) apply(c *device.Controller, version uint32, pkt Packet) error {
	switch pkt.Header.Kind {
	case wire.UpdateLEDs:
		colors, err := device.DecodeUpdateLEDs(pkt.Payload)
		if err != nil {
			return err
		}
		copy(c.Colors, colors)

	case wire.UpdateZoneLEDs:
		zone, colors, err := device.DecodeUpdateZoneLEDs(pkt.Payload)
		if err != nil {
			return err
		}
		copy(c.ZoneColors(int(zone)), colors)

	case wire.UpdateSingleLED:
		led, color, err := device.DecodeUpdateSingleLED(pkt.Payload)
		if err != nil {
			return err
		}
		if led >= 0 && int(led) < len(c.Colors) {
			c.Colors[led] = color
		}

	case wire.ResizeZone:
		zone, size, err := device.DecodeResizeZone(pkt.Payload)
		if err != nil {
			return err
		}
		if z := c.Zone(int(zone)); z != nil && size >= 0 && uint32(size) >= z.LEDsMin && uint32(size) <= z.LEDsMax {
			resizeZone(c, int(zone), uint32(size))
		}

	case wire.SetCustomMode:
		if m := c.FindMode("direct", "custom", "static"); m != nil {
			c.ActiveMode = int32(m.Index)
		}

	case wire.UpdateMode, wire.SaveMode:
		idx, m, err := device.DecodeUpdateMode(pkt.Payload, version)
		if err != nil {
			return err
		}
		if idx >= 0 && int(idx) < len(c.Modes) {
			c.Modes[idx] = m
			c.ActiveMode = idx
		}

	case wire.ClearSegments:
		zone, err := wire.Uint32Payload(pkt.Payload)
		if err != nil {
			return err
		}
		if z := c.Zone(int(zone)); z != nil {
			z.Segments = nil
		}

	case wire.AddSegment:
		zone, seg, err := device.DecodeAddSegment(pkt.Payload)
		if err != nil {
			return err
		}
		if z := c.Zone(int(zone)); z != nil {
			seg.Index = len(z.Segments)
			z.Segments = append(z.Segments, seg)
		}

	default:
		return wire.Errorf("orgbtest", wire.ErrUnsupportedKind, "kind %v", pkt.Header.Kind)
	}
	return nil
}

func resizeZone(c *device.Controller, zi int, size uint32) {
	z := c.Zones[zi]
	off, _ := c.ZoneOffset(zi)
	old := int(z.LEDCount)

	leds := append([]device.LED(nil), c.LEDs[:off]...)
	for i := 0; i < int(size); i++ {
		if i < old {
			leds = append(leds, c.LEDs[off+i])
		} else {
			leds = append(leds, device.LED{Name: fmt.Sprintf("%s LED %d", z.Name, i+1)})
		}
	}
	leds = append(leds, c.LEDs[off+old:]...)

	if len(c.Colors) == len(c.LEDs) {
		colors := append([]device.Color(nil), c.Colors[:off]...)
		for i := 0; i < int(size); i++ {
			if i < old {
				colors = append(colors, c.Colors[off+i])
			} else {
				colors = append(colors, device.Color{})
			}
		}
		c.Colors = append(colors, c.Colors[off+old:]...)
	}
	c.LEDs = leds
	z.LEDCount = size
}

func clone(c *device.Controller) *device.Controller {
	b, err := device.EncodeController(c, wire.ProtocolVersion)
	if err != nil {
		panic(fmt.Sprintf("orgbtest: encode %q: %v", c.Name, err))
	}
	cc, err := device.DecodeController(b, wire.ProtocolVersion)
	if err != nil {
		panic(fmt.Sprintf("orgbtest: %q: %v", c.Name, err))
	}
	cc.Index = c.Index
	return cc
}
