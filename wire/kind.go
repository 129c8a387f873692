package wire

import "fmt"

// Kind is the packet id carried in every header.
type Kind uint32

const (
	RequestControllerCount Kind = 0
	RequestControllerData  Kind = 1
	RequestProtocolVersion Kind = 40
	SetClientName          Kind = 50
	DeviceListUpdated      Kind = 100
	RequestProfileList     Kind = 150
	RequestSaveProfile     Kind = 151
	RequestLoadProfile     Kind = 152
	RequestDeleteProfile   Kind = 153
	RequestPluginList      Kind = 200
	ResizeZone             Kind = 1000
	ClearSegments          Kind = 1001
	AddSegment             Kind = 1002
	UpdateLEDs             Kind = 1050
	UpdateZoneLEDs         Kind = 1051
	UpdateSingleLED        Kind = 1052
	SetCustomMode          Kind = 1100
	UpdateMode             Kind = 1101
	SaveMode               Kind = 1102
)

// Direction tells which peer may originate a kind.
type Direction uint8

const (
	ClientToServer Direction = iota
	ServerToClient
	RequestReply
)

func (d Direction) String() string {
	switch d {
	case ClientToServer:
		return "client->server"
	case ServerToClient:
		return "server->client"
	case RequestReply:
		return "request/reply"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

type kindInfo struct {
	name       string
	direction  Direction
	minVersion uint32
}

var kinds = map[Kind]kindInfo{
	RequestControllerCount: {"RequestControllerCount", RequestReply, 0},
	RequestControllerData:  {"RequestControllerData", RequestReply, 0},
	RequestProtocolVersion: {"RequestProtocolVersion", RequestReply, 0},
	SetClientName:          {"SetClientName", ClientToServer, 0},
	DeviceListUpdated:      {"DeviceListUpdated", ServerToClient, 0},
	RequestProfileList:     {"RequestProfileList", RequestReply, 2},
	RequestSaveProfile:     {"RequestSaveProfile", ClientToServer, 2},
	RequestLoadProfile:     {"RequestLoadProfile", ClientToServer, 2},
	RequestDeleteProfile:   {"RequestDeleteProfile", ClientToServer, 2},
	RequestPluginList:      {"RequestPluginList", RequestReply, 4},
	ResizeZone:             {"ResizeZone", ClientToServer, 0},
	ClearSegments:          {"ClearSegments", ClientToServer, 5},
	AddSegment:             {"AddSegment", ClientToServer, 5},
	UpdateLEDs:             {"UpdateLEDs", ClientToServer, 0},
	UpdateZoneLEDs:         {"UpdateZoneLEDs", ClientToServer, 0},
	UpdateSingleLED:        {"UpdateSingleLED", ClientToServer, 0},
	SetCustomMode:          {"SetCustomMode", ClientToServer, 0},
	UpdateMode:             {"UpdateMode", ClientToServer, 0},
	SaveMode:               {"SaveMode", ClientToServer, 3},
}

// Known reports whether k is part of the protocol.
func (k Kind) Known() bool {
	_, ok := kinds[k]
	return ok
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Unknown(%d)", uint32(k))
}

// Direction returns the direction of k. Unknown kinds report ServerToClient
// since only the server can produce them.
func (k Kind) Direction() Direction {
	if info, ok := kinds[k]; ok {
		return info.direction
	}
	return ServerToClient
}

// MinVersion is the lowest protocol version that may carry k.
func (k Kind) MinVersion() uint32 {
	return kinds[k].minVersion
}

// HasReply reports whether the server answers k.
func (k Kind) HasReply() bool {
	return k.Direction() == RequestReply
}

// IsNotification reports whether k is pushed by the server unprompted.
func (k Kind) IsNotification() bool {
	info, ok := kinds[k]
	return ok && info.direction == ServerToClient
}

// CheckVersion returns an ErrUnsupportedKind ProtocolError when k may not be
// used on a session negotiated at version.
func CheckVersion(k Kind, version uint32) error {
	info, ok := kinds[k]
	if !ok {
		return &ProtocolError{Op: k.String(), Err: ErrUnsupportedKind}
	}
	if version < info.minVersion {
		return Errorf(info.name, ErrUnsupportedKind, "requires protocol %d, session uses %d", info.minVersion, version)
	}
	return nil
}
