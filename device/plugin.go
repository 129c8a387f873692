package device

import (
	"github.com/ngerakines/rgbops/wire"
)

// Plugin describes a server-side plugin. Plugin lists exist from protocol 4.
type Plugin struct {
	Name            string
	Description     string
	Version         string
	Index           uint32
	ProtocolVersion int32
}

// three strings + index + protocol version
const pluginMinSize = 3*2 + 4 + 4

// EncodePlugins encodes a plugin list reply: data_size, count, entries.
func EncodePlugins(plugins []Plugin) ([]byte, error) {
	w := wire.NewWriter()
	w.WriteUint32(0)
	w.WriteCount(len(plugins))
	for _, p := range plugins {
		w.WriteString(p.Name)
		w.WriteString(p.Description)
		w.WriteString(p.Version)
		w.WriteUint32(p.Index)
		w.WriteInt32(p.ProtocolVersion)
	}
	w.PatchUint32(0, uint32(w.Len()))
	return w.Bytes(), w.Err()
}

// DecodePlugins decodes a plugin list reply.
func DecodePlugins(b []byte) ([]Plugin, error) {
	r, err := sizedReader(b, "plugins")
	if err != nil {
		return nil, err
	}
	n := r.ReadCount(pluginMinSize)
	var out []Plugin
	for i := 0; i < n && r.Err() == nil; i++ {
		out = append(out, Plugin{
			Name:            r.ReadString(),
			Description:     r.ReadString(),
			Version:         r.ReadString(),
			Index:           r.ReadUint32(),
			ProtocolVersion: r.ReadInt32(),
		})
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeProfiles encodes a profile list reply: data_size, count, names.
func EncodeProfiles(names []string) ([]byte, error) {
	w := wire.NewWriter()
	w.WriteUint32(0)
	w.WriteStrings(names)
	w.PatchUint32(0, uint32(w.Len()))
	return w.Bytes(), w.Err()
}

// DecodeProfiles decodes a profile list reply.
func DecodeProfiles(b []byte) ([]string, error) {
	r, err := sizedReader(b, "profiles")
	if err != nil {
		return nil, err
	}
	names := r.ReadStrings()
	if err := r.Done(); err != nil {
		return nil, err
	}
	return names, nil
}

// sizedReader reads the leading data_size of a block and returns a Reader
// bounded to it, positioned after the size field.
func sizedReader(b []byte, op string) (*wire.Reader, error) {
	r := wire.NewReader(b)
	size := r.ReadUint32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if size < 4 || uint64(size) > uint64(len(b)) {
		return nil, wire.Errorf(op, wire.ErrTruncated, "data size %d, payload %d bytes", size, len(b))
	}
	if int(size) != len(b) {
		return nil, wire.Errorf(op, wire.ErrInvalidEncoding, "data size %d, payload %d bytes", size, len(b))
	}
	return wire.NewReader(b[4:size]), nil
}
