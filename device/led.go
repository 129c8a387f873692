package device

import (
	"github.com/ngerakines/rgbops/wire"
)

// LED is a single addressable light. Value is opaque to clients.
type LED struct {
	Name  string
	Value uint32
}

func writeLED(w *wire.Writer, l LED) {
	w.WriteString(l.Name)
	w.WriteUint32(l.Value)
}

func readLED(r *wire.Reader) LED {
	return LED{Name: r.ReadString(), Value: r.ReadUint32()}
}

func EncodeLED(l LED) ([]byte, error) {
	w := wire.NewWriter()
	writeLED(w, l)
	return w.Bytes(), w.Err()
}

func DecodeLED(b []byte) (LED, error) {
	r := wire.NewReader(b)
	l := readLED(r)
	if err := r.Done(); err != nil {
		return LED{}, err
	}
	return l, nil
}
