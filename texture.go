package dem

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"
)

// AppendBinary appends d's elevations to b as little-endian IEEE 754 float32
// values in row-major order, the layout of a single-channel 32-bit float
// texture.
func (d *NormalizedDEM) AppendBinary(b []byte) ([]byte, error) {
	b = slices.Grow(b, 4*len(d.Elevations))
	for _, elevation := range d.Elevations {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(elevation))
	}
	return b, nil
}

// WriteTo writes d's texture payload to w.
func (d *NormalizedDEM) WriteTo(w io.Writer) (int64, error) {
	b, _ := d.AppendBinary(make([]byte, 0, 4*len(d.Elevations)))
	n, err := w.Write(b)
	return int64(n), err
}

// DecodeTexture decodes a texture payload written by WriteTo.
func DecodeTexture(b []byte) (*NormalizedDEM, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: payload not a multiple of 4 bytes: %d", ErrShapeMismatch, len(b))
	}
	n := len(b) / 4
	size := int(math.Round(math.Sqrt(float64(n))))
	if size*size != n {
		return nil, fmt.Errorf("%w: %d samples is not a square", ErrShapeMismatch, n)
	}
	if size == 0 {
		return nil, ErrEmptyGrid
	}
	elevations := make([]float32, n)
	for i := range elevations {
		elevations[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return &NormalizedDEM{
		Elevations: elevations,
		Size:       size,
	}, nil
}
