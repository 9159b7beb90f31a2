package dataset

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"path"

	"gonum.org/v1/gonum/spatial/r3"
)

// pointStride is the size of one sweep record: x, y, z, intensity float32.
const pointStride = 16

// LoadPointCloud reads data/{seq}/lidar_roof/{frame}.bin and returns the
// XYZ coordinates. Intensity is discarded.
func LoadPointCloud(fsys fs.FS, seq, frame string) ([]r3.Vec, error) {
	p := path.Join("data", seq, "lidar_roof", frame+".bin")
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return DecodePoints(data)
}

// DecodePoints decodes little-endian float32 x, y, z, intensity records.
func DecodePoints(data []byte) ([]r3.Vec, error) {
	if len(data)%pointStride != 0 {
		return nil, fmt.Errorf("point data length %d is not a multiple of %d", len(data), pointStride)
	}
	out := make([]r3.Vec, len(data)/pointStride)
	for i := range out {
		rec := data[i*pointStride:]
		out[i] = r3.Vec{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[0:]))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[8:]))),
		}
	}
	return out, nil
}

// EncodePoints is the inverse of DecodePoints with zero intensity.
func EncodePoints(points []r3.Vec) []byte {
	out := make([]byte, len(points)*pointStride)
	for i, p := range points {
		rec := out[i*pointStride:]
		binary.LittleEndian.PutUint32(rec[0:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(rec[8:], math.Float32bits(float32(p.Z)))
	}
	return out
}
