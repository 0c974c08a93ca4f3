// Package frame packs a telemetry sample into the fixed 13-byte record sent
// over the narrow link and renders it for line-oriented output.
//
// Layout (all multi-byte fields little-endian):
//
//	Seq(1) | TempX100 int16(2) | HumidityX10 uint16(2) | LatE5 int32(4) | LonE5 int32(4)
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	seqOffset      = 0
	tempOffset     = 1
	humidityOffset = 3
	latOffset      = 5
	lonOffset      = 9

	// Size is the length of every encoded frame.
	Size = 13
)

var ErrFrameLength = errors.New("frame: invalid length")

// Position is a latitude/longitude pair in degrees scaled by 1e5.
type Position struct {
	LatE5 int32 `json:"lat_e5"`
	LonE5 int32 `json:"lon_e5"`
}

// Frame is one encoded sample. It is a value so each cycle owns its own copy.
type Frame [Size]byte

// Fields is the decoded view of a Frame.
type Fields struct {
	Seq         uint8
	TempX100    int16
	HumidityX10 uint16
	Position    Position
}

// Build writes every field at its fixed offset.
func Build(seq uint8, tempX100 int16, humidityX10 uint16, pos Position) Frame {
	var f Frame
	f[seqOffset] = seq
	binary.LittleEndian.PutUint16(f[tempOffset:humidityOffset], uint16(tempX100))
	binary.LittleEndian.PutUint16(f[humidityOffset:latOffset], humidityX10)
	binary.LittleEndian.PutUint32(f[latOffset:lonOffset], uint32(pos.LatE5))
	binary.LittleEndian.PutUint32(f[lonOffset:Size], uint32(pos.LonE5))
	return f
}

// Decode parses a 13-byte record. Any other length is rejected.
func Decode(b []byte) (Fields, error) {
	if len(b) != Size {
		return Fields{}, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameLength, len(b), Size)
	}
	return Fields{
		Seq:         b[seqOffset],
		TempX100:    int16(binary.LittleEndian.Uint16(b[tempOffset:humidityOffset])),
		HumidityX10: binary.LittleEndian.Uint16(b[humidityOffset:latOffset]),
		Position: Position{
			LatE5: int32(binary.LittleEndian.Uint32(b[latOffset:lonOffset])),
			LonE5: int32(binary.LittleEndian.Uint32(b[lonOffset:Size])),
		},
	}, nil
}

// Fields decodes the frame. It cannot fail because the length is fixed.
func (f Frame) Fields() Fields {
	out, _ := Decode(f[:])
	return out
}

// Hex renders the frame as 26 uppercase hex characters.
func (f Frame) Hex() string { return Render(f[:]) }

func (f Frame) String() string { return f.Hex() }
