package mask

import (
	"encoding/binary"
	"math"

	"yolo-bridge-go/internal/types"
)

// headerSize is the u32 width + u32 height preamble of a result payload.
const headerSize = 8

// Decode reconstructs a single-channel float image from a consumer's binary
// reply: width u32 LE, height u32 LE, then width*height float32 LE values
// in row-major order.
//
// Malformed payloads are skipped, not errors: too short, a payload that is
// not a whole number of floats, or a float count that does not match the
// declared dimensions.
func Decode(data []byte) (types.SegmentationResult, bool) {
	if len(data) < headerSize {
		return types.SegmentationResult{}, false
	}
	width := binary.LittleEndian.Uint32(data[0:4])
	height := binary.LittleEndian.Uint32(data[4:8])
	payload := data[headerSize:]

	if len(payload)%4 != 0 {
		return types.SegmentationResult{}, false
	}
	count := len(payload) / 4
	if uint64(count) != uint64(width)*uint64(height) {
		return types.SegmentationResult{}, false
	}

	values := make([]float32, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(payload[i*4 : i*4+4])
		values[i] = math.Float32frombits(bits)
	}

	return types.SegmentationResult{
		Width:  width,
		Height: height,
		Data:   values,
	}, true
}
