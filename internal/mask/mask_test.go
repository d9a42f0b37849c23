package mask

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(width, height uint32, values []float32) []byte {
	buf := make([]byte, 8+4*len(values))
	binary.LittleEndian.PutUint32(buf[0:4], width)
	binary.LittleEndian.PutUint32(buf[4:8], height)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[8+i*4:], math.Float32bits(v))
	}
	return buf
}

func TestDecode(t *testing.T) {
	payload := encode(2, 2, []float32{0.1, 0.2, 0.3, 0.4})

	result, ok := Decode(payload)
	require.True(t, ok)
	assert.Equal(t, uint32(2), result.Width)
	assert.Equal(t, uint32(2), result.Height)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, result.Data)
}

func TestDecodeRejectsRaggedPayload(t *testing.T) {
	payload := encode(2, 2, []float32{0.1, 0.2, 0.3, 0.4})
	payload = append(payload, 0xFF) // no longer a whole number of floats

	_, ok := Decode(payload)
	assert.False(t, ok)
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	for _, n := range []int{0, 4, 7} {
		_, ok := Decode(make([]byte, n))
		assert.False(t, ok, "length %d", n)
	}
}

func TestDecodeRejectsDimensionMismatch(t *testing.T) {
	// 3 floats for a declared 2x2 image.
	payload := encode(2, 2, []float32{0.1, 0.2, 0.3})
	_, ok := Decode(payload)
	assert.False(t, ok)
}

func TestDecodeZeroArea(t *testing.T) {
	result, ok := Decode(encode(0, 0, nil))
	require.True(t, ok)
	assert.Empty(t, result.Data)
}
