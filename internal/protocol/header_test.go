package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderSize)
	EncodeHeader(buf, 640, 640, 123456789, 4242)

	h, err := DecodeHeader(buf)
	require.NoError(t, err)

	assert.Equal(t, TypeTensor, h.MsgType)
	assert.Equal(t, DTypeU8, h.DType)
	assert.Equal(t, LayoutCHW, h.Layout)
	assert.Equal(t, uint8(0), h.Reserved)
	assert.Equal(t, uint16(640), h.Height)
	assert.Equal(t, uint16(640), h.Width)
	assert.Equal(t, uint32(123456789), h.Sequence)
	assert.Equal(t, uint32(4242), h.Tick)
}

func TestHeaderLittleEndianLayout(t *testing.T) {
	buf := make([]byte, HeaderSize)
	EncodeHeader(buf, 0x0102, 0x0304, 0x05060708, 0x090A0B0C)

	expected := []byte{
		TypeTensor, DTypeU8, LayoutCHW, 0,
		0x02, 0x01,
		0x04, 0x03,
		0x08, 0x07, 0x06, 0x05,
		0x0C, 0x0B, 0x0A, 0x09,
	}
	assert.Equal(t, expected, buf)
}

func TestDecodeHeaderTruncated(t *testing.T) {
	for _, n := range []int{0, 1, 8, HeaderSize - 1} {
		_, err := DecodeHeader(make([]byte, n))
		assert.ErrorIs(t, err, ErrTruncatedHeader, "length %d", n)
	}
}

func TestDecodeHeaderIgnoresTrailingPayload(t *testing.T) {
	buf := make([]byte, HeaderSize+64)
	EncodeHeader(buf, 2, 3, 1, 1)

	h, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), h.Height)
	assert.Equal(t, uint16(3), h.Width)
}
