package protocol

import (
	"encoding/binary"
	"errors"
)

// Binary frame header constants. Every outbound frame carries a CHW uint8
// tensor, so the first three bytes are fixed.
const (
	HeaderSize = 16

	TypeTensor uint8 = 10
	DTypeU8    uint8 = 1
	LayoutCHW  uint8 = 1
)

// ErrTruncatedHeader is returned when a header buffer is shorter than
// HeaderSize bytes.
var ErrTruncatedHeader = errors.New("protocol: truncated frame header")

// FrameHeader is the fixed 16-byte preamble of a binary frame. Height and
// Width describe the logical per-channel plane, not the packed buffer.
type FrameHeader struct {
	MsgType  uint8
	DType    uint8
	Layout   uint8
	Reserved uint8
	Height   uint16
	Width    uint16
	Sequence uint32
	Tick     uint32
}

// EncodeHeader writes a tensor frame header into buf, which must hold at
// least HeaderSize bytes. All multi-byte fields are little-endian.
func EncodeHeader(buf []byte, height, width int, sequence, tick uint32) {
	_ = buf[HeaderSize-1]
	buf[0] = TypeTensor
	buf[1] = DTypeU8
	buf[2] = LayoutCHW
	buf[3] = 0
	binary.LittleEndian.PutUint16(buf[4:6], uint16(height))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(width))
	binary.LittleEndian.PutUint32(buf[8:12], sequence)
	binary.LittleEndian.PutUint32(buf[12:16], tick)
}

// DecodeHeader parses the first HeaderSize bytes of data. No validation
// beyond the length check: a header is well-formed iff it is long enough.
func DecodeHeader(data []byte) (FrameHeader, error) {
	if len(data) < HeaderSize {
		return FrameHeader{}, ErrTruncatedHeader
	}
	return FrameHeader{
		MsgType:  data[0],
		DType:    data[1],
		Layout:   data[2],
		Reserved: data[3],
		Height:   binary.LittleEndian.Uint16(data[4:6]),
		Width:    binary.LittleEndian.Uint16(data[6:8]),
		Sequence: binary.LittleEndian.Uint32(data[8:12]),
		Tick:     binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}
