package packer

import (
	"math"

	"yolo-bridge-go/internal/protocol"
	"yolo-bridge-go/internal/types"
)

// Packer converts source image buffers into wire frames: a 16-byte header
// followed by a CHW uint8 payload of three contiguous planes [R...][G...][B...].
//
// A single scratch buffer is reused across calls. The slice returned by Pack
// aliases that buffer and is only valid until the next Pack call; callers
// that need the bytes later must copy them first.
type Packer struct {
	planeH int
	planeW int
	frame  []byte
}

// New preallocates a packer for logical plane dimensions h x w. Source
// frames whose plane size does not match this capacity are skipped rather
// than resized.
func New(h, w int) *Packer {
	return &Packer{
		planeH: h,
		planeW: w,
		frame:  make([]byte, protocol.HeaderSize+3*h*w),
	}
}

// PlaneSize returns the preallocated logical plane dimensions.
func (p *Packer) PlaneSize() (h, w int) {
	return p.planeH, p.planeW
}

// Pack builds a wire frame from src. Two source layouts are supported:
//
//   - Planar mono: width is a multiple of 3 and width/3 is the logical plane
//     width. Only channel 0 is read; the mono row is sliced into three
//     equal-width column ranges which become the R, G and B planes.
//   - Interleaved RGB fallback: source dimensions equal the preallocated
//     plane exactly. Channels beyond the third are dropped; with fewer than
//     three channels every plane reads channel 0.
//
// The second return is false when the frame must be skipped (shape mismatch
// with the preallocated capacity, or a malformed source buffer). Skips are
// not errors; they drop the current tick's work to keep the hot path free
// of reallocation.
func (p *Packer) Pack(src types.SourceFrame, sequence, tick uint32) ([]byte, bool) {
	if !src.Valid() {
		return nil, false
	}

	if src.Width%3 == 0 {
		return p.packPlanarMono(src, sequence, tick)
	}
	return p.packInterleaved(src, sequence, tick)
}

func (p *Packer) packPlanarMono(src types.SourceFrame, sequence, tick uint32) ([]byte, bool) {
	h := src.Height
	w := src.Width / 3
	if h*w != p.planeH*p.planeW {
		return nil, false
	}

	payload := p.frame[protocol.HeaderSize:]
	plane := h * w
	stride := src.Width * src.Channels

	for row := 0; row < h; row++ {
		rowBase := row * stride
		out := row * w
		for col := 0; col < w; col++ {
			// Channel 0 of the mono source, one sample per output pixel.
			payload[out+col] = p.sample(src, rowBase+col*src.Channels)
			payload[plane+out+col] = p.sample(src, rowBase+(w+col)*src.Channels)
			payload[2*plane+out+col] = p.sample(src, rowBase+(2*w+col)*src.Channels)
		}
	}

	protocol.EncodeHeader(p.frame, h, w, sequence, tick)
	return p.frame, true
}

func (p *Packer) packInterleaved(src types.SourceFrame, sequence, tick uint32) ([]byte, bool) {
	if src.Height != p.planeH || src.Width != p.planeW {
		return nil, false
	}

	h, w, c := src.Height, src.Width, src.Channels
	payload := p.frame[protocol.HeaderSize:]
	plane := h * w

	for ch := 0; ch < 3; ch++ {
		srcCh := ch
		if c < 3 {
			srcCh = 0
		}
		out := payload[ch*plane : (ch+1)*plane]
		for i := 0; i < plane; i++ {
			out[i] = p.sample(src, i*c+srcCh)
		}
	}

	protocol.EncodeHeader(p.frame, h, w, sequence, tick)
	return p.frame, true
}

func (p *Packer) sample(src types.SourceFrame, idx int) uint8 {
	if src.Float != nil {
		return quantize(src.Float[idx])
	}
	return src.Bytes[idx]
}

// quantize maps a nominally [0,1] float sample to uint8 the way a UNORM8
// shader store would: floor(x*255 + 0.5), clamped.
func quantize(x float32) uint8 {
	v := math.Floor(float64(x)*255 + 0.5)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
