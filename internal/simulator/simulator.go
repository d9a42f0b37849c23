package simulator

import (
	"context"
	"math"
	"time"

	"yolo-bridge-go/internal/types"
)

// Stream generates synthetic source frames for runs without a producer.
// Frames alternate between the two supported source layouts so both packer
// paths stay exercised: even frames are interleaved RGB uint8, odd frames
// are planar-mono float32 of shape (h, 3w, 1).
func Stream(ctx context.Context, h, w int, frameRate float64) <-chan types.SourceFrame {
	if frameRate <= 0 {
		frameRate = 30
	}
	out := make(chan types.SourceFrame)
	go func() {
		defer close(out)

		interval := time.Duration(float64(time.Second) / frameRate)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		n := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var frame types.SourceFrame
				if n%2 == 0 {
					frame = interleavedFrame(h, w, n)
				} else {
					frame = planarFrame(h, w, n)
				}
				select {
				case <-ctx.Done():
					return
				case out <- frame:
				}
				n++
			}
		}
	}()
	return out
}

// interleavedFrame is a drifting RGB gradient.
func interleavedFrame(h, w, n int) types.SourceFrame {
	buf := make([]byte, h*w*3)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := (row*w + col) * 3
			buf[i] = byte((col + n) * 255 / max(w, 1))
			buf[i+1] = byte((row + n) * 255 / max(h, 1))
			buf[i+2] = byte(n)
		}
	}
	return types.SourceFrame{Height: h, Width: w, Channels: 3, Bytes: buf}
}

// planarFrame lays three sine-shaded channel images side by side along the
// width axis, the way the producer's compute shader emits them.
func planarFrame(h, w, n int) types.SourceFrame {
	buf := make([]float32, h*3*w)
	phase := float64(n) / 30
	for row := 0; row < h; row++ {
		for plane := 0; plane < 3; plane++ {
			for col := 0; col < w; col++ {
				v := 0.5 + 0.5*math.Sin(phase+float64(plane)+float64(col)/float64(max(w, 1)))
				buf[row*3*w+plane*w+col] = float32(v)
			}
		}
	}
	return types.SourceFrame{Height: h, Width: 3 * w, Channels: 1, Float: buf}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
