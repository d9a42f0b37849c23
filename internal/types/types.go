package types

// SourceFrame is one image buffer handed to the outbound path by a frame
// source. Shape is (Height, Width, Channels) with interleaved channels and
// row-major rows. Exactly one of Float or Bytes holds the samples: Float
// carries float32 values nominally in [0,1], Bytes carries uint8 values.
type SourceFrame struct {
	Height   int
	Width    int
	Channels int
	Float    []float32
	Bytes    []byte
}

// Samples returns the number of samples the shape implies.
func (f SourceFrame) Samples() int {
	return f.Height * f.Width * f.Channels
}

// Valid reports whether the buffer length matches the declared shape.
func (f SourceFrame) Valid() bool {
	if f.Height < 1 || f.Width < 1 || f.Channels < 1 {
		return false
	}
	n := f.Samples()
	if f.Float != nil {
		return f.Bytes == nil && len(f.Float) == n
	}
	return len(f.Bytes) == n
}

// SegmentationResult is a single-channel float image decoded from a
// consumer's binary reply. Data is row-major, Height*Width values.
type SegmentationResult struct {
	Width  uint32
	Height uint32
	Data   []float32
}
