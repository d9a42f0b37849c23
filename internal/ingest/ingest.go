package ingest

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"yolo-bridge-go/internal/types"
)

// RawRecorder receives every raw message before decoding, for offline replay.
type RawRecorder interface {
	Record(payload []byte) error
}

var decodeFailures atomic.Uint64

// DecodeFailures returns the number of messages dropped by the decoder
// since startup.
func DecodeFailures() uint64 {
	return decodeFailures.Load()
}

// Stream returns a channel of source frames from the producing application.
// Expects CBOR messages shaped like:
//
//	{ "type": "frame", "height": <int>, "width": <int>, "channels": <int>,
//	  "dtype": "uint8"|"float32", "data": <bytes> }
//
// float32 data is little-endian. Messages of any other type, and frames
// whose byte length does not match the declared shape, are dropped.
func Stream(ctx context.Context, endpoint string) (<-chan types.SourceFrame, error) {
	return StreamWithOptions(ctx, endpoint, 1, nil)
}

func StreamWithOptions(ctx context.Context, endpoint string, logEvery int, recorder RawRecorder) (<-chan types.SourceFrame, error) {
	if logEvery < 1 {
		logEvery = 1
	}
	socket, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}

	out := make(chan types.SourceFrame, 8)
	go func() {
		defer close(out)
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := socket.RecvBytes(0)
			if err != nil {
				logEveryN(logEvery, "ingest recv error: %v", err)
				continue
			}
			if recorder != nil {
				if err := recorder.Record(msg); err != nil {
					logEveryN(logEvery, "ingest raw record error: %v", err)
				}
			}

			frame, ok := decodeFrame(msg, logEvery)
			if !ok {
				decodeFailures.Add(1)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- frame:
			}
		}
	}()

	return out, nil
}

func decodeFrame(msg []byte, logEvery int) (types.SourceFrame, bool) {
	var payload map[string]any
	if err := cbor.Unmarshal(msg, &payload); err != nil {
		logEveryN(logEvery, "ingest CBOR decode error: %v", err)
		return types.SourceFrame{}, false
	}

	msgType, _ := payload["type"].(string)
	if msgType != "frame" {
		logEveryN(logEvery, "ingest ignoring message type %q", msgType)
		return types.SourceFrame{}, false
	}

	height, err := toInt(payload["height"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid height: %v", err)
		return types.SourceFrame{}, false
	}
	width, err := toInt(payload["width"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid width: %v", err)
		return types.SourceFrame{}, false
	}
	channels, err := toInt(payload["channels"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid channels: %v", err)
		return types.SourceFrame{}, false
	}

	data, ok := payload["data"].([]byte)
	if !ok {
		logEveryN(logEvery, "ingest invalid data field %T", payload["data"])
		return types.SourceFrame{}, false
	}

	frame := types.SourceFrame{Height: height, Width: width, Channels: channels}
	dtype, _ := payload["dtype"].(string)
	switch dtype {
	case "uint8":
		frame.Bytes = data
	case "float32":
		if len(data)%4 != 0 {
			logEveryN(logEvery, "ingest ragged float32 payload")
			return types.SourceFrame{}, false
		}
		frame.Float = bytesToFloat32(data)
	default:
		logEveryN(logEvery, "ingest unsupported dtype %q", dtype)
		return types.SourceFrame{}, false
	}

	if !frame.Valid() {
		logEveryN(logEvery, "ingest shape mismatch: %dx%dx%d", height, width, channels)
		return types.SourceFrame{}, false
	}
	return frame, true
}

func bytesToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := 0; i < len(out); i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unsupported int type %T", v)
	}
}

var logCounter int

func logEveryN(n int, format string, args ...any) {
	logCounter++
	if logCounter%n == 0 {
		log.Printf(format, args...)
	}
}
