package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"yolo-bridge-go/internal/bridge"
	"yolo-bridge-go/internal/config"
	"yolo-bridge-go/internal/flow"
	"yolo-bridge-go/internal/ingest"
	"yolo-bridge-go/internal/output"
	"yolo-bridge-go/internal/packer"
	"yolo-bridge-go/internal/simulator"
	"yolo-bridge-go/internal/store"
	"yolo-bridge-go/internal/types"
)

type metrics struct {
	framesIn    atomic.Uint64
	resultsSeen atomic.Uint64
}

func main() {
	var (
		port           = flag.Int("port", 8888, "HTTP port for the web client and frame stream")
		endpoint       = flag.String("endpoint", "tcp://localhost:31005", "ZMQ endpoint of the frame producer")
		inputH         = flag.Int("input-h", 640, "Logical plane height of the preallocated frame buffer")
		inputW         = flag.Int("input-w", 640, "Logical plane width of the preallocated frame buffer")
		staleTicks     = flag.Uint64("stale-ticks", flow.DefaultStaleTicks, "Producer ticks before an unacknowledged frame is treated as stale")
		pingInterval   = flag.Duration("ping-interval", 30*time.Second, "Keepalive ping interval per connection")
		debug          = flag.Bool("debug", false, "Run with simulated frames instead of a producer")
		debugFrameRate = flag.Float64("debug-fps", 30.0, "Simulated frame rate (frames/sec)")
		rawLogEnabled  = flag.Bool("raw-log", false, "Write raw producer messages to disk")
		rawLogDir      = flag.String("raw-log-dir", "rawlog", "Directory for raw ingest logs")
		ingestLogEvery = flag.Int("ingest-log-every", 100, "Log every Nth ingest error")
	)
	flag.Parse()

	cfg := config.AppConfig{
		Port:           *port,
		Endpoint:       *endpoint,
		InputH:         *inputH,
		InputW:         *inputW,
		StaleTicks:     *staleTicks,
		PingInterval:   *pingInterval,
		Debug:          *debug,
		DebugFrameRate: *debugFrameRate,
		RawLogEnabled:  *rawLogEnabled,
		RawLogDir:      *rawLogDir,
		IngestLogEvery: *ingestLogEvery,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m metrics
	var lastResultMu sync.Mutex
	var lastResult types.SegmentationResult

	fc := flow.New(cfg.StaleTicks)
	st := store.New()
	pk := packer.New(cfg.InputH, cfg.InputW)

	onResult := func(r types.SegmentationResult) {
		m.resultsSeen.Add(1)
		lastResultMu.Lock()
		lastResult = r
		lastResultMu.Unlock()
	}

	statusFn := func() map[string]any {
		extra := map[string]any{
			"frames_in_total":              m.framesIn.Load(),
			"results_seen_total":           m.resultsSeen.Load(),
			"ingest_decode_failures_total": ingest.DecodeFailures(),
		}
		lastResultMu.Lock()
		if lastResult.Data != nil {
			extra["last_mask_width"] = lastResult.Width
			extra["last_mask_height"] = lastResult.Height
		}
		lastResultMu.Unlock()
		return extra
	}

	srv := bridge.New(cfg, fc, st, pk, onResult, statusFn)

	var frames <-chan types.SourceFrame
	if cfg.Debug {
		frames = simulator.Stream(ctx, cfg.InputH, cfg.InputW, cfg.DebugFrameRate)
	} else {
		var recorder ingest.RawRecorder
		if cfg.RawLogEnabled {
			writer, err := output.NewRawLogWriter(cfg.RawLogDir, "raw_frames")
			if err != nil {
				log.Fatalf("failed to start raw log: %v", err)
			}
			recorder = writer
			go func() {
				<-ctx.Done()
				if err := writer.Close(); err != nil {
					log.Printf("raw log close failed: %v", err)
				}
			}()
		}
		ch, err := ingest.StreamWithOptions(ctx, cfg.Endpoint, cfg.IngestLogEvery, recorder)
		if err != nil {
			log.Fatalf("failed to start ingest: %v", err)
		}
		frames = ch
	}

	// Producer tick loop: one tick per source frame.
	go func() {
		var tick uint64
		for frame := range frames {
			tick++
			m.framesIn.Add(1)
			srv.SendFrame(frame, tick)
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Printf("bridge stats: frames_in=%d results=%d decode_failures=%d busy=%v active=%v",
					m.framesIn.Load(),
					m.resultsSeen.Load(),
					ingest.DecodeFailures(),
					fc.Busy(),
					srv.ActiveID() != "",
				)
			}
		}
	}()

	log.Printf("Starting yolo-bridge at http://localhost:%d\n", cfg.Port)
	if err := srv.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
