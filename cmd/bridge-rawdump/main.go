package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/fxamacker/cbor/v2"

	"yolo-bridge-go/internal/output"
)

func main() {
	var (
		path  = flag.String("path", "", "Path to rawlog .bin file")
		limit = flag.Int("limit", 10, "Number of records to dump (0 = all)")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("path is required")
	}

	reader, err := output.OpenRawLog(*path)
	if err != nil {
		log.Fatalf("open rawlog: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if *limit > 0 && count >= *limit {
			return
		}
		ts, payload, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Fatalf("read record: %v", err)
		}

		log.Printf("record %d timestamp=%s size=%d", count, ts.Format(time.RFC3339Nano), len(payload))
		fmt.Println(describe(payload))
		count++
	}
}

func describe(payload []byte) string {
	var msg map[string]any
	if err := cbor.Unmarshal(payload, &msg); err != nil {
		return fmt.Sprintf("  CBOR decode error: %v", err)
	}
	msgType, _ := msg["type"].(string)
	if msgType != "frame" {
		return fmt.Sprintf("  type=%q keys=%d", msgType, len(msg))
	}
	data, _ := msg["data"].([]byte)
	return fmt.Sprintf("  frame %vx%vx%v dtype=%v payload=%d bytes",
		msg["height"], msg["width"], msg["channels"], msg["dtype"], len(data))
}
