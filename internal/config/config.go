package config

import "time"

type AppConfig struct {
	Port           int
	Endpoint       string
	InputH         int
	InputW         int
	StaleTicks     uint64
	PingInterval   time.Duration
	Debug          bool
	DebugFrameRate float64
	RawLogEnabled  bool
	RawLogDir      string
	IngestLogEvery int
}
