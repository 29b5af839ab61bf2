package main

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize                int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize      int           `env:"CONNECTION_BUFFER_SIZE,default=32"`
	NumberOfWorkers           int           `env:"NUMBER_OF_WORKERS,default=4"`
	ModerationCharReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	SinkTimeout               time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval           time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	TypingTTL                 time.Duration `env:"TYPING_TTL,default=5s"`
	SweepInterval             time.Duration `env:"SWEEP_INTERVAL,default=30s"`
	SummaryPollInterval       time.Duration `env:"SUMMARY_POLL_INTERVAL,default=30s"`
	HealthInterval            time.Duration `env:"HEALTH_INTERVAL,default=1m"`
	MaxContentLength          int           `env:"MAX_CONTENT_LENGTH,default=4000"`
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel                  string        `env:"LOG_LEVEL,default=INFO"`
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=8080"`
}

// CharacterRune narrows the replacement setting to a single rune.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
