package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

type WriterType uint8

const (
	ConsoleWriter WriterType = iota
	JSONWriter
)

// Component loggers. Libraries stay silent by default, Init enables
// them process wide.
var (
	Root  zerolog.Logger
	Store zerolog.Logger
	Enum  zerolog.Logger
)

func init() {
	Root = zerolog.Nop()
	Store = Root
	Enum = Root
}

// Options for Init.
type Options struct {
	// LogLevel below which events are dropped, default Info.
	LogLevel zerolog.Level
	Type     WriterType
}

func ParseLogLevel(loglevel string) (zerolog.Level, error) {
	return zerolog.ParseLevel(loglevel)
}

func Init(opts Options) {
	switch opts.Type {
	case ConsoleWriter:
		cw := zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true, TimeFormat: time.RFC3339}
		Root = zerolog.New(cw).Level(opts.LogLevel).
			With().Timestamp().Logger()
	default:
		Root = zerolog.New(os.Stdout).Level(opts.LogLevel).
			With().Timestamp().Logger()
	}
	Store = Root.With().Str("component", "store").Logger()
	Enum = Root.With().Str("component", "enum").Logger()
}
