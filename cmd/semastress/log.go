package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

// initLogger sets up the global zerolog logger. With diodeBuf > 0 writes go
// through a non-blocking diode. The returned closer flushes the diode and
// closes the log file, if any.
func initLogger(path string, level int, diodeBuf int) (io.Closer, error) {
	var output io.Writer
	var closer io.Closer = nopCloser{}
	switch path {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		output = f
		closer = f
	}

	if diodeBuf > 0 {
		d := diode.NewWriter(output, diodeBuf, 0, func(missed int) {
			fmt.Fprintf(os.Stderr, "WARNING: Dropped %d log entries\n", missed)
		})
		output = d
		closer = d
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.Level(level))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
