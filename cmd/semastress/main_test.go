package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/llxisdsh/semalock/internal/opt"
)

func TestRun(t *testing.T) {
	if opt.Race_ {
		t.Skip("pb.MapOf reads entries without barriers the race detector can see")
	}
	closer, err := initLogger("stderr", 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	for _, portable := range []bool{false, true} {
		o := options{
			carriers:    4,
			iters:       2000,
			taskEvery:   100,
			taskTimeout: 10 * time.Microsecond,
			preemptTick: 100 * time.Microsecond,
			portable:    portable,
		}
		if err := run(o, closer); err != nil {
			t.Fatalf("portable=%v: %v", portable, err)
		}
	}
}

func TestInitLoggerClosesFile(t *testing.T) {
	logger, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})

	for _, diodeBuf := range []int{0, 64} {
		path := filepath.Join(t.TempDir(), "semastress.log")
		closer, err := initLogger(path, 1, diodeBuf)
		if err != nil {
			t.Fatal(err)
		}
		log.Info().Int("diode", diodeBuf).Msg("hello")
		if err := closer.Close(); err != nil {
			t.Fatalf("diode=%d: Close: %v", diodeBuf, err)
		}
		if diodeBuf == 0 {
			f, ok := closer.(*os.File)
			if !ok {
				t.Fatalf("closer = %T, want the log file", closer)
			}
			if err := f.Close(); !errors.Is(err, os.ErrClosed) {
				t.Fatalf("log file still open after Close: %v", err)
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(data) == 0 {
			t.Fatalf("diode=%d: nothing written to %s", diodeBuf, path)
		}
	}
}
