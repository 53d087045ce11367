package verifier

import (
	"os"

	"github.com/rs/zerolog"
)

var RootLogger zerolog.Logger = zerolog.New(
	zerolog.NewConsoleWriter(
		func(w *zerolog.ConsoleWriter) { w.Out = os.Stderr },
		func(w *zerolog.ConsoleWriter) { w.TimeFormat = "15:04:05.000" })).Level(zerolog.InfoLevel).
	With().Timestamp().Logger()

func SetLogLevel(rawLevel string) error {
	if rawLevel == "" {
		return nil
	}
	level, err := zerolog.ParseLevel(rawLevel)
	if err != nil {
		return err
	}
	RootLogger = RootLogger.Level(level)
	return nil
}
