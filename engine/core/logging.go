package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var engineLogger = sync.OnceValue(func() *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "FrameGraph 🎞️ ",
		// the printf wrappers below add one frame
		CallerOffset: 1,
	})
	l.SetLevel(log.InfoLevel)
	return l
})

// SetLogLevel changes the verbosity of the engine logger. Accepted values are
// the charmbracelet/log level names: debug, info, warn, error, fatal.
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	engineLogger().SetLevel(lvl)
	return nil
}

// SetLogOutput redirects the engine logger, mostly useful in tests and tools.
func SetLogOutput(w io.Writer) {
	engineLogger().SetOutput(w)
}

// Logger returns a child of the engine logger carrying the given key/value
// pairs on every line.
func Logger(keyvals ...interface{}) *log.Logger {
	return engineLogger().With(keyvals...)
}

func LogDebug(msg string, args ...interface{}) {
	engineLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	engineLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	engineLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	engineLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	engineLogger().Fatalf(msg, args...)
}
