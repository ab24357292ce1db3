// Package log provides the application-wide leveled key-value logger.
//
// The API is deliberately small: Debug/Info/Error taking a message and a
// flat list of key-value pairs. Output goes through zerolog so that log
// lines are structured JSON and cheap to filter in production.
package log

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	mu     sync.Mutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// SetLevel adjusts the minimum level for subsequent log calls.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	switch l {
	case LevelDebug:
		logger = logger.Level(zerolog.DebugLevel)
	case LevelInfo:
		logger = logger.Level(zerolog.InfoLevel)
	case LevelError:
		logger = logger.Level(zerolog.ErrorLevel)
	}
}

func Debug(msg string, kv ...any) {
	emit(logger.Debug(), msg, kv)
}

func Info(msg string, kv ...any) {
	emit(logger.Info(), msg, kv)
}

func Error(msg string, err error, kv ...any) {
	emit(logger.Error().Err(err), msg, kv)
}

// emit attaches kv as alternating key/value pairs. Non-string keys and a
// trailing unpaired value are ignored.
func emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
