package otpcore

import (
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	islog "github.com/joeycumines/logiface-slog"
)

var currentLogger atomic.Pointer[logiface.Logger[*islog.Event]]

func init() {
	SetLogLevel(slog.LevelWarn)
}

// SetLogger replaces the logger otpcore uses for crashes, forced kills,
// intensity escalation, subscriber panics and abandoned terminate calls.
// Pass nil to silence logging entirely.
func SetLogger(l *logiface.Logger[*islog.Event]) {
	currentLogger.Store(l)
}

// SetLogLevel resets the default logger to a slog text handler on stderr at
// the given threshold. Call SetLogger instead to wire a different backend or
// format.
func SetLogLevel(level slog.Level) {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	SetLogger(islog.L.New(islog.L.WithSlogHandler(h)))
}

func applyFields(b *logiface.Builder[*islog.Event], kv []any) *logiface.Builder[*islog.Event] {
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			b = b.Str(key, v)
		case error:
			b = b.Err(v)
		default:
			b = b.Any(key, v)
		}
	}
	return b
}

func logWarn(msg string, kv ...any) {
	l := currentLogger.Load()
	if l == nil {
		return
	}
	applyFields(l.Warning(), kv).Log(msg)
}

func logErr(msg string, kv ...any) {
	l := currentLogger.Load()
	if l == nil {
		return
	}
	applyFields(l.Err(), kv).Log(msg)
}
