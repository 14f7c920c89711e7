// Package logger is the diagnostic log written to stderr. Only errors
// print by default; --verbose lowers the threshold to debug and
// --log-level picks any level in between.
//
// Lines look like "[WARN] message". A zap core does the level
// filtering and encoding; the package functions keep call sites short.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level orders messages by severity.
type Level int

// Levels from most to least chatty.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var zapLevels = map[Level]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

func (l Level) String() string {
	if z, ok := zapLevels[l]; ok {
		return z.String()
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel accepts debug, info, warn, warning or error in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelError, fmt.Errorf("unknown log level %q", s)
}

var mu sync.RWMutex

var (
	current   = LevelError
	threshold = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	sink      = zapcore.Lock(zapcore.AddSync(os.Stderr))
	sugar     = build(sink)
)

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}

func build(ws zapcore.WriteSyncer) *zap.SugaredLogger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeLevel:      encodeLevel,
		ConsoleSeparator: " ",
		LineEnding:       zapcore.DefaultLineEnding,
	})
	return zap.New(zapcore.NewCore(enc, ws, threshold)).Sugar()
}

// SetLevel sets the lowest level that is written.
func SetLevel(l Level) {
	z, ok := zapLevels[l]
	if !ok {
		return
	}
	mu.Lock()
	current = l
	threshold.SetLevel(z)
	mu.Unlock()
}

// CurrentLevel returns the active threshold.
func CurrentLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetVerbose switches between debug and the error-only default.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelError)
}

// IsVerbose reports whether debug messages are written.
func IsVerbose() bool {
	return CurrentLevel() == LevelDebug
}

// SetOutput redirects the log. Tests use it to capture output.
func SetOutput(w io.Writer) {
	ws := zapcore.Lock(zapcore.AddSync(w))
	mu.Lock()
	sink = ws
	sugar = build(ws)
	mu.Unlock()
}

func logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs detail useful when tracing a single run.
func Debug(format string, args ...any) { logger().Debugf(format, args...) }

// Info logs progress.
func Info(format string, args ...any) { logger().Infof(format, args...) }

// Warn logs a recoverable problem, usually a fallback being taken.
func Warn(format string, args ...any) { logger().Warnf(format, args...) }

// Error logs a failure.
func Error(format string, args ...any) { logger().Errorf(format, args...) }

// Section writes a banner at info level to separate pipeline stages.
func Section(name string) {
	if !threshold.Enabled(zapcore.InfoLevel) {
		return
	}
	mu.RLock()
	ws := sink
	mu.RUnlock()
	_, _ = fmt.Fprintf(ws, "\n=== %s ===\n", name)
}
