package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the console logger used by every package and installs it as
// the global one. It returns a cleanup func that flushes buffered entries.
func Init(levelStr string) (func(), error) {
	if err := SetLogLevel(levelStr); err != nil {
		return func() {}, err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05")
	encCfg.CallerKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	z := zap.New(core)
	global = z.Sugar()
	zap.ReplaceGlobals(z)

	return func() { _ = z.Sync() }, nil
}

// Logger returns the global logger, or a no-op logger before Init.
func Logger() *zap.SugaredLogger {
	if global == nil {
		return zap.NewNop().Sugar()
	}
	return global
}

// SetLogLevel changes the level of the global logger at runtime.
// An empty string keeps the current level.
func SetLogLevel(levelStr string) error {
	if levelStr == "" {
		return nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}
	level.SetLevel(lvl)
	return nil
}

// Level reports the current level as a string.
func Level() string {
	return level.Level().String()
}
