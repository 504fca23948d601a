// File: internal/observability/logger.go
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/crealab/webpilot/internal/config"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	// once guards initialization; later calls are ignored.
	once sync.Once
)

// ANSI escape sequences for level colorization on the console.
const (
	colorBlack   = "\x1b[30m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorReset   = "\x1b[0m"
)

var colorMap = map[string]string{
	"black":   colorBlack,
	"red":     colorRed,
	"green":   colorGreen,
	"yellow":  colorYellow,
	"blue":    colorBlue,
	"magenta": colorMagenta,
	"cyan":    colorCyan,
	"white":   colorWhite,
}

// Initialize builds the global logger from the configuration, sending the
// console stream to the given writer. The first call wins; subsequent calls
// are no-ops until ResetForTest.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		level := zap.NewAtomicLevel()
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		cores := []zapcore.Core{
			zapcore.NewCore(buildEncoder(cfg), consoleWriter, level),
		}
		if cfg.LogFile != "" {
			cores = append(cores, fileCore(cfg, level))
		}

		opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			opts = append(opts, zap.AddCaller())
		}

		logger := zap.New(zapcore.NewTee(cores...), opts...).Named(cfg.ServiceName)
		globalLogger.Store(logger)

		// Route the stdlib log package and zap's package-level loggers here
		// too, so third-party output lands in the same sinks.
		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// InitializeLogger wires the console stream to stdout. This is the entry
// point the CLI uses.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stdout))
}

// ResetForTest clears the singleton so each test can initialize its own
// logger. Never call this outside tests.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

// fileCore returns a JSON core writing through lumberjack, which handles
// rotation and is safe for concurrent writes.
func fileCore(cfg config.LoggerConfig, level zapcore.LevelEnabler) zapcore.Core {
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
	return zapcore.NewCore(buildEncoder(config.LoggerConfig{Format: "json"}), w, level)
}

// buildEncoder returns a JSON encoder unless the format is "console", in
// which case a single line, colorized console encoder is used.
func buildEncoder(cfg config.LoggerConfig) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	if cfg.Format != "console" {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}

	ec.EncodeLevel = colorizedLevelEncoder(cfg.Colors)
	// A trailing dot keeps the logger name visually attached to the message
	// that follows it, e.g. "webpilot.browser. Page loaded."
	ec.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(ec)
}

func colorizedLevelEncoder(colors config.ColorConfig) zapcore.LevelEncoder {
	byLevel := map[zapcore.Level]string{
		zapcore.DebugLevel:  colorMap[colors.Debug],
		zapcore.InfoLevel:   colorMap[colors.Info],
		zapcore.WarnLevel:   colorMap[colors.Warn],
		zapcore.ErrorLevel:  colorMap[colors.Error],
		zapcore.DPanicLevel: colorMap[colors.DPanic],
		zapcore.PanicLevel:  colorMap[colors.Panic],
		zapcore.FatalLevel:  colorMap[colors.Fatal],
	}
	return func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		text := strings.ToUpper(level.String())
		if c := byLevel[level]; c != "" {
			enc.AppendString(c + text + colorReset)
			return
		}
		enc.AppendString(text)
	}
}

// GetLogger returns the global logger, or a development fallback when
// nothing has been initialized yet. It never returns nil.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	l.Warn("Global logger requested before initialization; using fallback.")
	return l.Named("fallback")
}

// Sync flushes buffered entries. Call before process exit.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil {
		// Syncing stdout fails on some platforms; that noise is not worth
		// surfacing during shutdown.
		msg := err.Error()
		if !strings.Contains(msg, "sync /dev/stdout") &&
			!strings.Contains(msg, "invalid argument") &&
			!strings.Contains(msg, "operation not supported") {
			fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
		}
	}
}
