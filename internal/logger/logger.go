package logger

import (
	"os"
	"strings"

	"github.com/jugend/amazon-ecs/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package-level logger to be used across packages after Init.
var S *zap.SugaredLogger

// Init initializes a zap SugaredLogger using settings from config. Debug
// mode forces the debug level so request URLs are visible.
func Init(cfg *config.Config) (*zap.SugaredLogger, error) {
	level := parseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(zapcore.Lock(os.Stderr)),
		level,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("app", cfg.AppName), zap.String("env", cfg.Env))
	S = logger.Sugar()
	return S, nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close flushes any buffered loggers.
func Close() error {
	if S == nil {
		return nil
	}
	return S.Sync()
}

// The *Obj helpers log obj as a single structured field named key. They are
// no-ops until Init has run.
func InfoObj(msg, key string, obj interface{})  { logObj(zapcore.InfoLevel, msg, key, obj) }
func DebugObj(msg, key string, obj interface{}) { logObj(zapcore.DebugLevel, msg, key, obj) }
func WarnObj(msg, key string, obj interface{})  { logObj(zapcore.WarnLevel, msg, key, obj) }
func ErrorObj(msg, key string, obj interface{}) { logObj(zapcore.ErrorLevel, msg, key, obj) }

func logObj(lvl zapcore.Level, msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	if ce := S.Desugar().WithOptions(zap.AddCallerSkip(2)).Check(lvl, msg); ce != nil {
		ce.Write(zap.Any(key, obj))
	}
}

// Logger is the structured logging surface shared by the runtime packages.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// Obj adapts the package-level helpers to Logger. It also satisfies the
// narrower interfaces declared by the ecs and publishers packages.
type Obj struct{}

var _ Logger = Obj{}

func (Obj) InfoObj(msg, key string, obj interface{})  { InfoObj(msg, key, obj) }
func (Obj) DebugObj(msg, key string, obj interface{}) { DebugObj(msg, key, obj) }
func (Obj) WarnObj(msg, key string, obj interface{})  { WarnObj(msg, key, obj) }
func (Obj) ErrorObj(msg, key string, obj interface{}) { ErrorObj(msg, key, obj) }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) InfoObj(string, string, interface{})  {}
func (NopLogger) DebugObj(string, string, interface{}) {}
func (NopLogger) WarnObj(string, string, interface{})  {}
func (NopLogger) ErrorObj(string, string, interface{}) {}
