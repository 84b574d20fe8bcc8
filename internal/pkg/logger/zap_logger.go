package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

// Options selects where a ZapLogger writes.
type Options struct {
	// FilePath is a rotated JSON log file; empty disables the file sink.
	FilePath string
	// Console mirrors every entry to stdout.
	Console bool
	// Production keeps the console in JSON instead of the coloured dev format.
	Production bool
	// FileLevel is the minimum level written to the file.
	FileLevel zapcore.Level
}

type ZapLogger struct {
	logger   *zap.Logger
	filePath string
}

// New builds a logger from opts. With no sink selected it discards everything.
func New(opts Options) *ZapLogger {
	var cores []zapcore.Core

	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    10, // Megabytes
			MaxBackups: 5,
			MaxAge:     30, // Days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), zapcore.AddSync(rotator), opts.FileLevel))
	}

	if opts.Console {
		encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		if opts.Production {
			encoder = zapcore.NewJSONEncoder(fileEncoderConfig())
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.DebugLevel))
	}

	l := NewFromCore(zapcore.NewTee(cores...))
	l.filePath = opts.FilePath
	return l
}

// NewFromCore wraps an existing core; tests pass an observer core.
func NewFromCore(core zapcore.Core) *ZapLogger {
	// skip the wrapper method and log() so the caller field points at our caller
	return &ZapLogger{logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))}
}

// NewZapLogger writes Info and above to a rotated file and everything to stdout.
func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	return New(Options{
		FilePath:   logFilePath,
		Console:    true,
		Production: isProd,
		FileLevel:  zap.InfoLevel,
	})
}

// NewIsolatedLogger writes every level to the file only. The per-fix GPS trace
// and the websocket log use it so the main log stays readable.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	return New(Options{FilePath: logFilePath, FileLevel: zap.DebugLevel})
}

func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.log(zap.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.log(zap.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.log(zap.WarnLevel, module, message, details)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.log(zap.ErrorLevel, module, message, details)
}

func (l *ZapLogger) log(level zapcore.Level, module, message string, details map[string]interface{}) {
	ce := l.logger.Check(level, message)
	if ce == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	fields := []zap.Field{zap.String("module", module), zap.Any("details", details)}
	if err, ok := details["error"]; ok && level >= zap.ErrorLevel {
		fields = append(fields, zap.Any("error_ref", err))
	}
	ce.Write(fields...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// FilePath returns the rotated log file location, empty when there is none.
func (l *ZapLogger) FilePath() string {
	return l.filePath
}
