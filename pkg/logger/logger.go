package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Interface interface {
	Debug(message interface{}, args ...interface{})
	Info(message string, args ...interface{})
	Warn(message string, args ...interface{})
	Error(message interface{}, args ...interface{})
	Fatal(message interface{}, args ...interface{})
}

type Logger struct {
	logger *zap.SugaredLogger
}

var _ Interface = (*Logger)(nil)

func New(level string) *Logger {
	var l zapcore.Level

	switch strings.ToLower(level) {
	case "debug":
		l = zapcore.DebugLevel
	case "warn":
		l = zapcore.WarnLevel
	case "error":
		l = zapcore.ErrorLevel
	default:
		l = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(l)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"

	z, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger - New - config.Build: %s\n", err)
		z = zap.NewNop()
	}

	return &Logger{logger: z.Sugar()}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{logger: zap.NewNop().Sugar()}
}

func (l *Logger) Debug(message interface{}, args ...interface{}) {
	l.msg(zapcore.DebugLevel, message, args...)
}

func (l *Logger) Info(message string, args ...interface{}) {
	l.log(zapcore.InfoLevel, message, args...)
}

func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(zapcore.WarnLevel, message, args...)
}

func (l *Logger) Error(message interface{}, args ...interface{}) {
	l.msg(zapcore.ErrorLevel, message, args...)
}

func (l *Logger) Fatal(message interface{}, args ...interface{}) {
	l.msg(zapcore.FatalLevel, message, args...)

	os.Exit(1)
}

func (l *Logger) Sync() error {
	return l.logger.Sync()
}

func (l *Logger) log(lvl zapcore.Level, message string, args ...interface{}) {
	if len(args) == 0 {
		l.logger.Log(lvl, message)

		return
	}

	l.logger.Logf(lvl, message, args...)
}

// msg accepts either a plain message or an error. For errors the first
// string argument is the call-site context ("Component - Method - callee").
func (l *Logger) msg(lvl zapcore.Level, message interface{}, args ...interface{}) {
	switch msg := message.(type) {
	case error:
		where := ""
		if len(args) > 0 {
			if s, ok := args[0].(string); ok {
				where = s
			}
		}
		if where == "" {
			l.logger.Logw(lvl, msg.Error())

			return
		}
		l.logger.Logw(lvl, where, zap.Error(msg))
	case string:
		l.log(lvl, msg, args...)
	default:
		l.log(lvl, fmt.Sprintf("%s message %v has unknown type %T", lvl.CapitalString(), message, msg), args...)
	}
}
