package logger

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/config"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/contextkeys"
)

// contextFieldKeys are copied from the context onto every log line when present.
var contextFieldKeys = []fmt.Stringer{
	contextkeys.RequestIDKey,
	contextkeys.EventIDKey,
	contextkeys.EventTypeKey,
	contextkeys.ActorKey,
	contextkeys.ReviewRequestIDKey,
}

// ZapAdapter implements the domain.Logger interface using Zap.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter creates a JSON logger writing errors to stderr and
// everything else to stdout, at the level configured in log.level.
func NewZapAdapter(cfgProvider config.Provider, serviceName string) (domain.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(cfgProvider.Get().Log.Level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	infoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapLevel && lvl < zapcore.ErrorLevel
	})
	errorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapLevel && lvl >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stdout), infoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stderr), errorLevel),
	)

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	zapLogger = zapLogger.With(zap.String("service", serviceName))

	return &ZapAdapter{logger: zapLogger}, nil
}

// NewZapAdapterFromLogger wraps an existing zap logger, e.g. zaptest or zap.NewNop.
func NewZapAdapterFromLogger(l *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger: l}
}

func (za *ZapAdapter) fields(ctx context.Context, args []any) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2+len(contextFieldKeys))

	for _, key := range contextFieldKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, zap.String(key.String(), v))
		}
	}
	return append(fields, pairsToFields(args)...)
}

// pairsToFields converts alternating key/value arguments. Non-string keys and
// a trailing orphan value are kept under positional names rather than dropped.
func pairsToFields(args []any) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields = append(fields, zap.Any(fmt.Sprintf("orphan_field_%d", i), args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("invalid_key_%d", i)
		}
		if err, isErr := args[i+1].(error); isErr && key == "error" {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}

func (za *ZapAdapter) Debug(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	za.logger.Debug(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Info(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.InfoLevel) {
		return
	}
	za.logger.Info(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Warn(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.WarnLevel) {
		return
	}
	za.logger.Warn(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Error(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.ErrorLevel) {
		return
	}
	za.logger.Error(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Fatal(ctx context.Context, msg string, args ...any) {
	za.logger.Fatal(msg, za.fields(ctx, args)...) // Zap's Fatal logs and then calls os.Exit(1)
}

func (za *ZapAdapter) With(args ...any) domain.Logger {
	return &ZapAdapter{logger: za.logger.With(pairsToFields(args)...)}
}

// Sync flushes buffered entries.
func (za *ZapAdapter) Sync() error {
	return za.logger.Sync()
}
