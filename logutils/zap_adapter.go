package logutils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ethereum/go-ethereum/log"
)

type zapAdapter struct {
	zapcore.LevelEnabler
	logger log.Logger
	fields []zapcore.Field
}

// NewZapAdapter returns a zapcore.Core that forwards log entries to the given
// geth logger, so zap-based packages and the root logger share one sink.
func NewZapAdapter(logger log.Logger, enab zapcore.LevelEnabler) zapcore.Core {
	return &zapAdapter{
		LevelEnabler: enab,
		logger:       logger,
	}
}

func (a *zapAdapter) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(a.fields)+len(fields))
	merged = append(merged, a.fields...)
	merged = append(merged, fields...)
	return &zapAdapter{
		LevelEnabler: a.LevelEnabler,
		logger:       a.logger,
		fields:       merged,
	}
}

func (a *zapAdapter) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checked.AddCore(entry, a)
	}
	return checked
}

func (a *zapAdapter) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(a.fields)+len(fields))
	all = append(all, a.fields...)
	all = append(all, fields...)

	args := make([]interface{}, 0, len(all)*2)
	for _, field := range all {
		if field.Type == zapcore.NamespaceType {
			args = append(args, "namespace", field.Key)
			continue
		}
		args = append(args, field.Key, fieldValue(field))
	}

	switch entry.Level {
	case zapcore.DebugLevel:
		a.logger.Debug(entry.Message, args...)
	case zapcore.InfoLevel:
		a.logger.Info(entry.Message, args...)
	case zapcore.WarnLevel:
		a.logger.Warn(entry.Message, args...)
	case zapcore.ErrorLevel:
		a.logger.Error(entry.Message, args...)
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		a.logger.Crit(entry.Message, args...)
	default:
		a.logger.Info(entry.Message, args...)
	}
	return nil
}

func (a *zapAdapter) Sync() error {
	return nil
}

// fieldValue unpacks a single zap field through the map encoder, which knows
// how to render every field type.
func fieldValue(field zapcore.Field) interface{} {
	enc := zapcore.NewMapObjectEncoder()
	field.AddTo(enc)
	if value, ok := enc.Fields[field.Key]; ok {
		return value
	}
	return field.Interface
}

// NewZapLoggerWithAdapter returns a zap logger writing through the given geth
// logger.
func NewZapLoggerWithAdapter(logger log.Logger) (*zap.Logger, error) {
	core := NewZapAdapter(logger, zap.NewAtomicLevelAt(zapcore.DebugLevel))
	return zap.New(core), nil
}
