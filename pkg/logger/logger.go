package logger

import (
	"os"
	"strings"

	"coco/conf"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 全局日志：zap + lumberjack 切割。未初始化时使用 Nop，测试无需配置。

var (
	zl    = zap.NewNop()
	sugar = zl.Sugar()
)

type Field = zap.Field

// Pair 组装一个结构化字段
func Pair(key string, value any) Field {
	return zap.Any(key, value)
}

// InitLogger 按配置初始化全局 logger
func InitLogger(cfg *conf.LogConfig, appName string) {
	zl = New(cfg).With(zap.String("app", appName))
	sugar = zl.Sugar()
}

// New 构建一个 zap.Logger，文件输出交给 lumberjack 切割
func New(cfg *conf.LogConfig) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	if cfg.TimeFormat != "" {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(cfg.TimeFormat)
	} else {
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	var cores []zapcore.Core
	if cfg.FileName != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.FileName,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  cfg.LocalTime,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), level))
	}
	if cfg.Console || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Default 返回底层 zap.Logger，供 gorm 等组件接入
func Default() *zap.Logger {
	return zl
}

func Sync() {
	_ = zl.Sync()
}

func Debug(msg string, fields ...Field) { zl.Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { zl.Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { zl.Warn(msg, fields...) }
func Error(msg string, fields ...Field) { zl.Error(msg, fields...) }
func Fatal(msg string, fields ...Field) { zl.Fatal(msg, fields...) }

func Debugf(template string, args ...any) { sugar.Debugf(template, args...) }
func Infof(template string, args ...any)  { sugar.Infof(template, args...) }
func Warnf(template string, args ...any)  { sugar.Warnf(template, args...) }
func Errorf(template string, args ...any) { sugar.Errorf(template, args...) }
func Fatalf(template string, args ...any) { sugar.Fatalf(template, args...) }
