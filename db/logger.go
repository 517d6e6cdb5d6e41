package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger 把 gorm 日志转到 slog；record not found 不算错误，仓储层会转成领域错误
type GormLogger struct {
	log           *slog.Logger
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger(log *slog.Logger) gormLogger.Interface {
	return &GormLogger{log: log, SlowThreshold: slowQueryThreshold, LogLevel: gormLogger.Warn}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *l
	cp.LogLevel = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		l.log.InfoContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		l.log.WarnContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		l.log.ErrorContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.LogLevel >= gormLogger.Error && !errors.Is(err, gormLogger.ErrRecordNotFound):
		sql, rows := fc()
		l.log.ErrorContext(ctx, "sql failed", "file", utils.FileWithLineNum(), "error", err, "duration", elapsed, "rows", rows, "sql", sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormLogger.Warn:
		sql, rows := fc()
		l.log.WarnContext(ctx, "slow sql", "file", utils.FileWithLineNum(), "duration", elapsed, "rows", rows, "sql", sql)
	case l.LogLevel >= gormLogger.Info:
		sql, rows := fc()
		l.log.DebugContext(ctx, "sql", "file", utils.FileWithLineNum(), "duration", elapsed, "rows", rows, "sql", sql)
	}
}
