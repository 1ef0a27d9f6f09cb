// Package gormlogger routes gorm's SQL log through zerolog.
package gormlogger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"
)

// Logger implements gorm's logger.Interface.
type Logger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	logger        *zerolog.Logger
}

// New returns a Logger writing to the global zerolog logger. Queries slower
// than slowThreshold are logged as warnings; zero disables that.
func New(level gormlogger.LogLevel, slowThreshold time.Duration) *Logger {
	return &Logger{level: level, slowThreshold: slowThreshold}
}

// WithLogger uses l instead of the global logger.
func (g *Logger) WithLogger(l zerolog.Logger) *Logger {
	out := *g
	out.logger = &l

	return &out
}

func (g *Logger) zl() *zerolog.Logger {
	if g.logger != nil {
		return g.logger
	}

	return &log.Logger
}

// LogMode implements logger.Interface.
func (g *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	out := *g
	out.level = level

	return &out
}

// Info implements logger.Interface.
func (g *Logger) Info(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.zl().Info().Str("component", "gorm").Msg(fmt.Sprintf(msg, args...))
	}
}

// Warn implements logger.Interface.
func (g *Logger) Warn(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.zl().Warn().Str("component", "gorm").Msg(fmt.Sprintf(msg, args...))
	}
}

// Error implements logger.Interface.
func (g *Logger) Error(_ context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.zl().Error().Str("component", "gorm").Msg(fmt.Sprintf(msg, args...))
	}
}

// Trace implements logger.Interface. Record-not-found is not an error here.
func (g *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	var event *zerolog.Event

	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && g.level >= gormlogger.Error:
		event = g.zl().Error().Err(err)
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		event = g.zl().Warn().Dur("threshold", g.slowThreshold)
	case g.level >= gormlogger.Info:
		event = g.zl().Debug()
	default:
		return
	}

	sql, rows := fc()

	event.Str("component", "gorm").
		Dur("elapsed", elapsed).
		Int64("rows", rows).
		Str("sql", sql).
		Msg("query")
}
