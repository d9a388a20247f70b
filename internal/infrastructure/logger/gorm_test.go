package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func TestGormLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) { return "SELECT * FROM debts", 3 }

	t.Run("failure logged at error", func(t *testing.T) {
		zl, logs := observedLogger()
		gl := NewGormLogger(zl, gormlogger.Warn)
		gl.Trace(context.Background(), time.Now(), sqlFn, errors.New("connection reset"))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
		assert.Equal(t, "SQL Error", logs.All()[0].Message)
	})

	t.Run("record not found ignored", func(t *testing.T) {
		zl, logs := observedLogger()
		gl := NewGormLogger(zl, gormlogger.Warn)
		gl.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("record not found reported when configured", func(t *testing.T) {
		zl, logs := observedLogger()
		gl := NewGormLogger(zl, gormlogger.Warn, WithIgnoreRecordNotFoundError(false))
		gl.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("slow query logged at warn", func(t *testing.T) {
		zl, logs := observedLogger()
		gl := NewGormLogger(zl, gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		assert.Contains(t, logs.All()[0].Message, "SLOW SQL")
	})

	t.Run("normal query only at info level", func(t *testing.T) {
		zl, logs := observedLogger()
		NewGormLogger(zl, gormlogger.Warn).Trace(context.Background(), time.Now(), sqlFn, nil)
		assert.Equal(t, 0, logs.Len())

		NewGormLogger(zl, gormlogger.Info).Trace(context.Background(), time.Now(), sqlFn, nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, int64(3), logs.All()[0].ContextMap()["rows"])
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		zl, logs := observedLogger()
		gl := NewGormLogger(zl, gormlogger.Info).LogMode(gormlogger.Silent)
		gl.Trace(context.Background(), time.Now(), sqlFn, errors.New("x"))
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("request id from context", func(t *testing.T) {
		zl, logs := observedLogger()
		ctx := WithRequestID(context.Background(), "req-sql")
		NewGormLogger(zl, gormlogger.Info).Trace(ctx, time.Now(), sqlFn, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "req-sql", logs.All()[0].ContextMap()["request_id"])
	})
}

func TestGormLogger_Messages(t *testing.T) {
	zl, logs := observedLogger()
	gl := NewGormLogger(zl, gormlogger.Warn)

	gl.Info(context.Background(), "migrated %d tables", 11)
	gl.Warn(context.Background(), "deprecated %s", "column")
	gl.Error(context.Background(), "failed %s", "ping")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "deprecated column", logs.All()[0].Message)
	assert.Equal(t, "failed ping", logs.All()[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"verbose": gormlogger.Warn,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapGormLogLevel(in), in)
	}
}
