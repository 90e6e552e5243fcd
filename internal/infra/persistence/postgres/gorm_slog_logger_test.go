package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"renthouse/config"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newBufferedGormLogger(debug bool) (*bytes.Buffer, *gormSlogLogger) {
	buf := &bytes.Buffer{}
	base := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := &config.Config{}
	cfg.Env.Debug = debug

	return buf, newGormSlogLogger(base, cfg).(*gormSlogLogger)
}

func TestGormSlogLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) { return "SELECT * FROM accounts", 1 }

	t.Run("error is logged", func(t *testing.T) {
		buf, l := newBufferedGormLogger(false)
		l.Trace(context.Background(), time.Now(), sqlFn, assert.AnError)
		assert.Contains(t, buf.String(), "GORM query failed")
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		buf, l := newBufferedGormLogger(false)
		l.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("slow query is logged", func(t *testing.T) {
		buf, l := newBufferedGormLogger(false)
		l.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)
		assert.Contains(t, buf.String(), "GORM slow query")
	})

	t.Run("fast query only logged in debug", func(t *testing.T) {
		buf, l := newBufferedGormLogger(false)
		l.Trace(context.Background(), time.Now(), sqlFn, nil)
		assert.Empty(t, buf.String())

		buf, l = newBufferedGormLogger(true)
		l.Trace(context.Background(), time.Now(), sqlFn, nil)
		assert.Contains(t, buf.String(), "GORM query")
	})

	t.Run("silent mode", func(t *testing.T) {
		buf, l := newBufferedGormLogger(true)
		l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), sqlFn, assert.AnError)
		assert.Empty(t, buf.String())
	})
}

func TestGormSlogLogger_ParamsFilter(t *testing.T) {
	_, prod := newBufferedGormLogger(false)
	sql, params := prod.ParamsFilter(context.Background(), "UPDATE accounts SET password = $1", "$2a$10$digest")
	assert.Equal(t, "UPDATE accounts SET password = $1", sql)
	assert.Nil(t, params)

	_, debug := newBufferedGormLogger(true)
	_, params = debug.ParamsFilter(context.Background(), "UPDATE accounts SET password = $1", "$2a$10$digest")
	assert.Equal(t, []any{"$2a$10$digest"}, params)
}
