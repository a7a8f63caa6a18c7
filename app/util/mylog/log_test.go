package mylog

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"prdchat/app/config"

	"github.com/stretchr/testify/assert"
)

func TestTelegramFilter(t *testing.T) {
	ctx := context.Background()

	assert.True(t, telegramFilter(ctx, slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)))

	tagged := slog.NewRecord(time.Now(), slog.LevelInfo, "chat created", 0)
	tagged.AddAttrs(slog.Bool("telegram", true))
	assert.True(t, telegramFilter(ctx, tagged))

	assert.False(t, telegramFilter(ctx, slog.NewRecord(time.Now(), slog.LevelWarn, "slow", 0)))
}

func TestInitLevel(t *testing.T) {
	Preinit()

	cfg := &config.Config{Log: config.Log{Level: "warn"}}
	assert.NoError(t, Init(cfg))
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))

	cfg.Log.Level = "loud"
	assert.Error(t, Init(cfg))
}
