// Package logger は設定から構造化ロガー (log/slog) を構築します。
package logger

import (
	"io"
	"log/slog"
	"strings"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/config"
)

// New は log 設定に従って *slog.Logger を生成します。format が text 以外なら JSON で出力します。
func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("service", "hiring-lifecycle")
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
