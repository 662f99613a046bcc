package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/qs3c/redact_go_server/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init 初始化全局 zerolog，component 区分 server/worker/ledgerctl
func Init(cfg config.LogConfig, component string) zerolog.Logger {
	l := New(selectWriter(cfg.Format), cfg.Level, component)
	log.Logger = l
	return l
}

// New 构造写入 w 的 logger，并设置全局日志级别
func New(w io.Writer, level, component string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(level))

	ctx := zerolog.New(w).With().Timestamp()
	if component = strings.TrimSpace(component); component != "" {
		ctx = ctx.Str("component", component)
	}
	return ctx.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		fmt.Fprintf(os.Stderr, "logger: invalid level %q; using info\n", level)
		return zerolog.InfoLevel
	}
}

func selectWriter(format string) io.Writer {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	default:
		return os.Stderr
	}
}
