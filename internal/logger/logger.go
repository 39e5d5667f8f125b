package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	levelVar slog.LevelVar

	mu      sync.RWMutex
	out     io.Writer
	jsonFmt bool
	base    *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	out = os.Stdout
	rebuild()
}

// rebuild 需要在持有写锁或初始化时调用。
func rebuild() {
	opts := &slog.HandlerOptions{Level: &levelVar}
	if jsonFmt {
		base = slog.New(slog.NewJSONHandler(out, opts))
		return
	}
	base = slog.New(slog.NewTextHandler(out, opts))
}

func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	mu.Lock()
	out = w
	rebuild()
	mu.Unlock()
}

// SetFormat 选择 "text"（默认）或 "json" 输出。
func SetFormat(format string) {
	mu.Lock()
	jsonFmt = strings.EqualFold(strings.TrimSpace(format), "json")
	rebuild()
	mu.Unlock()
}

// TeeToFile 同时写 stdout 与 path，空路径不做任何事并返回 nil。
func TeeToFile(path string) (*os.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	SetOutput(io.MultiWriter(os.Stdout, file))
	return file, nil
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func Enabled(level slog.Level) bool {
	return level >= levelVar.Level()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func logf(level slog.Level, format string, v []any) {
	if !Enabled(level) {
		return
	}
	current().Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v) }
func Infof(format string, v ...any)  { logf(slog.LevelInfo, format, v) }
func Warnf(format string, v ...any)  { logf(slog.LevelWarn, format, v) }
func Errorf(format string, v ...any) { logf(slog.LevelError, format, v) }
