package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`   // 为空时只输出到 stdout
}

var (
	mu      sync.RWMutex
	global  = zerolog.New(os.Stdout).With().Timestamp().Logger()
	rotator *lumberjack.Logger
	logPath string
)

// Init initializes the global logger
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	var rot *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		rot = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rot)
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05.000"}
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()

	mu.Lock()
	old := rotator
	global = l
	rotator = rot
	logPath = cfg.File
	mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	l.Info().Str("level", level.String()).Str("file", cfg.File).Msg("Logger initialized")
	return nil
}

// Close closes the log file
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}
}

// L returns the global logger
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := global
	return &l
}

// Room returns a child logger tagged with the room id
func Room(roomID string) *zerolog.Logger {
	l := L().With().Str("room_id", roomID).Logger()
	return &l
}

// LogPanic logs a panic with stack trace
func LogPanic(r any) {
	L().Error().
		Str("panic", fmt.Sprint(r)).
		Str("stack", string(debug.Stack())).
		Time("at", time.Now()).
		Msg("[PANIC] recovered")
}

// GetLogPath returns the current log file path
func GetLogPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return logPath
}
