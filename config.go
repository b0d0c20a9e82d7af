package planbridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/viper"

	"github.com/hugr-lab/planbridge/exchange"
	"github.com/hugr-lab/planbridge/internal/observability"
	"github.com/hugr-lab/planbridge/table"
)

// Config contains configuration for a Bridge.
type Config struct {
	// Engine executes interpreted plans.
	// OPTIONAL: If nil, an in-memory DuckDB engine is opened from Threads
	// and MemoryLimit and closed together with the Bridge.
	Engine Engine

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// Threads caps engine worker threads. 0 keeps the engine default.
	Threads int

	// MemoryLimit is an engine size string such as "2GB". Empty keeps the default.
	MemoryLimit string

	// IPCCompression is the body codec for IPC output: "", "zstd" or "lz4".
	IPCCompression string

	// MaxPlanBytes caps the decompressed size of a compiled plan.
	// OPTIONAL: 0 uses the decoder default (256MB).
	MaxPlanBytes uint64

	// MaxPrintRows is how many rows PrintTable shows before eliding.
	// OPTIONAL: 0 uses table.DefaultMaxPrintRows.
	MaxPrintRows int

	// Stdout receives PrintTable output.
	// OPTIONAL: Uses os.Stdout if nil.
	Stdout io.Writer
}

// ErrInvalidConfig indicates Config validation failed.
var ErrInvalidConfig = errors.New("invalid bridge config")

func validateConfig(config Config) error {
	if config.Threads < 0 {
		return fmt.Errorf("threads must not be negative, got %d", config.Threads)
	}
	if config.MaxPrintRows < 0 {
		return fmt.Errorf("max print rows must not be negative, got %d", config.MaxPrintRows)
	}
	if !exchange.ValidCompression(config.IPCCompression) {
		return fmt.Errorf("unknown IPC compression %q", config.IPCCompression)
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *c.LogLevel}))
	}
	return slog.Default()
}

func (c Config) maxPrintRows() int {
	if c.MaxPrintRows > 0 {
		return c.MaxPrintRows
	}
	return table.DefaultMaxPrintRows
}

// Environment keys read by LoadConfig, relative to the prefix.
const (
	keyThreads        = "threads"
	keyMemoryLimit    = "memory_limit"
	keyIPCCompression = "ipc_compression"
	keyMaxPlanBytes   = "max_plan_bytes"
	keyMaxPrintRows   = "max_print_rows"
	keyLogLevel       = "log_level"
	keyLogFormat      = "log_format"
)

// LoadConfig reads a Config from environment variables named
// <PREFIX>_THREADS, <PREFIX>_MEMORY_LIMIT, <PREFIX>_IPC_COMPRESSION,
// <PREFIX>_MAX_PLAN_BYTES, <PREFIX>_MAX_PRINT_ROWS, <PREFIX>_LOG_LEVEL and
// <PREFIX>_LOG_FORMAT ("text" or "json"). The logger writes to stderr.
func LoadConfig(prefix string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyLogFormat, observability.FormatText)

	var cfg Config
	var err error
	if cfg.Threads, err = intSetting(v, keyThreads); err != nil {
		return Config{}, err
	}
	if cfg.MaxPrintRows, err = intSetting(v, keyMaxPrintRows); err != nil {
		return Config{}, err
	}
	if s := v.GetString(keyMaxPlanBytes); s != "" {
		if cfg.MaxPlanBytes, err = strconv.ParseUint(s, 10, 64); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, keyMaxPlanBytes, err)
		}
	}
	cfg.MemoryLimit = v.GetString(keyMemoryLimit)
	cfg.IPCCompression = strings.ToLower(v.GetString(keyIPCCompression))

	level, err := observability.ParseLevel(v.GetString(keyLogLevel))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, keyLogLevel, err)
	}
	cfg.LogLevel = &level
	cfg.Logger = observability.NewLogger(v.GetString(keyLogFormat), level, os.Stderr)

	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func intSetting(v *viper.Viper, key string) (int, error) {
	s := v.GetString(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return n, nil
}
