package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	GLOBAL_LANGUAGE              = "global.interface_language"
	TELEGRAM_TOKEN               = "telegram.token"
	TELEGRAM_ADMIN_ID            = "telegram.admin_id"
	TELEGRAM_ERROR_CHAT_ID       = "telegram.error_chat_id"
	TELEGRAM_ALLOWED_CHATS       = "telegram.allowed_chats"
	TELEGRAM_REPLY_RATE          = "telegram.reply_rate"
	TELEGRAM_REPLY_BURST         = "telegram.reply_burst"
	TELEGRAM_IGNORE_OLD_MESSAGES = "telegram.ignore_old_messages"
	MEMES_SOURCE                 = "memes.source"
	MEMES_XLSX_PATH              = "memes.xlsx_path"
	MEMES_SHEET                  = "memes.sheet"
	MEMES_TRIGGER_COLUMN         = "memes.trigger_column"
	MEMES_REFERENCE_COLUMN       = "memes.reference_column"
	MEMES_VIDEO_DIR              = "memes.video_dir"
	MEMES_WATCH                  = "memes.watch"
	MEMES_WATCH_DEBOUNCE         = "memes.watch_debounce"
	MEMES_INSULTS                = "memes.insults"
	MEMES_INLINE_CACHE_TIME      = "memes.inline_cache_time"
	MEMES_INLINE_MAX_RESULTS     = "memes.inline_max_results"
	DELIVERY_TIMEOUT             = "delivery.timeout"
	DELIVERY_SEND_RETRIES        = "delivery.send_retries"
	DATABASE_DSN                 = "database.dsn"
	LOGGING_LEVEL                = "logging.level"
	LOGGING_FORMAT               = "logging.format"
	LOGGING_WRITE_IN_FILE        = "logging.write_in_file"
	LOGGING_FILE_PATH            = "logging.file_path"
)

const (
	SourceXLSX   = "xlsx"
	SourceSQLite = "sqlite"
)

var defaultSQLiteParams = map[string]string{
	"_journal":      "WAL",
	"_busy_timeout": "10000",
	"_synchronous":  "NORMAL",
}

type Config struct {
	k *koanf.Koanf
}

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config file")
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	defaults := map[string]any{
		GLOBAL_LANGUAGE:              "es",
		TELEGRAM_TOKEN:               "",
		TELEGRAM_ADMIN_ID:            0,
		TELEGRAM_ERROR_CHAT_ID:       0,
		TELEGRAM_REPLY_RATE:          1.0,
		TELEGRAM_REPLY_BURST:         3,
		TELEGRAM_IGNORE_OLD_MESSAGES: true,
		MEMES_SOURCE:                 SourceXLSX,
		MEMES_XLSX_PATH:              "meme_bot_db.xlsx",
		MEMES_SHEET:                  "",
		MEMES_TRIGGER_COLUMN:         "Meme",
		MEMES_REFERENCE_COLUMN:       "StickerID",
		MEMES_VIDEO_DIR:              "videos",
		MEMES_WATCH:                  true,
		MEMES_WATCH_DEBOUNCE:         500 * time.Millisecond,
		MEMES_INSULTS: []string{
			"pinche bot",
			"bot culiao",
			"bot cdlbv",
			"bot conchatumadre",
			"bot crvrg",
		},
		MEMES_INLINE_CACHE_TIME:  300,
		MEMES_INLINE_MAX_RESULTS: 50,
		DELIVERY_TIMEOUT:         2 * time.Minute,
		DELIVERY_SEND_RETRIES:    3,
		DATABASE_DSN:             "memebot.db",
		LOGGING_LEVEL:            "info",
		LOGGING_FORMAT:           "text",
		LOGGING_WRITE_IN_FILE:    false,
		LOGGING_FILE_PATH:        "memebot.log",

		"commands.start.enabled":  true,
		"commands.help.enabled":   true,
		"commands.list.enabled":   true,
		"commands.random.enabled": true,
		"commands.verify.enabled": true,
	}
	k.Load(confmap.Provider(defaults, "."), nil)

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config %s: %v", path, err)
			}
			break
		}
	}

	k.Load(env.Provider("MEMEBOT_", ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, "MEMEBOT_")),
			"_", ".", 1,
		)
	}), nil)

	if k.String(TELEGRAM_TOKEN) == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	cfg := &Config{k: k}
	if err := cfg.Memes().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New wraps an already populated koanf instance. Used by tests.
func New(k *koanf.Koanf) *Config {
	return &Config{k: k}
}

func (c *Config) GetCommandConfig(name string) *CommandConfig {
	key := func(suffix string) string {
		return fmt.Sprintf("commands.%s.%s", name, suffix)
	}
	concurrency := c.k.Int(key("queue.throttle.concurrency"))
	if concurrency == 0 {
		concurrency = 1
	}
	requests := c.k.Int(key("queue.throttle.requests"))
	if requests == 0 {
		requests = 1
	}
	period := c.k.Duration(key("queue.throttle.period"))
	if period == 0 {
		period = 10 * time.Second
	}
	timeout := c.k.Duration(key("queue.timeout"))
	if timeout == 0 {
		timeout = time.Minute
	}
	return &CommandConfig{
		Enabled: c.k.Bool(key("enabled")),
		Queue: QueueOptions{
			Enabled:    c.k.Bool(key("queue.enabled")),
			MaxRetries: c.k.Int(key("queue.max_retries")),
			RetryDelay: c.k.Duration(key("queue.retry_delay")),
			Timeout:    timeout,
			Throttle: ThrottleOptions{
				Period:      period,
				Requests:    requests,
				Concurrency: concurrency,
			},
		},
	}
}

func (c *Config) Telegram() TelegramConfig {
	var cfg TelegramConfig
	if err := c.k.Unmarshal("telegram", &cfg); err != nil {
		log.Fatalf("telegramConfig unmarshal error: %v", err)
		return TelegramConfig{}
	}
	return cfg
}

func (c *Config) Memes() MemesConfig {
	return MemesConfig{
		Source:           c.k.String(MEMES_SOURCE),
		XLSXPath:         c.k.String(MEMES_XLSX_PATH),
		Sheet:            c.k.String(MEMES_SHEET),
		TriggerColumn:    c.k.String(MEMES_TRIGGER_COLUMN),
		ReferenceColumn:  c.k.String(MEMES_REFERENCE_COLUMN),
		VideoDir:         c.k.String(MEMES_VIDEO_DIR),
		Watch:            c.k.Bool(MEMES_WATCH),
		WatchDebounce:    c.k.Duration(MEMES_WATCH_DEBOUNCE),
		Insults:          c.k.Strings(MEMES_INSULTS),
		InlineCacheTime:  c.k.Int(MEMES_INLINE_CACHE_TIME),
		InlineMaxResults: c.k.Int(MEMES_INLINE_MAX_RESULTS),
	}
}

func (c *Config) Delivery() DeliveryConfig {
	return DeliveryConfig{
		Timeout:     c.k.Duration(DELIVERY_TIMEOUT),
		SendRetries: c.k.Int(DELIVERY_SEND_RETRIES),
	}
}

func (c *Config) Log() LoggingConfig {
	return LoggingConfig{
		LogLevel:    c.k.String(LOGGING_LEVEL),
		Format:      c.k.String(LOGGING_FORMAT),
		WriteInFile: c.k.Bool(LOGGING_WRITE_IN_FILE),
		FilePath:    c.k.String(LOGGING_FILE_PATH),
	}
}

func (c *Config) Global() GlobalConfig {
	return GlobalConfig{
		InterfaceLanguage: c.k.String(GLOBAL_LANGUAGE),
	}
}

func (c *Config) GetDatabaseDSN() string {
	dsn := c.k.String(DATABASE_DSN)
	parts := strings.Split(dsn, "?")
	path := parts[0]

	params := make(map[string]string)
	if len(parts) > 1 {
		for param := range strings.SplitSeq(parts[1], "&") {
			if kv := strings.Split(param, "="); len(kv) == 2 {
				params[kv[0]] = kv[1]
			}
		}
	}

	for k, v := range defaultSQLiteParams {
		if _, exists := params[k]; !exists {
			params[k] = v
		}
	}

	var queryParams []string
	for k, v := range params {
		queryParams = append(queryParams, k+"="+v)
	}
	sort.Strings(queryParams)

	if len(queryParams) > 0 {
		return path + "?" + strings.Join(queryParams, "&")
	}
	return path
}

func getConfigPaths() []string {
	if configPath != "" {
		return []string{configPath}
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, _ := os.UserHomeDir()
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		"memebot.toml",
		"config.toml",
		filepath.Join(xdgConfig, "memebot", "config.toml"),
		"/etc/memebot/config.toml",
	}
}
