package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type GlobalConfig struct {
	InterfaceLanguage string `koanf:"interface_language"`
}

type CommandConfig struct {
	Enabled bool         `koanf:"enabled"`
	Queue   QueueOptions `koanf:"queue"`
}

// QueueOptions routes a command through the task queue instead of running
// it inline. Throttle limits how often queued tasks of one command start.
type QueueOptions struct {
	Enabled    bool          `koanf:"enabled"`
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
	Timeout    time.Duration `koanf:"timeout"`
	Throttle   ThrottleOptions
}

type ThrottleOptions struct {
	Period      time.Duration `koanf:"period"`
	Requests    int           `koanf:"requests"`
	Concurrency int           `koanf:"concurrency"`
}

type LoggingConfig struct {
	LogLevel    string `koanf:"level"`
	Format      string `koanf:"format"`
	WriteInFile bool   `koanf:"write_in_file"`
	FilePath    string `koanf:"file_path"`
}

func (c LoggingConfig) Level() string {
	return strings.ToLower(c.LogLevel)
}

func (c LoggingConfig) IsDebug() bool {
	return c.Level() == "debug" || c.Level() == "trace"
}

func (c LoggingConfig) IsJSON() bool {
	return strings.EqualFold(c.Format, "json")
}

type TelegramConfig struct {
	Token             string  `koanf:"token"`
	AdminID           int64   `koanf:"admin_id"`
	ErrorChatID       int64   `koanf:"error_chat_id"`
	AllowedChats      []int64 `koanf:"allowed_chats"`
	ReplyRate         float64 `koanf:"reply_rate"`
	ReplyBurst        int     `koanf:"reply_burst"`
	IgnoreOldMessages bool    `koanf:"ignore_old_messages"`
}

// IsChatAllowed allows every chat when no allow list is configured.
func (c TelegramConfig) IsChatAllowed(chatID int64) bool {
	if len(c.AllowedChats) == 0 {
		return true
	}
	return slices.Contains(c.AllowedChats, chatID)
}

func (c TelegramConfig) IsAdmin(userID int64) bool {
	return c.AdminID != 0 && c.AdminID == userID
}

type MemesConfig struct {
	Source           string        `koanf:"source"`
	XLSXPath         string        `koanf:"xlsx_path"`
	Sheet            string        `koanf:"sheet"`
	TriggerColumn    string        `koanf:"trigger_column"`
	ReferenceColumn  string        `koanf:"reference_column"`
	VideoDir         string        `koanf:"video_dir"`
	Watch            bool          `koanf:"watch"`
	WatchDebounce    time.Duration `koanf:"watch_debounce"`
	Insults          []string      `koanf:"insults"`
	InlineCacheTime  int           `koanf:"inline_cache_time"`
	InlineMaxResults int           `koanf:"inline_max_results"`
}

func (c MemesConfig) Validate() error {
	switch c.Source {
	case SourceXLSX:
		if c.XLSXPath == "" {
			return fmt.Errorf("memes.xlsx_path is required for the %s source", SourceXLSX)
		}
	case SourceSQLite:
	default:
		return fmt.Errorf("unknown memes.source %q", c.Source)
	}
	return nil
}

type DeliveryConfig struct {
	Timeout     time.Duration `koanf:"timeout"`
	SendRetries int           `koanf:"send_retries"`
}
