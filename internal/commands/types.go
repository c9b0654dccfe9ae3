package commands

import (
	"time"

	"github.com/muratoffalex/memebot/internal/telegram"
)

type Command interface {
	Name() string
	Aliases() []string
	// DescriptionKey is the localization id shown by /help.
	DescriptionKey() string
	Handle(update telegram.Update) error
	Execute(update telegram.Update) error
	GetQueueConfig() QueueConfig
}

type ThrottleConfig struct {
	Period      time.Duration
	Requests    int
	Concurrency int
}

type QueueConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	Throttle   ThrottleConfig
}
