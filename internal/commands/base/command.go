package base

import (
	"github.com/muratoffalex/memebot/internal/app/di"
	"github.com/muratoffalex/memebot/internal/commands"
	"github.com/muratoffalex/memebot/internal/config"
	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/matcher"
	"github.com/muratoffalex/memebot/internal/queue"
	"github.com/muratoffalex/memebot/internal/responder"
	"github.com/muratoffalex/memebot/internal/service"
	"github.com/muratoffalex/memebot/internal/source"
	"github.com/muratoffalex/memebot/internal/telegram"
)

type Command struct {
	command   commands.Command
	Tg        telegram.Client
	Logger    logger.Logger
	Cfg       *config.Config
	Queue     *queue.Queue
	Localizer *service.Localizer
	Engine    *matcher.Engine
	Source    source.Source
	Responder *responder.Responder
}

func NewCommand(cmd commands.Command, di *di.Container) *Command {
	return &Command{
		command:   cmd,
		Tg:        di.BotClient,
		Logger:    di.Logger.WithField("command", cmd.Name()),
		Cfg:       di.Cfg,
		Queue:     di.Queue,
		Localizer: di.Localizer,
		Engine:    di.Engine,
		Source:    di.Source,
		Responder: di.Responder,
	}
}

func (c *Command) Name() string {
	return ""
}

func (c *Command) Aliases() []string {
	return []string{}
}

func (c *Command) DescriptionKey() string {
	return "cmd_" + c.command.Name()
}

// Handle runs the command inline or hands it to the task queue when the
// command has queueing enabled.
func (c *Command) Handle(update telegram.Update) error {
	cfg := c.Cfg.GetCommandConfig(c.command.Name())
	if cfg.Queue.Enabled && c.Queue != nil {
		return c.Queue.Add(c.command, update)
	}
	return c.command.Execute(update)
}

func (c *Command) GetQueueConfig() commands.QueueConfig {
	cfg := c.Cfg.GetCommandConfig(c.command.Name())
	return commands.QueueConfig{
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		Timeout:    cfg.Queue.Timeout,
		Throttle: commands.ThrottleConfig{
			Concurrency: cfg.Queue.Throttle.Concurrency,
			Period:      cfg.Queue.Throttle.Period,
			Requests:    cfg.Queue.Throttle.Requests,
		},
	}
}

func (c *Command) Execute(update telegram.Update) error {
	return nil
}

func (c *Command) L(messageID string, data map[string]any) string {
	return c.Localizer.Localize(messageID, data)
}

// ReplyText answers the command message with plain text.
func (c *Command) ReplyText(update telegram.Update, text string) error {
	msg := telegram.NewMessage(update.Message.Chat.ID, text, update.Message.MessageID)
	msg.LinkPreviewDisabled = true
	if _, err := c.Tg.Send(msg); err != nil {
		c.Logger.WithError(err).Error("Failed to send message")
		return err
	}
	return nil
}
