package random

import (
	"context"
	"strconv"
	"strings"

	"github.com/muratoffalex/memebot/internal/app/di"
	"github.com/muratoffalex/memebot/internal/commands/base"
	"github.com/muratoffalex/memebot/internal/telegram"
)

const (
	CommandName = "random"
	MaxCount    = 10
)

type Command struct {
	*base.Command
}

func New(di *di.Container) *Command {
	cmd := &Command{}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"r"}
}

func (c *Command) Execute(update telegram.Update) error {
	items := c.Engine.Random(ParseCount(update.Message.CommandArguments()))
	if len(items) == 0 {
		return c.ReplyText(update, c.L("random_empty", nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.GetQueueConfig().Timeout)
	defer cancel()
	return c.Responder.ReplyItems(ctx, update.Message.Chat.ID, 0, items)
}

// ParseCount reads the optional item count, clamped to [1, MaxCount].
func ParseCount(args string) int {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, MaxCount)
}
