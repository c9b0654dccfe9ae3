package verify

import (
	"context"
	"time"

	"github.com/muratoffalex/memebot/internal/app/di"
	"github.com/muratoffalex/memebot/internal/commands/base"
	"github.com/muratoffalex/memebot/internal/telegram"
)

const (
	CommandName   = "verify"
	reloadTimeout = 30 * time.Second
)

// Command reloads the meme table on demand and reports how many records
// were usable. Admin only.
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
	return []string{"reload"}
}

func (c *Command) Execute(update telegram.Update) error {
	if update.Message.From == nil || !c.Cfg.Telegram().IsAdmin(update.Message.From.ID) {
		return c.ReplyText(update, c.L("admin_only", nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	if err := c.Engine.Reload(ctx, c.Source); err != nil {
		return c.ReplyText(update, c.L("verify_failed", map[string]any{
			"Source": c.Source.Name(),
			"Error":  err.Error(),
		}))
	}

	idx := c.Engine.Index()
	return c.ReplyText(update, c.L("verify_result", map[string]any{
		"Source":   c.Source.Name(),
		"Triggers": idx.Len(),
		"Skipped":  idx.Skipped(),
	}))
}
