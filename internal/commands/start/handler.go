package start

import (
	"github.com/muratoffalex/memebot/internal/app/di"
	"github.com/muratoffalex/memebot/internal/commands/base"
	"github.com/muratoffalex/memebot/internal/telegram"
)

const CommandName = "start"

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

func (c *Command) Execute(update telegram.Update) error {
	name := ""
	if update.Message.From != nil {
		name = update.Message.From.FirstName
	}
	return c.ReplyText(update, c.L("start_greeting", map[string]any{
		"Name": name,
		"Bot":  c.Tg.Self().UserName,
	}))
}
