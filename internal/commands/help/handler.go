package help

import (
	"fmt"
	"strings"

	"github.com/muratoffalex/memebot/internal/app/di"
	"github.com/muratoffalex/memebot/internal/commands"
	"github.com/muratoffalex/memebot/internal/commands/base"
	"github.com/muratoffalex/memebot/internal/telegram"
)

const CommandName = "help"

// Registry lists the registered commands.
type Registry interface {
	Commands() []commands.Command
}

type Command struct {
	*base.Command
	registry Registry
}

func New(di *di.Container, registry Registry) *Command {
	cmd := &Command{registry: registry}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"ayuda"}
}

func (c *Command) Execute(update telegram.Update) error {
	var sb strings.Builder
	sb.WriteString(c.L("help_header", nil))
	sb.WriteString("\n")
	for _, cmd := range c.registry.Commands() {
		fmt.Fprintf(&sb, "/%s - %s\n", cmd.Name(), c.L(cmd.DescriptionKey(), nil))
	}
	sb.WriteString("\n")
	sb.WriteString(c.L("help_footer", nil))
	return c.ReplyText(update, sb.String())
}
