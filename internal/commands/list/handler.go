package list

import (
	"fmt"
	"strings"

	"github.com/muratoffalex/memebot/internal/app/di"
	"github.com/muratoffalex/memebot/internal/commands/base"
	"github.com/muratoffalex/memebot/internal/telegram"
)

const (
	CommandName = "list"
	// MaxMessageLength is the Telegram limit for one text message.
	MaxMessageLength = 4096
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
	return []string{"memes"}
}

func (c *Command) Execute(update telegram.Update) error {
	triggers := c.Engine.Index().Phrases()
	if len(triggers) == 0 {
		return c.ReplyText(update, c.L("list_empty", nil))
	}

	header := c.Localizer.LocalizeCount("list_header", len(triggers), nil)
	for _, chunk := range Chunk(header, triggers, MaxMessageLength) {
		if err := c.ReplyText(update, chunk); err != nil {
			return err
		}
	}
	return nil
}

// Chunk renders a numbered list split into messages of at most limit bytes.
// A single line longer than limit gets a message of its own.
func Chunk(header string, items []string, limit int) []string {
	var chunks []string
	var sb strings.Builder
	sb.WriteString(header)

	for i, item := range items {
		line := fmt.Sprintf("%d. %s", i+1, item)
		if sb.Len() > 0 && sb.Len()+1+len(line) > limit {
			chunks = append(chunks, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(line)
	}
	if sb.Len() > 0 {
		chunks = append(chunks, sb.String())
	}
	return chunks
}
