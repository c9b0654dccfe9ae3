package help

import (
	"testing"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/knadh/koanf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/memebot/internal/app/di"
	"github.com/muratoffalex/memebot/internal/commands"
	"github.com/muratoffalex/memebot/internal/commands/start"
	"github.com/muratoffalex/memebot/internal/config"
	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/service"
	"github.com/muratoffalex/memebot/internal/telegram"
)

type registry []commands.Command

func (r *registry) Commands() []commands.Command { return *r }

func newContainer(t *testing.T) (*di.Container, *telegram.FakeClient) {
	t.Helper()
	localizer, err := service.NewLocalizer("en")
	require.NoError(t, err)
	tg := telegram.NewFakeClient()
	return &di.Container{
		BotClient: tg,
		Logger:    logger.NewTestLogger(),
		Cfg:       config.New(koanf.New(".")),
		Localizer: localizer,
	}, tg
}

func update(text string) telegram.Update {
	return telegram.Update{Message: &tgbotapi.Message{
		MessageID: 3,
		Chat:      tgbotapi.Chat{ID: 9},
		From:      &tgbotapi.User{ID: 1, FirstName: "Ana"},
		Text:      text,
	}}
}

func TestHelp_ListsRegisteredCommands(t *testing.T) {
	c, tg := newContainer(t)
	reg := &registry{}
	helpCmd := New(c, reg)
	*reg = append(*reg, start.New(c), helpCmd)

	require.NoError(t, helpCmd.Execute(update("/help")))

	text := tg.Sent()[0].(telegram.TextMessage).Text
	assert.Contains(t, text, "Available commands:")
	assert.Contains(t, text, "/start - greeting")
	assert.Contains(t, text, "/help - this help")
}

func TestStart_Greets(t *testing.T) {
	c, tg := newContainer(t)
	require.NoError(t, start.New(c).Execute(update("/start")))

	text := tg.Sent()[0].(telegram.TextMessage).Text
	assert.Contains(t, text, "Hi Ana!")
	assert.Contains(t, text, "@memebot")
}
