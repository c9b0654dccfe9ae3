package list

import (
	"strings"
	"testing"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/knadh/koanf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/memebot/internal/app/di"
	"github.com/muratoffalex/memebot/internal/config"
	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/matcher"
	"github.com/muratoffalex/memebot/internal/service"
	"github.com/muratoffalex/memebot/internal/telegram"
	"github.com/muratoffalex/memebot/internal/trigger"
)

func TestChunk(t *testing.T) {
	chunks := Chunk("Phrases:", []string{"hola", "adios"}, 100)
	assert.Equal(t, []string{"Phrases:\n1. hola\n2. adios"}, chunks)

	items := make([]string, 30)
	for i := range items {
		items[i] = strings.Repeat("x", 20)
	}
	chunks = Chunk("h", items, 100)
	require.Greater(t, len(chunks), 1)
	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
		total += strings.Count(c, ". ")
	}
	assert.Equal(t, 30, total)
	assert.Contains(t, chunks[len(chunks)-1], "30. ")
}

func TestChunk_LongLine(t *testing.T) {
	long := strings.Repeat("y", 50)
	chunks := Chunk("", []string{long}, 10)
	assert.Equal(t, []string{"1. " + long}, chunks)
}

func newCommand(t *testing.T, records ...trigger.Record) (*Command, *telegram.FakeClient) {
	t.Helper()
	log := logger.NewTestLogger()
	engine := matcher.New(log)
	engine.Swap(trigger.Build(records, log))
	localizer, err := service.NewLocalizer("en")
	require.NoError(t, err)

	tg := telegram.NewFakeClient()
	return New(&di.Container{
		BotClient: tg,
		Logger:    log,
		Cfg:       config.New(koanf.New(".")),
		Localizer: localizer,
		Engine:    engine,
	}), tg
}

func update() telegram.Update {
	return telegram.Update{Message: &tgbotapi.Message{
		MessageID: 3,
		Chat:      tgbotapi.Chat{ID: 9},
		From:      &tgbotapi.User{ID: 1},
		Text:      "/list",
	}}
}

func TestExecute(t *testing.T) {
	cmd, tg := newCommand(t,
		trigger.Record{Triggers: []string{"Hola|Buenas"}, MediaRef: "AAA"},
		trigger.Record{Triggers: []string{"secreto"}, MediaRef: "*BBB"},
		trigger.Record{Triggers: []string{" ¿Qué pasó? "}, MediaRef: "CCC"},
	)
	require.NoError(t, cmd.Execute(update()))

	sent := tg.Sent()
	require.Len(t, sent, 1)
	msg := sent[0].(telegram.TextMessage)
	assert.Equal(t, "I know 3 phrases:\n1. Hola\n2. Buenas\n3. ¿Qué pasó?", msg.Text)
	assert.Equal(t, 3, msg.ReplyTo)
}

func TestExecute_Empty(t *testing.T) {
	cmd, tg := newCommand(t)
	require.NoError(t, cmd.Execute(update()))
	assert.Equal(t, "No memes loaded yet.", tg.Sent()[0].(telegram.TextMessage).Text)
}
