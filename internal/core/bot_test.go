package core

import (
	"context"
	"errors"
	"maps"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/memebot/internal/commands"
	"github.com/muratoffalex/memebot/internal/config"
	"github.com/muratoffalex/memebot/internal/delivery"
	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/matcher"
	"github.com/muratoffalex/memebot/internal/media"
	"github.com/muratoffalex/memebot/internal/responder"
	"github.com/muratoffalex/memebot/internal/service"
	"github.com/muratoffalex/memebot/internal/telegram"
	"github.com/muratoffalex/memebot/internal/trigger"
)

const (
	adminID     int64 = 42
	errorChatID int64 = -999
)

type noopScheduler struct {
	calls atomic.Int32
}

func (s *noopScheduler) ScheduleDeferred(int64, int, media.Reference) ([]delivery.Handle, error) {
	s.calls.Add(1)
	return nil, nil
}

type fakeCommand struct {
	name    string
	aliases []string
	calls   atomic.Int32
	err     error
}

func (c *fakeCommand) Name() string { return c.name }
func (c *fakeCommand) Aliases() []string { return c.aliases }
func (c *fakeCommand) DescriptionKey() string { return "cmd_" + c.name }
func (c *fakeCommand) Execute(telegram.Update) error { return nil }
func (c *fakeCommand) GetQueueConfig() commands.QueueConfig { return commands.QueueConfig{} }
func (c *fakeCommand) Handle(telegram.Update) error {
	c.calls.Add(1)
	return c.err
}

type harness struct {
	bot   *Bot
	tg    *telegram.FakeClient
	sched *noopScheduler
}

func newHarness(t *testing.T, overrides map[string]any) *harness {
	t.Helper()

	values := map[string]any{
		config.TELEGRAM_TOKEN:               "123:abc",
		config.TELEGRAM_ADMIN_ID:            adminID,
		config.TELEGRAM_ERROR_CHAT_ID:       errorChatID,
		config.TELEGRAM_REPLY_RATE:          0,
		config.TELEGRAM_IGNORE_OLD_MESSAGES: true,
		config.MEMES_INSULTS:                []string{"pinche bot"},
	}
	maps.Copy(values, overrides)
	k := koanf.New(".")
	require.NoError(t, k.Load(confmap.Provider(values, "."), nil))
	cfg := config.New(k)

	log := logger.NewTestLogger()
	engine := matcher.New(log)
	engine.Swap(trigger.Build([]trigger.Record{
		{Triggers: []string{"buenos días"}, MediaRef: "AAA"},
		{Triggers: []string{"adios"}, MediaRef: "BBB|time:2|CCC"},
	}, log))

	localizer, err := service.NewLocalizer("en")
	require.NoError(t, err)

	tg := telegram.NewFakeClient()
	sched := &noopScheduler{}
	resp := responder.New(tg, engine, responder.NewSender(tg, "", 0, log), sched, 0, 0, log)

	bot, err := NewBot(tg, nil, log, cfg, localizer, engine, resp)
	require.NoError(t, err)
	return &harness{bot: bot, tg: tg, sched: sched}
}

func (h *harness) handle(update telegram.Update) {
	h.bot.HandleUpdate(context.Background(), update)
	h.bot.Wait()
}

func textUpdate(chatID, userID int64, messageID int, text string) telegram.Update {
	return telegram.Update{Message: &tgbotapi.Message{
		MessageID: messageID,
		Date:      int(time.Now().Unix()) + 1,
		Chat:      tgbotapi.Chat{ID: chatID, Type: "group"},
		From:      &tgbotapi.User{ID: userID, FirstName: "Ana"},
		Text:      text,
	}}
}

func commandUpdate(chatID int64, text string, nameLen int) telegram.Update {
	u := textUpdate(chatID, 7, 1, text)
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: nameLen}}
	return u
}

func TestBot_RepliesToTrigger(t *testing.T) {
	h := newHarness(t, nil)
	h.handle(textUpdate(10, 7, 55, "Buenos Dias"))

	assert.Equal(t, []telegram.MessageConfig{telegram.NewStickerMessage(10, "AAA", 55)}, h.tg.Sent())
	assert.Equal(t, int32(1), h.sched.calls.Load())
}

func TestBot_ReplyTargetsRepliedMessage(t *testing.T) {
	h := newHarness(t, nil)
	u := textUpdate(10, 7, 55, "adios")
	u.Message.ReplyToMessage = &tgbotapi.Message{MessageID: 30}
	h.handle(u)

	assert.Equal(t, []telegram.MessageConfig{telegram.NewStickerMessage(10, "BBB", 30)}, h.tg.Sent())
}

func TestBot_NoMatchIsSilent(t *testing.T) {
	h := newHarness(t, nil)
	h.handle(textUpdate(10, 7, 55, "hola"))
	assert.Empty(t, h.tg.Sent())
	assert.Zero(t, h.sched.calls.Load())
}

func TestBot_IgnoresOldMessages(t *testing.T) {
	h := newHarness(t, nil)
	u := textUpdate(10, 7, 55, "buenos dias")
	u.Message.Date = int(time.Now().Add(-time.Hour).Unix())
	h.handle(u)
	assert.Empty(t, h.tg.Sent())
}

func TestBot_AllowedChats(t *testing.T) {
	h := newHarness(t, map[string]any{config.TELEGRAM_ALLOWED_CHATS: []int64{10}})

	h.handle(textUpdate(11, 7, 1, "buenos dias"))
	assert.Empty(t, h.tg.Sent())

	h.handle(textUpdate(11, adminID, 2, "buenos dias"))
	assert.Len(t, h.tg.Sent(), 1, "admin bypasses the allow list")

	h.handle(textUpdate(10, 7, 3, "buenos dias"))
	assert.Len(t, h.tg.Sent(), 2)
}

func TestBot_InsultGetsRandomMeme(t *testing.T) {
	h := newHarness(t, nil)
	h.handle(textUpdate(10, 7, 55, "Pinche Bot"))

	sent := h.tg.Sent()
	require.Len(t, sent, 1)
	sticker, ok := sent[0].(telegram.StickerMessage)
	require.True(t, ok)
	assert.Contains(t, []string{"AAA", "BBB", "CCC"}, sticker.StickerID)
	assert.Zero(t, sticker.ReplyTo)
}

func TestBot_AdminStickerEcho(t *testing.T) {
	h := newHarness(t, nil)
	u := textUpdate(adminID, adminID, 5, "")
	u.Message.Chat.Type = telegram.ChatTypePrivate
	u.Message.Sticker = &tgbotapi.Sticker{FileID: "STK-1"}
	h.handle(u)

	sent := h.tg.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, telegram.NewMessage(adminID, "Sticker file id: STK-1", 5), sent[0])

	other := textUpdate(7, 7, 6, "")
	other.Message.Chat.Type = telegram.ChatTypePrivate
	other.Message.Sticker = &tgbotapi.Sticker{FileID: "STK-2"}
	h.handle(other)
	assert.Len(t, h.tg.Sent(), 1)
}

func TestBot_InlineQuery(t *testing.T) {
	h := newHarness(t, nil)
	h.handle(telegram.Update{InlineQuery: &tgbotapi.InlineQuery{ID: "q", Query: "adi"}})

	requests := h.tg.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, []string{"BBB", "CCC"}, requests[0].(telegram.InlineAnswer).StickerIDs)
}

func TestBot_Commands(t *testing.T) {
	h := newHarness(t, nil)
	random := &fakeCommand{name: "random", aliases: []string{"r"}}
	h.bot.RegisterCommand(random)
	h.bot.RegisterCommand(&fakeCommand{name: "list"})

	h.handle(commandUpdate(10, "/random", 7))
	h.handle(commandUpdate(10, "/r@memebot", 10))
	h.handle(commandUpdate(10, "/random@otherbot", 16))
	h.handle(commandUpdate(10, "/unknown", 8))

	assert.Equal(t, int32(2), random.calls.Load())
	require.Len(t, h.bot.Commands(), 2)
	assert.Equal(t, "random", h.bot.Commands()[0].Name())
}

func TestBot_CommandErrorIsReported(t *testing.T) {
	h := newHarness(t, nil)
	h.bot.RegisterCommand(&fakeCommand{name: "random", err: errors.New("boom")})

	h.handle(commandUpdate(10, "/random", 7))

	sent := h.tg.Sent()
	require.Len(t, sent, 1)
	report := sent[0].(telegram.TextMessage)
	assert.Equal(t, errorChatID, report.ChatID)
	assert.Contains(t, report.Text, "boom")
}

func TestBot_Throttle(t *testing.T) {
	h := newHarness(t, map[string]any{
		config.TELEGRAM_REPLY_RATE:  0.001,
		config.TELEGRAM_REPLY_BURST: 1,
	})

	h.handle(textUpdate(10, 7, 1, "buenos dias"))
	h.handle(textUpdate(10, 7, 2, "buenos dias"))
	h.handle(textUpdate(20, 7, 3, "buenos dias"))

	assert.Len(t, h.tg.Sent(), 2, "second reply in chat 10 is dropped")
}

func TestBot_IgnoresBots(t *testing.T) {
	h := newHarness(t, nil)
	u := textUpdate(10, 7, 1, "buenos dias")
	u.Message.From.IsBot = true
	h.handle(u)
	assert.Empty(t, h.tg.Sent())
}

func TestBot_StartStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.bot.Start(ctx) }()

	h.tg.Updates <- textUpdate(10, 7, 1, "buenos dias")
	assert.Eventually(t, func() bool { return len(h.tg.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop")
	}
}
