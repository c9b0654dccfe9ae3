package core

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/muratoffalex/memebot/internal/commands"
	"github.com/muratoffalex/memebot/internal/config"
	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/matcher"
	"github.com/muratoffalex/memebot/internal/media"
	"github.com/muratoffalex/memebot/internal/queue"
	"github.com/muratoffalex/memebot/internal/responder"
	"github.com/muratoffalex/memebot/internal/service"
	"github.com/muratoffalex/memebot/internal/telegram"
	"github.com/muratoffalex/memebot/internal/text"
)

const replyTimeout = 2 * time.Minute

type Bot struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	order     []string
	logger    logger.Logger
	queue     *queue.Queue
	tg        telegram.Client
	cfg       *config.Config
	localizer *service.Localizer
	engine    *matcher.Engine
	responder *responder.Responder
	insults   map[string]struct{}

	limitersMu sync.Mutex
	limiters   map[int64]*rate.Limiter

	startedAt time.Time
	inflight  sync.WaitGroup
}

func NewBot(
	tg telegram.Client,
	queue *queue.Queue,
	logger logger.Logger,
	cfg *config.Config,
	localizer *service.Localizer,
	engine *matcher.Engine,
	responder *responder.Responder,
) (*Bot, error) {
	insults := make(map[string]struct{})
	for _, phrase := range cfg.Memes().Insults {
		if n := text.Key(phrase); n != "" {
			insults[n] = struct{}{}
		}
	}

	return &Bot{
		commands:  make(map[string]commands.Command),
		tg:        tg,
		queue:     queue,
		cfg:       cfg,
		logger:    logger,
		localizer: localizer,
		engine:    engine,
		responder: responder,
		insults:   insults,
		limiters:  make(map[int64]*rate.Limiter),
		startedAt: time.Now(),
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	if b.queue != nil {
		b.queue.Start(ctx, b.queuedCommands())
	}

	updates := b.tg.GetUpdatesChan(b.tg.NewUpdate(0, 60, 0))
	defer b.tg.StopReceivingUpdates()

	b.logger.WithField("commands", len(b.Commands())).Info("Bot started")

	for {
		select {
		case <-ctx.Done():
			b.inflight.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.inflight.Wait()
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// Wait blocks until every handler started by HandleUpdate has returned.
func (b *Bot) Wait() {
	b.inflight.Wait()
}

// HandleUpdate dispatches one update. Slow work runs in its own goroutine.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	b.logger.WithField("update_id", update.UpdateID).Trace("Received update")

	if query := update.InlineQuery; query != nil {
		b.spawn(func() {
			if err := b.responder.AnswerInline(query); err != nil {
				b.logger.WithError(err).WithField("query", query.Query).Error("Failed to answer inline query")
			}
		})
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	log := b.logger.WithFields(logger.Fields{
		"chat_id":    msg.Chat.ID,
		"message_id": msg.MessageID,
		"user_id":    msg.From.ID,
	})

	tgCfg := b.cfg.Telegram()
	if tgCfg.IgnoreOldMessages && int64(msg.Date) < b.startedAt.Unix() {
		log.Debug("Skipping message sent before start")
		return
	}

	if !tgCfg.IsChatAllowed(msg.Chat.ID) && !tgCfg.IsAdmin(msg.From.ID) {
		log.Warn("Message from a chat that is not allowed")
		return
	}

	if msg.From.IsBot {
		return
	}

	if msg.Sticker != nil {
		if msg.Chat.Type == telegram.ChatTypePrivate && tgCfg.IsAdmin(msg.From.ID) {
			b.spawn(func() {
				reply := telegram.NewMessage(msg.Chat.ID, b.localizer.Localize("sticker_file_id", map[string]any{
					"FileID": msg.Sticker.FileID,
				}), msg.MessageID)
				if _, err := b.tg.Send(reply); err != nil {
					log.WithError(err).Error("Failed to echo sticker file id")
				}
			})
		}
		return
	}

	if isCommand(msg.Text) {
		b.handleCommand(update, log)
		return
	}

	if msg.Text == "" {
		return
	}

	b.handleText(ctx, msg, log)
}

func (b *Bot) handleCommand(update telegram.Update, log logger.Logger) {
	msg := update.Message
	parts := strings.Fields(msg.Text)
	if len(parts) == 0 {
		return
	}
	cmdParts := strings.Split(strings.TrimPrefix(parts[0], "/"), "@")
	name := strings.ToLower(cmdParts[0])
	if len(cmdParts) > 1 && !strings.EqualFold(cmdParts[1], b.tg.Self().UserName) {
		return // addressed to another bot
	}

	cmd := b.findCommand(name)
	if cmd == nil {
		return
	}

	log.WithFields(logger.Fields{
		"command": name,
		"args":    msg.CommandArguments(),
	}).Info("Handling command")

	b.spawn(func() {
		if err := cmd.Handle(update); err != nil {
			log.WithError(err).WithField("command", name).Error("Failed to handle command")
			b.reportError(err, msg.Chat.ID, msg.MessageID)
		}
	})
}

func (b *Bot) handleText(ctx context.Context, msg *telegram.MessageOriginal, log logger.Logger) {
	var (
		items   media.Reference
		replyTo int
	)

	if ref, ok := b.engine.Resolve(msg.Text); ok {
		items = ref
		replyTo = replyTarget(msg)
	} else if b.isInsult(msg.Text) {
		items = media.Reference(b.engine.Random(1))
	}
	if len(items) == 0 {
		return
	}

	if !b.allow(msg.Chat.ID) {
		log.Debug("Reply throttled")
		return
	}

	log.WithField("reference", media.Encode(items)).Debug("Answering with meme")
	b.spawn(func() {
		replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
		defer cancel()
		if err := b.responder.Reply(replyCtx, msg.Chat.ID, replyTo, items); err != nil {
			log.WithError(err).Error("Failed to answer meme")
			b.reportError(err, msg.Chat.ID, msg.MessageID)
		}
	})
}

// replyTarget is the replied-to message when the trigger is itself a reply.
func replyTarget(msg *telegram.MessageOriginal) int {
	if msg.ReplyToMessage != nil {
		return msg.ReplyToMessage.MessageID
	}
	return msg.MessageID
}

func (b *Bot) isInsult(s string) bool {
	_, ok := b.insults[text.Key(s)]
	return ok
}

// allow applies the per-chat reply rate. A zero rate disables throttling.
func (b *Bot) allow(chatID int64) bool {
	tgCfg := b.cfg.Telegram()
	if tgCfg.ReplyRate <= 0 {
		return true
	}

	b.limitersMu.Lock()
	limiter, ok := b.limiters[chatID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(tgCfg.ReplyRate), max(tgCfg.ReplyBurst, 1))
		b.limiters[chatID] = limiter
	}
	b.limitersMu.Unlock()

	return limiter.Allow()
}

func (b *Bot) spawn(fn func()) {
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error(fmt.Sprintf("recovered from panic: %v", r))
			}
		}()
		fn()
	}()
}

func (b *Bot) RegisterCommand(cmd commands.Command) {
	if cmd == nil {
		b.logger.Error("Attempting to register nil command")
		return
	}

	name := cmd.Name()
	if name == "" {
		b.logger.Error("Attempting to register command with empty name")
		return
	}

	b.logger.WithFields(logger.Fields{
		"command": name,
	}).Debug("Registering command")

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.commands[name]; !exists {
		b.order = append(b.order, name)
	}
	b.commands[name] = cmd
}

// Commands returns the registered commands in registration order.
func (b *Bot) Commands() []commands.Command {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]commands.Command, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.commands[name])
	}
	return out
}

func (b *Bot) findCommand(name string) commands.Command {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if cmd, ok := b.commands[name]; ok {
		return cmd
	}
	for _, cmd := range b.commands {
		if slices.Contains(cmd.Aliases(), name) {
			return cmd
		}
	}
	return nil
}

func (b *Bot) queuedCommands() []commands.Command {
	var out []commands.Command
	for _, cmd := range b.Commands() {
		if b.cfg.GetCommandConfig(cmd.Name()).Queue.Enabled {
			out = append(out, cmd)
		}
	}
	return out
}

func isCommand(commandText string) bool {
	return strings.HasPrefix(commandText, "/")
}

// reportError forwards handler failures to the developer chat, if one is
// configured. Users never see them.
func (b *Bot) reportError(err error, chatID int64, messageID int) {
	errorChatID := b.cfg.Telegram().ErrorChatID
	if errorChatID == 0 {
		return
	}

	report := telegram.NewMessage(
		errorChatID,
		fmt.Sprintf("%s: %v\nchat: %d\nmessage: %d", b.localizer.Localize("error", nil), err, chatID, messageID),
		0,
	)
	if _, sendErr := b.tg.Send(report); sendErr != nil {
		b.logger.WithError(sendErr).Error("Failed to send error report")
	}
}
