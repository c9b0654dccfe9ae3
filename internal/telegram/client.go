package telegram

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"github.com/muratoffalex/memebot/internal/logger"
)

var retryAfterRe = regexp.MustCompile(`retry after (\d+)`)

type BotClient struct {
	bot    *tgbotapi.BotAPI
	logger logger.Logger
	sleep  func(time.Duration)
}

func NewBotClient(bot *tgbotapi.BotAPI, log logger.Logger) Client {
	return &BotClient{
		bot:    bot,
		logger: log,
		sleep:  time.Sleep,
	}
}

func (c *BotClient) Send(msg MessageConfig) (*Message, error) {
	sentMsg, err := c.bot.Send(msg.ToChattable())
	if err != nil {
		return nil, err
	}
	return AdaptMessage(&sentMsg), nil
}

// SendWithRetry retries only when Telegram answers with a flood wait.
func (c *BotClient) SendWithRetry(msg MessageConfig, maxRetryCount int) (*Message, error) {
	maxRetries := max(maxRetryCount, 1)

	for attempt := 1; ; attempt++ {
		sentMsg, err := c.bot.Send(msg.ToChattable())
		if err == nil {
			return AdaptMessage(&sentMsg), nil
		}

		retryAfter, limited := RetryAfter(err)
		if !limited {
			return nil, err
		}
		if attempt > maxRetries {
			c.logger.WithError(err).Error("Max retries reached for rate limited message")
			return nil, err
		}

		waitTime := time.Duration(retryAfter+2) * time.Second
		c.logger.WithFields(logger.Fields{
			"retry_after": retryAfter,
			"wait_time":   waitTime,
			"attempt":     attempt,
		}).Warn("Rate limit hit, waiting before retry")
		c.sleep(waitTime)
	}
}

func (c *BotClient) GetUpdatesChan(config UpdateConfig) <-chan tgbotapi.Update {
	return c.bot.GetUpdatesChan(tgbotapi.UpdateConfig{
		Offset:  config.Offset,
		Limit:   config.Limit,
		Timeout: config.Timeout,
	})
}

func (c *BotClient) StopReceivingUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *BotClient) Request(message MessageConfig) (*tgbotapi.APIResponse, error) {
	return c.bot.Request(message.ToChattable())
}

func (c *BotClient) NewUpdate(offset, timeout, limit int) UpdateConfig {
	return UpdateConfig{
		Offset:  offset,
		Limit:   limit,
		Timeout: timeout,
	}
}

func (c *BotClient) Self() User {
	return adaptUser(&c.bot.Self)
}

// RetryAfter extracts the flood wait from a Telegram error.
func RetryAfter(err error) (int, bool) {
	if err == nil || !strings.Contains(err.Error(), "Too Many Requests") {
		return 0, false
	}
	matches := retryAfterRe.FindStringSubmatch(err.Error())
	if len(matches) > 1 {
		retryAfter, _ := strconv.Atoi(matches[1])
		return retryAfter, true
	}
	return 0, true
}

func AdaptMessage(msg *tgbotapi.Message) *Message {
	if msg == nil {
		return nil
	}

	m := &Message{
		MessageID: msg.MessageID,
		Chat:      adaptChat(&msg.Chat),
		Text:      msg.Text,
		From:      adaptUser(msg.From),
		ReplyTo:   AdaptMessage(msg.ReplyToMessage),
		Command:   msg.Command(),
		Date:      msg.Date,
	}
	if msg.Sticker != nil {
		m.StickerFileID = msg.Sticker.FileID
	}
	return m
}

func adaptUser(user *tgbotapi.User) User {
	if user == nil {
		return User{}
	}
	return User{
		ID:        int64(user.ID),
		FirstName: user.FirstName,
		UserName:  user.UserName,
		IsBot:     user.IsBot,
	}
}

func adaptChat(chat *tgbotapi.Chat) Chat {
	if chat == nil {
		return Chat{}
	}
	return Chat{
		ID:   chat.ID,
		Type: chat.Type,
	}
}
