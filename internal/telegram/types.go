package telegram

import (
	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/google/uuid"
)

const ChatTypePrivate = "private"

type (
	MessageOriginal = tgbotapi.Message
	Update          = tgbotapi.Update
	InlineQuery     = tgbotapi.InlineQuery
	Chattable       = tgbotapi.Chattable
	RequestFileData = tgbotapi.RequestFileData
	FileID          = tgbotapi.FileID
	FilePath        = tgbotapi.FilePath
)

type Message struct {
	MessageID     int
	Chat          Chat
	Text          string
	From          User
	ReplyTo       *Message
	Command       string
	StickerFileID string
	Date          int
}

type User struct {
	ID        int64
	FirstName string
	UserName  string
	IsBot     bool
}

type Chat struct {
	ID   int64
	Type string
}

func (c Chat) IsPrivate() bool {
	return c.Type == ChatTypePrivate
}

type MessageConfig interface {
	ToChattable() tgbotapi.Chattable
}

type TextMessage struct {
	ChatID              int64
	Text                string
	ReplyTo             int
	LinkPreviewDisabled bool
}

func NewMessage(chatID int64, text string, replyTo int) TextMessage {
	return TextMessage{
		ChatID:  chatID,
		Text:    text,
		ReplyTo: replyTo,
	}
}

func (m TextMessage) ToChattable() tgbotapi.Chattable {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyParameters.MessageID = m.ReplyTo
	msg.LinkPreviewOptions.IsDisabled = m.LinkPreviewDisabled
	return msg
}

// StickerMessage sends an already uploaded sticker by its file id.
type StickerMessage struct {
	ChatID    int64
	StickerID string
	ReplyTo   int
}

func NewStickerMessage(chatID int64, stickerID string, replyTo int) StickerMessage {
	return StickerMessage{
		ChatID:    chatID,
		StickerID: stickerID,
		ReplyTo:   replyTo,
	}
}

func (m StickerMessage) ToChattable() tgbotapi.Chattable {
	msg := tgbotapi.NewSticker(m.ChatID, tgbotapi.FileID(m.StickerID))
	msg.ReplyParameters.MessageID = m.ReplyTo
	return msg
}

type VideoMessage struct {
	ChatID  int64
	Video   RequestFileData
	ReplyTo int
}

func NewVideoMessage(chatID int64, video RequestFileData, replyTo int) VideoMessage {
	return VideoMessage{
		ChatID:  chatID,
		Video:   video,
		ReplyTo: replyTo,
	}
}

func (m VideoMessage) ToChattable() tgbotapi.Chattable {
	msg := tgbotapi.NewVideo(m.ChatID, m.Video)
	msg.ReplyParameters.MessageID = m.ReplyTo
	return msg
}

// InlineAnswer answers an inline query with cached stickers.
type InlineAnswer struct {
	InlineQueryID string
	StickerIDs    []string
	CacheTime     int
	IsPersonal    bool
}

func NewInlineAnswer(queryID string, stickerIDs []string, cacheTime int) InlineAnswer {
	return InlineAnswer{
		InlineQueryID: queryID,
		StickerIDs:    stickerIDs,
		CacheTime:     cacheTime,
	}
}

func (a InlineAnswer) ToChattable() tgbotapi.Chattable {
	results := make([]any, 0, len(a.StickerIDs))
	for _, id := range a.StickerIDs {
		results = append(results, tgbotapi.InlineQueryResultCachedSticker{
			Type:      "sticker",
			ID:        uuid.NewString(),
			StickerID: id,
		})
	}
	return tgbotapi.InlineConfig{
		InlineQueryID: a.InlineQueryID,
		Results:       results,
		CacheTime:     a.CacheTime,
		IsPersonal:    a.IsPersonal,
	}
}

type UpdateConfig struct {
	Offset  int
	Limit   int
	Timeout int
}

type Client interface {
	Send(msg MessageConfig) (*Message, error)
	SendWithRetry(msg MessageConfig, maxRetryCount int) (*Message, error)
	Request(message MessageConfig) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config UpdateConfig) <-chan tgbotapi.Update
	StopReceivingUpdates()
	NewUpdate(offset, timeout, limit int) UpdateConfig
	Self() User
}
