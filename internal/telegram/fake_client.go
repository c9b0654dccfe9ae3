package telegram

import (
	"sync"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// FakeClient records outgoing messages instead of calling Telegram.
type FakeClient struct {
	mu       sync.Mutex
	sent     []MessageConfig
	requests []MessageConfig
	nextID   int

	// SendErr, when set, decides the error returned for a message.
	SendErr func(msg MessageConfig) error
	Updates chan tgbotapi.Update
	Bot     User
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Updates: make(chan tgbotapi.Update, 16),
		Bot:     User{ID: 1, FirstName: "memebot", UserName: "memebot", IsBot: true},
	}
}

func (c *FakeClient) Send(msg MessageConfig) (*Message, error) {
	return c.SendWithRetry(msg, 0)
}

func (c *FakeClient) SendWithRetry(msg MessageConfig, _ int) (*Message, error) {
	if c.SendErr != nil {
		if err := c.SendErr(msg); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	c.nextID++
	return &Message{MessageID: c.nextID}, nil
}

func (c *FakeClient) Request(msg MessageConfig) (*tgbotapi.APIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, msg)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (c *FakeClient) GetUpdatesChan(UpdateConfig) <-chan tgbotapi.Update {
	return c.Updates
}

func (c *FakeClient) StopReceivingUpdates() {}

func (c *FakeClient) NewUpdate(offset, timeout, limit int) UpdateConfig {
	return UpdateConfig{Offset: offset, Timeout: timeout, Limit: limit}
}

func (c *FakeClient) Self() User {
	return c.Bot
}

func (c *FakeClient) Sent() []MessageConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MessageConfig(nil), c.sent...)
}

func (c *FakeClient) Requests() []MessageConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MessageConfig(nil), c.requests...)
}
