package responder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/media"
	"github.com/muratoffalex/memebot/internal/telegram"
)

// Sender puts decoded media items on the wire.
type Sender struct {
	tg       telegram.Client
	videoDir string
	retries  int
	logger   logger.Logger
}

func NewSender(tg telegram.Client, videoDir string, retries int, log logger.Logger) *Sender {
	return &Sender{
		tg:       tg,
		videoDir: videoDir,
		retries:  retries,
		logger:   log,
	}
}

// Deliver sends a sticker by file id or uploads a video from the video
// directory, as a reply to targetMessageID.
func (s *Sender) Deliver(ctx context.Context, chatID int64, targetMessageID int, alt media.Alternative) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg telegram.MessageConfig
	switch alt.Kind {
	case media.KindSticker:
		msg = telegram.NewStickerMessage(chatID, alt.Payload, targetMessageID)
	case media.KindVideo:
		path := s.VideoPath(alt.Payload)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("video %s: %w", alt.Payload, err)
		}
		msg = telegram.NewVideoMessage(chatID, telegram.FilePath(path), targetMessageID)
	default:
		return fmt.Errorf("cannot deliver %s item %q", alt.Kind, alt.String())
	}

	if _, err := s.tg.SendWithRetry(msg, s.retries); err != nil {
		return fmt.Errorf("send %s: %w", alt.Kind, err)
	}

	s.logger.WithFields(logger.Fields{
		"chat_id":  chatID,
		"reply_to": targetMessageID,
		"item":     alt.String(),
	}).Debug("Media sent")
	return nil
}

func (s *Sender) VideoPath(name string) string {
	if filepath.IsAbs(name) || s.videoDir == "" {
		return name
	}
	return filepath.Join(s.videoDir, name)
}
