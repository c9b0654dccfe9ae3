package di

import (
	"context"
	"fmt"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"github.com/muratoffalex/memebot/internal/config"
	"github.com/muratoffalex/memebot/internal/database"
	"github.com/muratoffalex/memebot/internal/delivery"
	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/matcher"
	"github.com/muratoffalex/memebot/internal/queue"
	"github.com/muratoffalex/memebot/internal/responder"
	"github.com/muratoffalex/memebot/internal/service"
	"github.com/muratoffalex/memebot/internal/source"
	"github.com/muratoffalex/memebot/internal/telegram"
)

type Container struct {
	BotClient telegram.Client
	Logger    logger.Logger
	DB        database.Database
	Cfg       *config.Config
	Queue     *queue.Queue
	Localizer *service.Localizer
	Engine    *matcher.Engine
	Source    source.Source
	Scheduler *delivery.Scheduler
	Responder *responder.Responder
}

func NewContainer(cfg *config.Config) (*Container, error) {
	logCfg := cfg.Log()
	l := logger.NewLogrusLogger(&logCfg)

	db, err := database.NewSQLiteDB(cfg, l)
	if err != nil {
		return nil, err
	}

	if lost, err := db.MarkPendingDeliveriesLost(context.Background()); err != nil {
		l.WithError(err).Warn("Failed to mark pending deliveries as lost")
	} else if lost > 0 {
		l.WithField("count", lost).Warn("Deferred deliveries from the previous run were lost")
	}

	localizer, err := service.NewLocalizer(cfg.Global().InterfaceLanguage)
	if err != nil {
		l.WithError(err).Fatal("Error create localizer")
	}

	src, err := NewSource(cfg, db)
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram().Token)
	if err != nil {
		l.WithError(err).Fatal("Bot API client initialization error")
	}
	l.WithField("username", api.Self.UserName).Info("Bot API initialized")
	botClient := telegram.NewBotClient(api, l)

	runner, err := delivery.NewCronRunner()
	if err != nil {
		return nil, err
	}

	container := &Container{
		BotClient: botClient,
		Logger:    l,
		DB:        db,
		Cfg:       cfg,
		Queue:     queue.NewQueue(db, l),
		Localizer: localizer,
		Engine:    matcher.New(l),
		Source:    src,
	}
	container.WireDelivery(runner, database.NewDeliveryJournal(db))

	return container, nil
}

// WireDelivery builds the sender, scheduler and responder around the
// container's client and engine.
func (c *Container) WireDelivery(runner delivery.Runner, journal delivery.Journal) {
	memes := c.Cfg.Memes()
	deliveryCfg := c.Cfg.Delivery()

	sender := responder.NewSender(c.BotClient, memes.VideoDir, deliveryCfg.SendRetries, c.Logger)
	c.Scheduler = delivery.NewScheduler(runner, sender, journal, c.Logger)
	c.Scheduler.SetTimeout(deliveryCfg.Timeout)
	c.Responder = responder.New(
		c.BotClient,
		c.Engine,
		sender,
		c.Scheduler,
		memes.InlineCacheTime,
		memes.InlineMaxResults,
		c.Logger,
	)
}

// NewSource picks the record source named by memes.source.
func NewSource(cfg *config.Config, db database.Database) (source.Source, error) {
	memes := cfg.Memes()
	switch memes.Source {
	case config.SourceXLSX:
		src := source.NewXLSXSource(memes.XLSXPath, memes.Sheet)
		if memes.TriggerColumn != "" {
			src.TriggerColumn = memes.TriggerColumn
		}
		if memes.ReferenceColumn != "" {
			src.ReferenceColumn = memes.ReferenceColumn
		}
		return src, nil
	case config.SourceSQLite:
		return source.NewSQLiteSource(db), nil
	default:
		return nil, fmt.Errorf("unknown memes.source %q", memes.Source)
	}
}

// Close stops the delivery runner and closes the database.
func (c *Container) Close() error {
	var err error
	if c.Scheduler != nil {
		err = c.Scheduler.Shutdown()
	}
	if c.DB != nil {
		if dbErr := c.DB.Close(); dbErr != nil && err == nil {
			err = dbErr
		}
	}
	return err
}
