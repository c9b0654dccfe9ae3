package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/muratoffalex/memebot/internal/app/di"
	"github.com/muratoffalex/memebot/internal/commands/help"
	"github.com/muratoffalex/memebot/internal/commands/list"
	"github.com/muratoffalex/memebot/internal/commands/random"
	"github.com/muratoffalex/memebot/internal/commands/start"
	"github.com/muratoffalex/memebot/internal/commands/verify"
	"github.com/muratoffalex/memebot/internal/config"
	"github.com/muratoffalex/memebot/internal/core"
	"github.com/muratoffalex/memebot/internal/database"
	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/source"
)

const (
	initialLoadTimeout = 30 * time.Second
	retention          = 7 * 24 * time.Hour
)

var importPath = flag.String("import", "", "Import the given xlsx file into the sqlite memes table and exit")

type Application struct {
	Logger logger.Logger
	cfg    *config.Config
	bot    *core.Bot
	di     *di.Container
	ctx    context.Context
	cancel context.CancelFunc
}

func New(ctx context.Context) (*Application, error) {
	if !flag.Parsed() {
		flag.Parse()
	}

	ctx, cancel := context.WithCancel(ctx)
	cfg, err := config.Load()
	if err != nil {
		cancel()
		return nil, err
	}

	di, err := di.NewContainer(cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	di.Logger.Info("DI Container created")

	botInstance, err := core.NewBot(
		di.BotClient,
		di.Queue,
		di.Logger,
		cfg,
		di.Localizer,
		di.Engine,
		di.Responder,
	)
	if err != nil {
		cancel()
		return nil, err
	}
	di.Logger.Info("Bot instance created")

	app := &Application{
		cfg:    cfg,
		bot:    botInstance,
		di:     di,
		Logger: di.Logger,
		ctx:    ctx,
		cancel: cancel,
	}

	app.registerCommands()

	return app, nil
}

// ImportRequested reports whether the -import flag was given.
func ImportRequested() bool {
	if !flag.Parsed() {
		flag.Parse()
	}
	return *importPath != ""
}

// Import copies the spreadsheet named by -import into the memes table. It
// needs only the config and the database.
func Import(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logCfg := cfg.Log()
	l := logger.NewLogrusLogger(&logCfg)

	db, err := database.NewSQLiteDB(cfg, l)
	if err != nil {
		return err
	}
	defer db.Close()

	memes := cfg.Memes()
	src := source.NewXLSXSource(*importPath, memes.Sheet)
	if memes.TriggerColumn != "" {
		src.TriggerColumn = memes.TriggerColumn
	}
	if memes.ReferenceColumn != "" {
		src.ReferenceColumn = memes.ReferenceColumn
	}

	n, err := source.Import(ctx, src, db)
	if err != nil {
		return fmt.Errorf("import %s: %w", *importPath, err)
	}
	l.WithFields(logger.Fields{
		"file":    *importPath,
		"records": n,
	}).Info("Memes imported")
	return nil
}

func (a *Application) Start() error {
	a.Logger.Info("Starting application")

	loadCtx, cancel := context.WithTimeout(a.ctx, initialLoadTimeout)
	err := a.di.Engine.Reload(loadCtx, a.di.Source)
	cancel()
	if err != nil {
		// Keep serving: lookups miss until a reload succeeds.
		a.Logger.WithError(err).WithField("source", a.di.Source.Name()).Warn("Initial meme load failed")
	}

	if memes := a.cfg.Memes(); memes.Watch && memes.Source == config.SourceXLSX {
		watcher := source.NewWatcher(memes.XLSXPath, memes.WatchDebounce, func(ctx context.Context) {
			_ = a.di.Engine.Reload(ctx, a.di.Source)
		}, a.Logger)
		go func() {
			if err := watcher.Run(a.ctx); err != nil {
				a.Logger.WithError(err).Error("Spreadsheet watcher stopped")
			}
		}()
	}

	a.StartCleaner()

	err = a.bot.Start(a.ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *Application) registerCommands() {
	if a.cfg.GetCommandConfig(start.CommandName).Enabled {
		a.bot.RegisterCommand(start.New(a.di))
	}
	if a.cfg.GetCommandConfig(help.CommandName).Enabled {
		a.bot.RegisterCommand(help.New(a.di, a.bot))
	}
	if a.cfg.GetCommandConfig(list.CommandName).Enabled {
		a.bot.RegisterCommand(list.New(a.di))
	}
	if a.cfg.GetCommandConfig(random.CommandName).Enabled {
		a.bot.RegisterCommand(random.New(a.di))
	}
	if a.cfg.GetCommandConfig(verify.CommandName).Enabled {
		a.bot.RegisterCommand(verify.New(a.di))
	}
}

func (a *Application) Shutdown() {
	a.cancel()
	if err := a.di.Close(); err != nil {
		a.Logger.WithError(err).Error("Shutdown failed")
	}
	a.Logger.Info("Application stopped")
}

// StartCleaner purges old journal rows and finished queue tasks.
func (a *Application) StartCleaner() {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				if err := a.di.DB.PurgeOldDeliveries(int(retention.Hours() / 24)); err != nil {
					a.Logger.WithError(err).Error("Failed to purge old deliveries")
				}
				if _, err := a.di.Queue.PurgeFinished(a.ctx, retention); err != nil {
					a.Logger.WithError(err).Error("Failed to purge finished tasks")
				}
			}
		}
	}()
}
