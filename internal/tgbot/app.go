package tgbot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chgk-bot/internal/config"
	"chgk-bot/internal/quiz"
	"chgk-bot/internal/state"
)

// sender is the slice of the Telegram API the handlers need. Tests plug in
// a recording implementation.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// updateSource is the polling side of the Telegram API, split out so Run's
// shutdown path is testable.
type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type App struct {
	cfg     config.Config
	bot     sender
	api     *tgbotapi.BotAPI // nil in tests; only SetupWebhook touches it
	updates updateSource
	svc     *quiz.Service
	states  *state.Table
	logger  *zap.Logger

	// anti-flood for broadcasts
	limiter *rate.Limiter
}

func New(cfg config.Config, svc *quiz.Service, logger *zap.Logger) (*App, error) {
	b, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	a := newWithSender(cfg, svc, state.NewTable(), logger, b)
	a.api = b
	a.updates = b
	return a, nil
}

func newWithSender(cfg config.Config, svc *quiz.Service, st *state.Table, logger *zap.Logger, s sender) *App {
	return &App{
		cfg:     cfg,
		bot:     s,
		svc:     svc,
		states:  st,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(35*time.Millisecond), 1),
	}
}

// Run long-polls Telegram until the context is cancelled. Not used in
// webhook mode.
func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.updates.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.updates.StopReceivingUpdates()
			return ctx.Err()
		case upd := <-updates:
			a.HandleUpdate(ctx, &upd)
		}
	}
}

// SetupWebhook registers cfg.BasePublicURL/webhook with Telegram so updates
// arrive through the HTTP server instead of polling.
func (a *App) SetupWebhook(ctx context.Context) error {
	wh, err := tgbotapi.NewWebhook(a.cfg.BasePublicURL + "/webhook")
	if err != nil {
		return err
	}
	_, err = a.api.Request(wh)
	return err
}

// HandleUpdate processes one update. Handler errors are logged, never
// propagated: nothing here may take the process down.
func (a *App) HandleUpdate(ctx context.Context, upd *tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	if err := a.handleMessage(ctx, upd.Message); err != nil {
		a.logger.Error("handle message",
			zap.Int64("chat_id", upd.Message.Chat.ID),
			zap.Error(err),
		)
	}
}

func (a *App) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) isAdmin(tgID int64) bool {
	return a.cfg.AdminTGIDs[tgID]
}
