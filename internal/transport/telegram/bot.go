package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/chat"
	"github.com/sandevgo/recall/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const (
	baseContextKey = "base_context"

	handleTimeout       = 2 * time.Minute
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

type Responder interface {
	Handle(ctx context.Context, in chat.Inbound) (string, error)
}

type HistoryLister interface {
	ListMessages(ctx context.Context, q core.HistoryQuery) ([]core.TurnMessage, error)
}

type Bot struct {
	bot       *tele.Bot
	cfg       *config.TelegramConfig
	responder Responder
	history   HistoryLister
	sender    *sender
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	responder Responder,
	history HistoryLister,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:       b,
		cfg:       cfg,
		responder: responder,
		history:   history,
		sender:    newSender(b),
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().IsBot || !cfg.IsAllowed(c.Sender().ID) {
				return nil
			}
			return next(c)
		}
	})

	b.Handle("/start", bot.handleStart)
	b.Handle("/history", bot.handleHistory)
	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("username", b.bot.Me.Username).Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) requestContext(c tele.Context) (context.Context, context.CancelFunc) {
	ctx, ok := c.Get(baseContextKey).(context.Context)
	if !ok {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, handleTimeout)
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send("Hi! Mention me or reply to my messages and I'll remember the conversation.")
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx, cancel := b.requestContext(c)
	defer cancel()

	in := chat.Inbound{
		UserID:    strconv.FormatInt(c.Sender().ID, 10),
		ChannelID: strconv.FormatInt(c.Chat().ID, 10),
		Text:      c.Text(),
		Direct:    isDirect(c.Message(), b.bot.Me),
	}
	if in.Direct {
		_ = c.Notify(tele.Typing)
	}

	reply, err := b.responder.Handle(ctx, in)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("message handling aborted")
		return nil
	}
	if reply == "" {
		return nil
	}

	return b.sender.sendHTML(ctx, c.Chat(), renderReply(reply))
}

func (b *Bot) handleHistory(c tele.Context) error {
	ctx, cancel := b.requestContext(c)
	defer cancel()

	messages, err := b.history.ListMessages(ctx, core.HistoryQuery{
		UserID: strconv.FormatInt(c.Sender().ID, 10),
		Limit:  parseHistoryLimit(c.Args()),
	})
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to list history")
		return c.Send("History is unavailable right now.")
	}

	return b.sender.sendHTML(ctx, c.Chat(), renderHistory(messages))
}

// isDirect reports whether the message is meant for the bot: a private chat,
// a reply to one of its messages, or an @mention.
func isDirect(msg *tele.Message, me *tele.User) bool {
	if msg == nil {
		return false
	}
	if msg.Private() {
		return true
	}
	if me == nil {
		return false
	}
	if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && msg.ReplyTo.Sender.ID == me.ID {
		return true
	}
	return me.Username != "" && strings.Contains(strings.ToLower(msg.Text), "@"+strings.ToLower(me.Username))
}

func parseHistoryLimit(args []string) int {
	if len(args) == 0 {
		return defaultHistoryLimit
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return defaultHistoryLimit
	}
	return min(n, maxHistoryLimit)
}
