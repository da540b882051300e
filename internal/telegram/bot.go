// Package telegram connects the conversation tracker to the Telegram Bot API.
package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"forklift-assistant/internal/auth"
	"forklift-assistant/internal/conversation"
	"forklift-assistant/internal/format"
	"forklift-assistant/internal/logging"
)

const (
	msgUnauthorized = "Acesso não autorizado. Sua solicitação foi enviada ao administrador."
	msgAdminOnly    = "Comando disponível apenas para o administrador."

	msgUnknownCommand = "Comando não reconhecido. Envie /start para iniciar um novo atendimento ou responda à última pergunta."
)

// Advancer answers technician messages and drops the state of revoked users.
type Advancer interface {
	Advance(ctx context.Context, userID int64, text string) conversation.Reply
	Forget(ctx context.Context, userID int64) error
}

// Reporter renders the maintenance report for the /report admin command.
type Reporter interface {
	Report(ctx context.Context) (string, error)
}

type Options struct {
	ParseMode        string
	MaxMessageLength int
	Workers          int
	SendRate         float64
	PollTimeout      int
}

type Bot struct {
	api      *tgbotapi.BotAPI
	s        sender
	tracker  Advancer
	authSvc  *auth.Service
	reporter Reporter
	opts     Options
	limiter  *rate.Limiter
	logger   *zap.Logger

	mu       sync.Mutex
	notified map[int64]bool
}

func New(api *tgbotapi.BotAPI, tracker Advancer, authSvc *auth.Service, opts Options, logger *zap.Logger) *Bot {
	b := newBot(botAPISender{api: api}, tracker, authSvc, opts, logger)
	b.api = api
	return b
}

func newBot(s sender, tracker Advancer, authSvc *auth.Service, opts Options, logger *zap.Logger) *Bot {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = format.DefaultMaxLength
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	limit := rate.Inf
	burst := 1
	if opts.SendRate > 0 {
		limit = rate.Limit(opts.SendRate)
		burst = max(1, int(opts.SendRate))
	}
	return &Bot{
		s:        s,
		tracker:  tracker,
		authSvc:  authSvc,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logging.OrNop(logger).Named("telegram"),
		notified: make(map[int64]bool),
	}
}

// SetReporter enables the /report admin command.
func (b *Bot) SetReporter(r Reporter) { b.reporter = r }

// Start long-polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.opts.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()
	b.logger.Info("polling for updates", zap.Int("workers", b.opts.Workers))
	b.dispatch(ctx, updates)
	b.logger.Info("polling stopped")
}

// dispatch fans updates out to workers. Every user maps to one worker so
// their messages are answered in order.
func (b *Bot) dispatch(ctx context.Context, updates <-chan tgbotapi.Update) {
	queues := make([]chan *tgbotapi.Message, b.opts.Workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan *tgbotapi.Message, 64)
		wg.Add(1)
		go func(q <-chan *tgbotapi.Message) {
			defer wg.Done()
			for msg := range q {
				b.handleMessage(ctx, msg)
			}
		}(queues[i])
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			msg := update.Message
			if msg == nil || msg.From == nil {
				continue
			}
			queues[shard(msg.From.ID, len(queues))] <- msg
		}
	}
	for _, q := range queues {
		close(q)
	}
	wg.Wait()
}

func shard(userID int64, n int) int {
	return int(uint64(userID) % uint64(n))
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	log := b.logger.With(zap.Int64("user_id", userID), zap.String("username", msg.From.UserName))

	if !b.authSvc.IsAllowed(userID) {
		log.Warn("unauthorized access attempt")
		b.send(ctx, msg.Chat.ID, msgUnauthorized)
		b.notifyAdminRequest(ctx, msg.From)
		return
	}

	if msg.IsCommand() {
		switch cmd := msg.Command(); {
		case isAdminCommand(cmd):
			if !b.authSvc.IsAdmin(userID) {
				b.send(ctx, msg.Chat.ID, msgAdminOnly)
				return
			}
			b.handleAdminCommand(ctx, msg)
			return
		case cmd != cmdStart:
			b.send(ctx, msg.Chat.ID, msgUnknownCommand)
			return
		}
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	log.Debug("incoming message", zap.Int("length", len(text)))
	reply := b.tracker.Advance(ctx, userID, text)
	for _, m := range reply.Messages {
		b.send(ctx, msg.Chat.ID, m)
	}
}

// notifyAdminRequest tells the admin once per user that someone was refused.
func (b *Bot) notifyAdminRequest(ctx context.Context, from *tgbotapi.User) {
	admin := b.authSvc.AdminID()
	if admin == 0 {
		return
	}
	b.mu.Lock()
	seen := b.notified[from.ID]
	b.notified[from.ID] = true
	b.mu.Unlock()
	if seen {
		return
	}
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	b.send(ctx, admin, accessRequestText(from.ID, from.UserName, name))
}

// Notify sends text to a chat; used for scheduled reports.
func (b *Bot) Notify(ctx context.Context, chatID int64, text string) {
	b.send(ctx, chatID, text)
}

// send renders text for the parse mode, splits it and sends every part.
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	split := format.Split
	if b.opts.ParseMode == format.ParseModeHTML {
		text = format.HTML(text)
		split = format.SplitHTML
	}
	for _, part := range split(text, b.opts.MaxMessageLength) {
		if err := b.limiter.Wait(ctx); err != nil {
			b.logger.Warn("send cancelled", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}
		out := tgbotapi.NewMessage(chatID, part)
		out.ParseMode = b.opts.ParseMode
		if _, err := b.s.Send(out); err != nil {
			b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}
