package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/smoke-bot/internal/metrics"
	"github.com/ykvlv/smoke-bot/internal/tracker"
)

// Pending state keys used in conversational flows.
const (
	pendingCoefficient = "await_coefficient_text"
	pendingIntervals   = "await_intervals_text"
)

// Callback data.
const (
	cbCoefPrefix = "coef:"
	cbCoefCustom = "coef:custom"
	cbIntervals  = "set_intervals"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot     Bot
	log     *zap.Logger
	svc     *tracker.Service
	metrics *metrics.Metrics
	state   map[int64]string // chatID -> pending state
	mu      sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot Bot, log *zap.Logger, svc *tracker.Service, m *metrics.Metrics) *Router {
	return &Router{
		bot:     bot,
		log:     log,
		svc:     svc,
		metrics: m,
		state:   make(map[int64]string),
	}
}

// setPending sets a pending state for a chat (non-persistent, in-memory).
func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

// getPending returns current pending state for a chat.
func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

// clearPending clears a pending state for a chat.
func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// identity derives the tracker identity from the sender, falling back to the chat.
func identity(chat *tgbotapi.Chat, from *tgbotapi.User) tracker.Identity {
	id := tracker.Identity{ChatID: chat.ID, UserKey: chat.ID}
	if from != nil {
		id.UserKey = from.ID
		id.Username = from.UserName
		id.FullName = strings.TrimSpace(from.FirstName + " " + from.LastName)
	}
	return id
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	// Text messages
	if upd.Message != nil && upd.Message.Chat != nil {
		msg := upd.Message
		id := identity(msg.Chat, msg.From)
		text := strings.TrimSpace(msg.Text)

		switch {
		case strings.HasPrefix(text, "/start"):
			r.clearPending(id.ChatID)
			r.handleStart(ctx, id)
		case strings.HasPrefix(text, "/smoke"):
			r.clearPending(id.ChatID)
			r.handleSmoke(ctx, id)
		case strings.HasPrefix(text, "/progress"):
			r.handleProgress(ctx, id)
		case strings.HasPrefix(text, "/settings"):
			r.handleSettings(ctx, id)
		case strings.HasPrefix(text, "/help"):
			r.sendText(id.ChatID, helpText)
		case strings.HasPrefix(text, "/pause"):
			r.handleReminders(ctx, id, false)
		case strings.HasPrefix(text, "/resume"):
			r.handleReminders(ctx, id, true)
		default:
			// Free-form text used in "Custom" flows (coefficient/intervals)
			r.handleFreeForm(ctx, id, text)
		}
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil {
		cb := upd.CallbackQuery
		id := identity(cb.Message.Chat, cb.From)

		switch {
		case cb.Data == cbCoefCustom:
			_ = r.answerCallback(cb.ID, "")
			r.setPending(id.ChatID, pendingCoefficient)
			r.sendText(id.ChatID, askCoefficient)
		case strings.HasPrefix(cb.Data, cbCoefPrefix):
			r.handleCoefficientCallback(ctx, id, cb)
		case cb.Data == cbIntervals:
			_ = r.answerCallback(cb.ID, "")
			r.setPending(id.ChatID, pendingIntervals)
			r.sendText(id.ChatID, askIntervals)
		default:
			// Unknown callback — just stop the spinner
			_ = r.answerCallback(cb.ID, "")
		}
		return
	}
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy scheduler.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Commands is the menu registered with Telegram on startup.
func Commands() tgbotapi.SetMyCommandsConfig {
	return tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Get started"},
		tgbotapi.BotCommand{Command: "smoke", Description: "Log a cigarette"},
		tgbotapi.BotCommand{Command: "progress", Description: "Show progress"},
		tgbotapi.BotCommand{Command: "settings", Description: "Reduction settings"},
		tgbotapi.BotCommand{Command: "pause", Description: "Pause reminders"},
		tgbotapi.BotCommand{Command: "resume", Description: "Resume reminders"},
		tgbotapi.BotCommand{Command: "help", Description: "How it works"},
	)
}
