package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/smoke-bot/internal/domain"
	"github.com/ykvlv/smoke-bot/internal/tracker"
)

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// fail logs err, counts it against command and tells the user.
func (r *Router) fail(command string, id tracker.Identity, err error) {
	r.metrics.CommandErrors.WithLabelValues(command).Inc()
	r.log.Error(command+" failed", zap.Error(err), zap.Int64("user", id.UserKey))
	r.sendText(id.ChatID, genericFailure)
}

func displayName(id tracker.Identity) string {
	if id.FullName != "" {
		return id.FullName
	}
	if id.Username != "" {
		return id.Username
	}
	return "there"
}

func quitDateText(date *time.Time, capped bool) string {
	if date == nil {
		return notCalculated
	}
	s := date.Format(dateLayout)
	if capped {
		return fmt.Sprintf(quitCappedFmt, s)
	}
	return s
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, id tracker.Identity) {
	p, err := r.svc.EnsureProfile(ctx, id)
	if err != nil {
		r.fail("start", id, err)
		return
	}
	body := fmt.Sprintf(startFmt,
		displayName(id),
		domain.FormatPercent(p.ReductionCoefficient),
		domain.FormatHours(p.InitialIntervalHours),
	)
	msg := tgbotapi.NewMessage(id.ChatID, body)
	msg.ReplyMarkup = mainMenuKeyboard(p.RemindersEnabled)
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleSmoke(ctx context.Context, id tracker.Identity) {
	out, err := r.svc.RecordEvent(ctx, id)
	if err != nil {
		r.fail("smoke", id, err)
		return
	}

	next := unknownNext
	if out.CanPredict {
		next = out.NextEventTime.In(r.svc.Location()).Format(timestampLayout)
	}
	body := fmt.Sprintf(smokeFmt,
		next,
		domain.FormatHours(out.CurrentInterval),
		quitDateText(&out.QuitDate, out.QuitDateCapped),
	)
	r.sendText(id.ChatID, body)
}

func (r *Router) handleProgress(ctx context.Context, id tracker.Identity) {
	prog, err := r.svc.Progress(ctx, id)
	if err != nil {
		r.fail("progress", id, err)
		return
	}
	p := prog.Profile

	last := noRecords
	if prog.LastEventAt != nil {
		last = prog.LastEventAt.In(r.svc.Location()).Format(timestampLayout)
	}
	reminders := remindersOff
	if p.RemindersEnabled {
		reminders = remindersOn
	}

	body := fmt.Sprintf(progressFmt,
		domain.FormatHours(prog.CurrentInterval),
		domain.FormatPercent(p.ReductionCoefficient),
		domain.FormatHours(p.MinIntervalHours),
		domain.FormatHours(p.MaxIntervalHours),
		domain.FormatHours(p.InitialIntervalHours),
		prog.TotalEvents,
		last,
		quitDateText(p.TargetQuitDate, p.QuitDateCapped),
		reminders,
	)
	r.sendText(id.ChatID, body)
}

func (r *Router) handleSettings(ctx context.Context, id tracker.Identity) {
	p, err := r.svc.EnsureProfile(ctx, id)
	if err != nil {
		r.fail("settings", id, err)
		return
	}
	body := fmt.Sprintf(settingsFmt,
		domain.FormatPercent(p.ReductionCoefficient),
		domain.FormatHours(p.InitialIntervalHours),
		domain.FormatHours(p.MinIntervalHours),
		domain.FormatHours(p.MaxIntervalHours),
	)
	msg := tgbotapi.NewMessage(id.ChatID, body)
	msg.ReplyMarkup = settingsInlineKeyboard(p.ReductionCoefficient)
	_, _ = r.bot.Send(msg)
}

// --- Coefficient flow ---

func (r *Router) handleCoefficientCallback(ctx context.Context, id tracker.Identity, cb *tgbotapi.CallbackQuery) {
	_ = r.answerCallback(cb.ID, "")
	c, err := domain.ParseCoefficient(strings.TrimPrefix(cb.Data, cbCoefPrefix))
	if err != nil {
		r.sendText(id.ChatID, badCoefficient)
		return
	}
	p, err := r.svc.UpdateCoefficient(ctx, id, c)
	if err != nil {
		r.fail("coefficient", id, err)
		return
	}

	// Replace the settings message so the keyboard cannot be pressed twice.
	edit := tgbotapi.NewEditMessageText(id.ChatID, cb.Message.MessageID,
		fmt.Sprintf(coefficientSet, domain.FormatPercent(p.ReductionCoefficient)))
	if _, err := r.bot.Send(edit); err != nil {
		r.log.Warn("edit settings message failed", zap.Error(err))
	}
}

// --- Free-form dispatcher (for all "Custom" inputs) ---

func (r *Router) handleFreeForm(ctx context.Context, id tracker.Identity, text string) {
	switch r.getPending(id.ChatID) {
	case pendingCoefficient:
		c, err := domain.ParseCoefficient(text)
		if err != nil {
			r.sendText(id.ChatID, badCoefficient)
			return
		}
		r.clearPending(id.ChatID)
		p, err := r.svc.UpdateCoefficient(ctx, id, c)
		if err != nil {
			r.fail("coefficient", id, err)
			return
		}
		r.sendText(id.ChatID, fmt.Sprintf(coefficientSet, domain.FormatPercent(p.ReductionCoefficient)))

	case pendingIntervals:
		initial, minH, maxH, err := domain.ParseIntervals(text)
		if err != nil {
			r.sendText(id.ChatID, badIntervals)
			return
		}
		r.clearPending(id.ChatID)
		p, err := r.svc.UpdateIntervals(ctx, id, initial, minH, maxH)
		if errors.Is(err, domain.ErrInvalidConfiguration) {
			r.sendText(id.ChatID, badIntervals)
			return
		}
		if err != nil {
			r.fail("intervals", id, err)
			return
		}
		r.sendText(id.ChatID, fmt.Sprintf(intervalsSet,
			domain.FormatHours(p.InitialIntervalHours),
			domain.FormatHours(p.MinIntervalHours),
			domain.FormatHours(p.MaxIntervalHours),
		))

	default:
		// No pending flow: ignore free-form message
	}
}

// --- Pause / Resume ---

func (r *Router) handleReminders(ctx context.Context, id tracker.Identity, enabled bool) {
	p, err := r.svc.SetReminders(ctx, id, enabled)
	if err != nil {
		r.fail("reminders", id, err)
		return
	}
	text := pausedText
	if enabled {
		text = resumedText
	}
	msg := tgbotapi.NewMessage(id.ChatID, text)
	msg.ReplyMarkup = mainMenuKeyboard(p.RemindersEnabled)
	_, _ = r.bot.Send(msg)
}
