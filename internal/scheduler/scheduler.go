package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/smoke-bot/internal/domain"
	"github.com/ykvlv/smoke-bot/internal/metrics"
	"github.com/ykvlv/smoke-bot/internal/store"
)

// Sender is a minimal interface the scheduler needs to send a text message.
// telegram.Router will implement this (method: SendMessage).
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// ReminderText is sent when a user's next allowed time arrives.
const ReminderText = "⏰ Your interval is over. You may have the next one now, or hold on a bit longer 💪\nSend /smoke when you do."

const batchSize = 100

// Scheduler periodically polls the DB and delivers due reminders.
type Scheduler struct {
	repo     store.Repo
	log      *zap.Logger
	sender   Sender
	clock    domain.Clock
	window   domain.ActiveWindow
	metrics  *metrics.Metrics
	interval time.Duration
}

// New creates a new Scheduler polling every interval (30s when zero).
func New(repo store.Repo, log *zap.Logger, sender Sender, clock domain.Clock, window domain.ActiveWindow, m *metrics.Metrics, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		repo:     repo,
		log:      log,
		sender:   sender,
		clock:    clock,
		window:   window,
		metrics:  m,
		interval: interval,
	}
}

// Run starts the loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick performs one cycle: find due reminders, defer or send, clear.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock.Now()

	profiles, err := s.repo.ListDueReminders(ctx, now, batchSize)
	if err != nil {
		s.log.Error("ListDueReminders failed", zap.Error(err))
		return
	}
	for _, p := range profiles {
		due := *p.NextReminderAt

		// Outside active hours: push to the next window start.
		if at := s.window.Defer(now); at.After(now) {
			if _, err := s.repo.SwapReminder(ctx, p.UserKey, due, &at); err != nil {
				s.log.Error("defer reminder failed", zap.Error(err), zap.Int64("user", p.UserKey))
			}
			continue
		}

		if err := s.sender.SendMessage(p.ChatID, ReminderText); err != nil {
			s.metrics.RemindersFailed.Inc()
			s.log.Error("send failed", zap.Error(err), zap.Int64("chatID", p.ChatID))
			continue
		}
		s.metrics.RemindersSent.Inc()

		// A new event may have rescheduled the reminder while we were sending.
		cleared, err := s.repo.SwapReminder(ctx, p.UserKey, due, nil)
		if err != nil {
			s.log.Error("clear reminder failed", zap.Error(err), zap.Int64("user", p.UserKey))
			continue
		}
		if !cleared {
			s.log.Debug("reminder rescheduled during send", zap.Int64("user", p.UserKey))
		}
	}
}
