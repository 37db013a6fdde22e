package store

import (
	"context"
	"time"

	"github.com/ykvlv/smoke-bot/internal/domain"
)

// Repo defines storage operations for profiles, events and reminders.
type Repo interface {
	// EnsureProfile inserts seed unless a profile with seed.UserKey exists,
	// then returns the stored profile.
	EnsureProfile(ctx context.Context, seed *domain.Profile) (*domain.Profile, error)
	// GetProfile returns domain.ErrUnknownUser when no profile exists.
	GetProfile(ctx context.Context, userKey int64) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, p *domain.Profile) error

	AppendEvent(ctx context.Context, userKey int64, at time.Time) (int64, error)
	// RecentEvents returns up to limit events, newest first.
	RecentEvents(ctx context.Context, userKey int64, limit int) ([]domain.Event, error)
	CountEvents(ctx context.Context, userKey int64) (int, error)

	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.Profile, error)
	SetReminder(ctx context.Context, userKey int64, at *time.Time) error
	// SwapReminder replaces the reminder only while it still equals expected.
	// It reports false when the reminder was changed in the meantime.
	SwapReminder(ctx context.Context, userKey int64, expected time.Time, at *time.Time) (bool, error)

	// InTx runs fn against a Repo bound to one transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Repo) error) error
	Close() error
}
