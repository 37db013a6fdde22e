package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ykvlv/smoke-bot/internal/domain"
	"github.com/ykvlv/smoke-bot/internal/metrics"
	"github.com/ykvlv/smoke-bot/internal/store"
)

// Identity names the user behind a request.
type Identity struct {
	UserKey  int64
	ChatID   int64
	Username string
	FullName string
}

// Outcome is the result of logging one event.
type Outcome struct {
	NextEventTime   time.Time
	CanPredict      bool
	QuitDate        time.Time
	QuitDateCapped  bool
	CurrentInterval float64 // hours
	TotalEvents     int
}

// Progress summarises a user's state for display.
type Progress struct {
	Profile         *domain.Profile
	CurrentInterval float64 // hours
	TotalEvents     int
	LastEventAt     *time.Time
}

// Service runs tracker operations, one user at a time.
type Service struct {
	repo     store.Repo
	clock    domain.Clock
	defaults domain.ProfileDefaults
	metrics  *metrics.Metrics
	log      *zap.Logger
	locks    *userLocks
}

func NewService(repo store.Repo, clock domain.Clock, defaults domain.ProfileDefaults, m *metrics.Metrics, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		clock:    clock,
		defaults: defaults,
		metrics:  m,
		log:      log,
		locks:    newUserLocks(),
	}
}

// Now returns the current time in the reference zone.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Location is the reference zone used for display.
func (s *Service) Location() *time.Location { return s.clock.Now().Location() }

// EnsureProfile returns the user's profile, creating it with defaults on first contact.
func (s *Service) EnsureProfile(ctx context.Context, id Identity) (*domain.Profile, error) {
	unlock := s.locks.lock(id.UserKey)
	defer unlock()
	return s.ensure(ctx, s.repo, id)
}

func (s *Service) ensure(ctx context.Context, repo store.Repo, id Identity) (*domain.Profile, error) {
	seed := s.defaults.NewProfile(id.UserKey, s.clock.Now())
	if id.ChatID != 0 {
		seed.ChatID = id.ChatID
	}
	seed.Username = id.Username
	seed.FullName = id.FullName
	return repo.EnsureProfile(ctx, seed)
}

// RecordEvent logs an event at the current time and returns the refreshed
// prediction. The new event is part of the window the prediction is based on.
func (s *Service) RecordEvent(ctx context.Context, id Identity) (*Outcome, error) {
	unlock := s.locks.lock(id.UserKey)
	defer unlock()

	now := s.clock.Now()
	var out Outcome
	err := s.repo.InTx(ctx, func(tx store.Repo) error {
		p, err := s.ensure(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.AppendEvent(ctx, p.UserKey, now); err != nil {
			return err
		}
		recent, err := tx.RecentEvents(ctx, p.UserKey, domain.RecentWindow)
		if err != nil {
			return err
		}
		total, err := tx.CountEvents(ctx, p.UserKey)
		if err != nil {
			return err
		}

		next, canPredict := domain.NextEventTime(p, recent, now)
		proj := domain.ProjectQuitDate(p, recent, now)

		p.TargetQuitDate = &proj.Date
		p.QuitDateCapped = proj.Capped
		p.NextReminderAt = nil
		if p.RemindersEnabled && canPredict {
			p.NextReminderAt = &next
		}
		if err := tx.UpdateProfile(ctx, p); err != nil {
			return err
		}

		out = Outcome{
			NextEventTime:   next,
			CanPredict:      canPredict,
			QuitDate:        proj.Date,
			QuitDateCapped:  proj.Capped,
			CurrentInterval: domain.AverageInterval(p, recent),
			TotalEvents:     total,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record event: %w", err)
	}

	s.metrics.EventsRecorded.Inc()
	if out.QuitDateCapped {
		s.metrics.QuitDateCapped.Inc()
	}
	s.log.Debug("event recorded",
		zap.Int64("user", id.UserKey),
		zap.Bool("canPredict", out.CanPredict),
		zap.Float64("intervalHours", out.CurrentInterval),
		zap.Bool("quitCapped", out.QuitDateCapped),
	)
	return &out, nil
}

// Progress reports the current average interval and stored projection.
func (s *Service) Progress(ctx context.Context, id Identity) (*Progress, error) {
	unlock := s.locks.lock(id.UserKey)
	defer unlock()

	p, err := s.ensure(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentEvents(ctx, p.UserKey, domain.RecentWindow)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountEvents(ctx, p.UserKey)
	if err != nil {
		return nil, err
	}

	prog := &Progress{
		Profile:         p,
		CurrentInterval: domain.AverageInterval(p, recent),
		TotalEvents:     total,
	}
	if len(recent) > 0 {
		last := recent[0].OccurredAt
		prog.LastEventAt = &last
	}
	return prog, nil
}

// UpdateCoefficient validates and stores a new reduction coefficient.
// Past events and the stored quit date are not recomputed.
func (s *Service) UpdateCoefficient(ctx context.Context, id Identity, c decimal.Decimal) (*domain.Profile, error) {
	c, err := domain.NormalizeCoefficient(c)
	if err != nil {
		return nil, err
	}
	p, err := s.updateProfile(ctx, id, func(p *domain.Profile) {
		p.ReductionCoefficient = c
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SettingsUpdated.WithLabelValues("coefficient").Inc()
	return p, nil
}

// UpdateIntervals validates and stores the interval bounds in hours.
func (s *Service) UpdateIntervals(ctx context.Context, id Identity, initial, minH, maxH float64) (*domain.Profile, error) {
	if err := domain.ValidateIntervals(initial, minH, maxH); err != nil {
		return nil, err
	}
	p, err := s.updateProfile(ctx, id, func(p *domain.Profile) {
		p.InitialIntervalHours = initial
		p.MinIntervalHours = minH
		p.MaxIntervalHours = maxH
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SettingsUpdated.WithLabelValues("intervals").Inc()
	return p, nil
}

// SetReminders toggles reminders. Turning them off drops any pending one.
func (s *Service) SetReminders(ctx context.Context, id Identity, enabled bool) (*domain.Profile, error) {
	p, err := s.updateProfile(ctx, id, func(p *domain.Profile) {
		p.RemindersEnabled = enabled
		if !enabled {
			p.NextReminderAt = nil
		}
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SettingsUpdated.WithLabelValues("reminders").Inc()
	return p, nil
}

func (s *Service) updateProfile(ctx context.Context, id Identity, mutate func(*domain.Profile)) (*domain.Profile, error) {
	unlock := s.locks.lock(id.UserKey)
	defer unlock()

	var updated *domain.Profile
	err := s.repo.InTx(ctx, func(tx store.Repo) error {
		p, err := s.ensure(ctx, tx, id)
		if err != nil {
			return err
		}
		mutate(p)
		if err := tx.UpdateProfile(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}
