package tracker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ykvlv/smoke-bot/internal/domain"
	"github.com/ykvlv/smoke-bot/internal/metrics"
	"github.com/ykvlv/smoke-bot/internal/store"
)

// manualClock is a settable clock for tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	svc     *Service
	repo    *store.SQLiteRepo
	clock   *manualClock
	metrics *metrics.Metrics
	loc     *time.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	clock := &manualClock{now: time.Date(2025, time.May, 5, 0, 0, 0, 0, loc)}
	m := metrics.New()
	svc := NewService(repo, clock, domain.DefaultProfileDefaults(), m, zap.NewNop())
	return &fixture{svc: svc, repo: repo, clock: clock, metrics: m, loc: loc}
}

var alice = Identity{UserKey: 1001, ChatID: 1001, Username: "alice", FullName: "Alice"}

func TestRecordEvent_FirstEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.RecordEvent(ctx, alice)
	require.NoError(t, err)

	assert.False(t, out.CanPredict)
	assert.Equal(t, time.Date(2025, time.May, 5, 2, 0, 0, 0, f.loc), out.NextEventTime)
	assert.Equal(t, 2.0, out.CurrentInterval)
	assert.Equal(t, 1, out.TotalEvents)
	assert.False(t, out.QuitDateCapped)
	assert.Equal(t, time.Date(2025, time.June, 23, 0, 0, 0, 0, f.loc), out.QuitDate)

	p, err := f.repo.GetProfile(ctx, alice.UserKey)
	require.NoError(t, err)
	require.NotNil(t, p.TargetQuitDate)
	assert.Equal(t, "2025-06-23", p.TargetQuitDate.Format("2006-01-02"))
	assert.Nil(t, p.NextReminderAt, "no reminder until a prediction exists")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsRecorded))
}

func TestRecordEvent_SecondEventIncludesItselfInWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordEvent(ctx, alice)
	require.NoError(t, err)

	now := time.Date(2025, time.May, 5, 3, 0, 0, 0, f.loc)
	f.clock.Set(now)
	out, err := f.svc.RecordEvent(ctx, alice)
	require.NoError(t, err)

	require.True(t, out.CanPredict)
	assert.InDelta(t, 3.0, out.CurrentInterval, 1e-9)
	assert.InDelta(t, 3.0/0.95, out.NextEventTime.Sub(now).Hours(), 1e-6)
	assert.Equal(t, 2, out.TotalEvents)

	p, err := f.repo.GetProfile(ctx, alice.UserKey)
	require.NoError(t, err)
	require.NotNil(t, p.NextReminderAt)
	assert.Equal(t, out.NextEventTime.UnixMilli(), p.NextReminderAt.UnixMilli())
}

func TestRecordEvent_WindowLimitedToRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.clock.Now()

	// one long gap that falls out of the five-event window, then 1h gaps
	offsets := []time.Duration{0, 20 * time.Hour, 21 * time.Hour, 22 * time.Hour, 23 * time.Hour, 24 * time.Hour}
	var out *Outcome
	for _, off := range offsets {
		f.clock.Set(start.Add(off))
		var err error
		out, err = f.svc.RecordEvent(ctx, alice)
		require.NoError(t, err)
	}
	assert.InDelta(t, 1.0, out.CurrentInterval, 1e-9)
	assert.Equal(t, 6, out.TotalEvents)
}

func TestRecordEvent_CoefficientOneCapsQuitDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateCoefficient(ctx, alice, decimal.NewFromInt(1))
	require.NoError(t, err)

	out, err := f.svc.RecordEvent(ctx, alice)
	require.NoError(t, err)
	assert.True(t, out.QuitDateCapped)
	assert.Equal(t, time.Date(2026, time.May, 5, 0, 0, 0, 0, f.loc), out.QuitDate)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QuitDateCapped))

	p, err := f.repo.GetProfile(ctx, alice.UserKey)
	require.NoError(t, err)
	assert.True(t, p.QuitDateCapped)
}

func TestRecordEvent_RemindersDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetReminders(ctx, alice, false)
	require.NoError(t, err)
	_, err = f.svc.RecordEvent(ctx, alice)
	require.NoError(t, err)
	f.clock.Set(f.clock.Now().Add(2 * time.Hour))
	_, err = f.svc.RecordEvent(ctx, alice)
	require.NoError(t, err)

	p, err := f.repo.GetProfile(ctx, alice.UserKey)
	require.NoError(t, err)
	assert.False(t, p.RemindersEnabled)
	assert.Nil(t, p.NextReminderAt)
}

func TestRecordEvent_ConcurrentSameUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RecordEvent(ctx, alice)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := f.repo.CountEvents(ctx, alice.UserKey)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prog, err := f.svc.Progress(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.TotalEvents)
	assert.Equal(t, 2.0, prog.CurrentInterval)
	assert.Nil(t, prog.LastEventAt)
	assert.Nil(t, prog.Profile.TargetQuitDate)

	_, err = f.svc.RecordEvent(ctx, alice)
	require.NoError(t, err)
	f.clock.Set(f.clock.Now().Add(4 * time.Hour))
	_, err = f.svc.RecordEvent(ctx, alice)
	require.NoError(t, err)

	prog, err = f.svc.Progress(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, prog.TotalEvents)
	assert.InDelta(t, 4.0, prog.CurrentInterval, 1e-9)
	require.NotNil(t, prog.LastEventAt)
	assert.True(t, prog.LastEventAt.Equal(f.clock.Now()))
	assert.NotNil(t, prog.Profile.TargetQuitDate)
}

func TestUpdateCoefficient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.UpdateCoefficient(ctx, alice, decimal.RequireFromString("0.9"))
	require.NoError(t, err)
	assert.True(t, p.ReductionCoefficient.Equal(decimal.RequireFromString("0.9")))

	stored, err := f.repo.GetProfile(ctx, alice.UserKey)
	require.NoError(t, err)
	assert.True(t, stored.ReductionCoefficient.Equal(decimal.RequireFromString("0.9")))
}

func TestUpdateCoefficient_RejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, bad := range []string{"0", "-1", "1.2"} {
		_, err := f.svc.UpdateCoefficient(ctx, alice, decimal.RequireFromString(bad))
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration, bad)
	}

	_, err := f.repo.GetProfile(ctx, alice.UserKey)
	assert.ErrorIs(t, err, domain.ErrUnknownUser, "rejected updates must not create a profile")
}

func TestUpdateIntervals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.UpdateIntervals(ctx, alice, 1.5, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, 1.5, p.InitialIntervalHours)
	assert.Equal(t, 1.0, p.MinIntervalHours)
	assert.Equal(t, 12.0, p.MaxIntervalHours)

	_, err = f.svc.UpdateIntervals(ctx, alice, 1, 13, 12)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	out, err := f.svc.RecordEvent(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(90*time.Minute), out.NextEventTime)
}

func TestUserLocks_ReleaseEntries(t *testing.T) {
	l := newUserLocks()
	unlock := l.lock(1)
	assert.Len(t, l.locks, 1)
	unlock()
	assert.Empty(t, l.locks)
}
