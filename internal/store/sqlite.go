package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/smoke-bot/internal/domain"
)

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct {
	db *sql.DB
	q  querier
	tx bool
}

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db, q: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	if r.tx {
		return errors.New("close called inside transaction")
	}
	return r.db.Close()
}

// InTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (r *SQLiteRepo) InTx(ctx context.Context, fn func(Repo) error) error {
	if r.tx {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&SQLiteRepo{db: r.db, q: tx, tx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const profileColumns = `
	user_key, chat_id, username, full_name, created_at,
	reduction_coefficient, initial_interval_hours, min_interval_hours, max_interval_hours,
	target_quit_date, quit_date_capped, reminders_enabled, next_reminder_at`

// EnsureProfile inserts the seed profile if the user is new and returns the stored row.
// Existing settings are left untouched; only chat and display names are refreshed.
func (r *SQLiteRepo) EnsureProfile(ctx context.Context, seed *domain.Profile) (*domain.Profile, error) {
	if seed == nil {
		return nil, errors.New("nil profile")
	}
	created := seed.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			chat_id   = excluded.chat_id,
			username  = excluded.username,
			full_name = excluded.full_name`,
		seed.UserKey, seed.ChatID, seed.Username, seed.FullName, created.UTC().UnixMilli(),
		seed.ReductionCoefficient.StringFixed(2), seed.InitialIntervalHours,
		seed.MinIntervalHours, seed.MaxIntervalHours,
		toNullDate(seed.TargetQuitDate), boolToInt(seed.QuitDateCapped),
		boolToInt(seed.RemindersEnabled), toNullMillis(seed.NextReminderAt),
	)
	if err != nil {
		return nil, fmt.Errorf("ensure profile %d: %w", seed.UserKey, err)
	}
	return r.GetProfile(ctx, seed.UserKey)
}

// GetProfile returns a user's profile or domain.ErrUnknownUser.
func (r *SQLiteRepo) GetProfile(ctx context.Context, userKey int64) (*domain.Profile, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_key = ?`, userKey)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownUser, userKey)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %d: %w", userKey, err)
	}
	return p, nil
}

// UpdateProfile overwrites the mutable fields of an existing profile.
func (r *SQLiteRepo) UpdateProfile(ctx context.Context, p *domain.Profile) error {
	if p == nil {
		return errors.New("nil profile")
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE profiles SET
			chat_id                = ?,
			username               = ?,
			full_name              = ?,
			reduction_coefficient  = ?,
			initial_interval_hours = ?,
			min_interval_hours     = ?,
			max_interval_hours     = ?,
			target_quit_date       = ?,
			quit_date_capped       = ?,
			reminders_enabled      = ?,
			next_reminder_at       = ?
		WHERE user_key = ?`,
		p.ChatID, p.Username, p.FullName,
		p.ReductionCoefficient.StringFixed(2), p.InitialIntervalHours,
		p.MinIntervalHours, p.MaxIntervalHours,
		toNullDate(p.TargetQuitDate), boolToInt(p.QuitDateCapped),
		boolToInt(p.RemindersEnabled), toNullMillis(p.NextReminderAt),
		p.UserKey,
	)
	if err != nil {
		return fmt.Errorf("update profile %d: %w", p.UserKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", domain.ErrUnknownUser, p.UserKey)
	}
	return nil
}

// AppendEvent stores a new event and returns its id.
func (r *SQLiteRepo) AppendEvent(ctx context.Context, userKey int64, at time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO events (user_key, occurred_at) VALUES (?, ?)`,
		userKey, at.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("append event for %d: %w", userKey, err)
	}
	return res.LastInsertId()
}

// RecentEvents returns up to limit events for a user, newest first.
// Events with equal timestamps are ordered by insertion.
func (r *SQLiteRepo) RecentEvents(ctx context.Context, userKey int64, limit int) ([]domain.Event, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_key, occurred_at
		FROM events
		WHERE user_key = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`,
		userKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events for %d: %w", userKey, err)
	}
	defer rows.Close()

	var res []domain.Event
	for rows.Next() {
		var (
			e  domain.Event
			at int64
		)
		if err := rows.Scan(&e.ID, &e.UserKey, &at); err != nil {
			return nil, err
		}
		e.OccurredAt = time.UnixMilli(at).UTC()
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// CountEvents returns how many events a user has logged.
func (r *SQLiteRepo) CountEvents(ctx context.Context, userKey int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE user_key = ?`, userKey).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events for %d: %w", userKey, err)
	}
	return n, nil
}

// ListDueReminders returns up to `limit` profiles whose next_reminder_at is <= now
// and whose reminders are enabled. Results are ordered by next_reminder_at ascending.
func (r *SQLiteRepo) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.Profile, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE reminders_enabled = 1
		  AND next_reminder_at IS NOT NULL
		  AND next_reminder_at <= ?
		ORDER BY next_reminder_at ASC
		LIMIT ?`,
		now.UnixMilli(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// SetReminder sets or clears (at == nil) the next reminder time for a user.
func (r *SQLiteRepo) SetReminder(ctx context.Context, userKey int64, at *time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE profiles
		SET next_reminder_at = ?
		WHERE user_key = ?`,
		toNullMillis(at), userKey,
	)
	return err
}

// SwapReminder is SetReminder guarded by the previously read value.
func (r *SQLiteRepo) SwapReminder(ctx context.Context, userKey int64, expected time.Time, at *time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE profiles
		SET next_reminder_at = ?
		WHERE user_key = ? AND next_reminder_at = ?`,
		toNullMillis(at), userKey, expected.UnixMilli(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(s rowScanner) (*domain.Profile, error) {
	var (
		p          domain.Profile
		createdAt  int64
		coef       string
		quitNS     sql.NullString
		cappedInt  int
		enabledInt int
		reminderNS sql.NullInt64
	)
	if err := s.Scan(
		&p.UserKey, &p.ChatID, &p.Username, &p.FullName, &createdAt,
		&coef, &p.InitialIntervalHours, &p.MinIntervalHours, &p.MaxIntervalHours,
		&quitNS, &cappedInt, &enabledInt, &reminderNS,
	); err != nil {
		return nil, err
	}

	c, err := decimal.NewFromString(coef)
	if err != nil {
		return nil, fmt.Errorf("reduction_coefficient %q: %w", coef, err)
	}
	quit, err := fromNullDate(quitNS)
	if err != nil {
		return nil, fmt.Errorf("target_quit_date: %w", err)
	}

	p.ReductionCoefficient = c
	p.TargetQuitDate = quit
	p.QuitDateCapped = cappedInt != 0
	p.RemindersEnabled = enabledInt != 0
	p.NextReminderAt = fromNullMillis(reminderNS)
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &p, nil
}
