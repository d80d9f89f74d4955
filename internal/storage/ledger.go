package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// Compile-time interface check.
var _ domain.ActivityLedger = (*Ledger)(nil)

const dayLayout = "2006-01-02"

// Ledger records earned XP and practice days in a SQL database so that
// streaks survive offline sessions. sqlite3 is the default driver;
// postgres works with the same schema.
type Ledger struct {
	db  *sqlx.DB
	log *logger.Logger
}

// XPEvent is one row of the xp_events table.
type XPEvent struct {
	ID        string    `db:"id"`
	UserKey   string    `db:"user_key"`
	Source    string    `db:"source"`
	Points    int       `db:"points"`
	CreatedAt time.Time `db:"created_at"`
}

// OpenLedger connects to the database and creates the tables if needed.
func OpenLedger(driver, dsn string, log *logger.Logger) (*Ledger, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connecting ledger (%s): %w", driver, err)
	}
	if driver == "sqlite3" {
		// SQLite doesn't support multiple writers.
		db.SetMaxOpenConns(1)
	}
	l := &Ledger{db: db, log: log}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("ledger ready (%s)", driver)
	return l, nil
}

func (l *Ledger) initSchema() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS xp_events (
			id TEXT PRIMARY KEY,
			user_key TEXT NOT NULL,
			source TEXT NOT NULL,
			points INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("storage: creating xp_events table: %w", err)
	}

	_, err = l.db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_days (
			user_key TEXT NOT NULL,
			day TEXT NOT NULL,
			PRIMARY KEY (user_key, day)
		)
	`)
	if err != nil {
		return fmt.Errorf("storage: creating activity_days table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// AddXP records points earned from source.
func (l *Ledger) AddXP(ctx context.Context, userKey, source string, points int) error {
	if points <= 0 {
		return nil
	}
	query := l.db.Rebind(`INSERT INTO xp_events (id, user_key, source, points, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := l.db.ExecContext(ctx, query, uuid.New().String(), userKey, source, points, time.Now().UTC()); err != nil {
		return fmt.Errorf("storage: adding xp: %w", err)
	}
	l.log.Debug("ledger: +%d XP for %s from %s", points, userKey, source)
	return nil
}

// TotalXP sums every recorded XP event for the user.
func (l *Ledger) TotalXP(ctx context.Context, userKey string) (int, error) {
	var total int
	query := l.db.Rebind(`SELECT COALESCE(SUM(points), 0) FROM xp_events WHERE user_key = ?`)
	if err := l.db.GetContext(ctx, &total, query, userKey); err != nil {
		return 0, fmt.Errorf("storage: summing xp: %w", err)
	}
	return total, nil
}

// Events returns the user's XP events, newest first.
func (l *Ledger) Events(ctx context.Context, userKey string, limit int) ([]XPEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []XPEvent
	query := l.db.Rebind(`
		SELECT id, user_key, source, points, created_at
		FROM xp_events
		WHERE user_key = ?
		ORDER BY created_at DESC
		LIMIT ?
	`)
	if err := l.db.SelectContext(ctx, &events, query, userKey, limit); err != nil {
		return nil, fmt.Errorf("storage: listing xp events: %w", err)
	}
	return events, nil
}

// MarkActive records that the user practiced on day. Repeated calls for
// the same day are no-ops.
func (l *Ledger) MarkActive(ctx context.Context, userKey string, day time.Time) error {
	query := l.db.Rebind(`INSERT INTO activity_days (user_key, day) VALUES (?, ?) ON CONFLICT DO NOTHING`)
	if _, err := l.db.ExecContext(ctx, query, userKey, day.Format(dayLayout)); err != nil {
		return fmt.Errorf("storage: marking activity: %w", err)
	}
	return nil
}

// ActiveOn reports whether the user practiced on day.
func (l *Ledger) ActiveOn(ctx context.Context, userKey string, day time.Time) (bool, error) {
	var n int
	query := l.db.Rebind(`SELECT COUNT(*) FROM activity_days WHERE user_key = ? AND day = ?`)
	if err := l.db.GetContext(ctx, &n, query, userKey, day.Format(dayLayout)); err != nil {
		return false, fmt.Errorf("storage: checking activity: %w", err)
	}
	return n > 0, nil
}

// LocalStreak counts consecutive practice days ending today, or ending
// yesterday when today has no activity yet.
func (l *Ledger) LocalStreak(ctx context.Context, userKey string, today time.Time) (int, error) {
	var days []string
	query := l.db.Rebind(`SELECT day FROM activity_days WHERE user_key = ? ORDER BY day DESC`)
	if err := l.db.SelectContext(ctx, &days, query, userKey); err != nil {
		return 0, fmt.Errorf("storage: listing activity: %w", err)
	}
	return streakFrom(days, today), nil
}

// streakFrom counts the run of consecutive days in a descending list.
func streakFrom(days []string, today time.Time) int {
	if len(days) == 0 {
		return 0
	}
	cursor := today
	if days[0] != cursor.Format(dayLayout) {
		cursor = cursor.AddDate(0, 0, -1)
	}
	streak := 0
	for _, d := range days {
		if d != cursor.Format(dayLayout) {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}
