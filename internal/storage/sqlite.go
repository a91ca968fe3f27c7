package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"adaptive-coach/internal/readiness"
)

const (
	sqliteDayLayout = "2006-01-02"

	// Fixed-width so stored timestamps sort lexically.
	sqliteTSLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// LiteStore is the single-file SQLite backend.
type LiteStore struct {
	db    *sql.DB
	locks keyLocks
	now   func() time.Time
}

// OpenLite opens (and creates if necessary) the SQLite database at path.
// The special path ":memory:" opens a private in-memory database.
func OpenLite(path string) (*LiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := migrateLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &LiteStore{db: db, now: time.Now}, nil
}

func migrateLite(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS baselines (
			athlete TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			calculated_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			athlete TEXT NOT NULL,
			day TEXT NOT NULL,
			run_id TEXT NOT NULL,
			final_modifier TEXT NOT NULL,
			intensity_modifier TEXT NOT NULL,
			gap_modifier TEXT NOT NULL,
			confidence TEXT NOT NULL,
			recovery TEXT NOT NULL,
			illness_probability TEXT NOT NULL,
			gap_interpretation TEXT NOT NULL,
			phase TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			created_at TEXT NOT NULL,
			PRIMARY KEY (athlete, day)
		)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			athlete TEXT NOT NULL,
			day TEXT NOT NULL,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			channels TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (athlete, day, kind)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(athlete, created_at)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (l *LiteStore) Close() {
	if l == nil || l.db == nil {
		return
	}
	l.db.Close()
}

// TryAdvisoryLock acquires an in-process lock for key.
func (l *LiteStore) TryAdvisoryLock(_ context.Context, key int64) (func(), bool, error) {
	unlock, ok := l.locks.try(key)
	return unlock, ok, nil
}

// SaveBaseline replaces the athlete's baseline snapshot.
func (l *LiteStore) SaveBaseline(ctx context.Context, athlete string, baseline readiness.Baseline) error {
	payload, err := encodeBaseline(baseline)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO baselines (athlete, payload, calculated_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (athlete) DO UPDATE SET
			payload = excluded.payload,
			calculated_at = excluded.calculated_at,
			updated_at = excluded.updated_at
	`, athlete, string(payload), baseline.CalculatedAt.UTC().Format(sqliteTSLayout), l.now().UTC().Format(sqliteTSLayout))
	if err != nil {
		return fmt.Errorf("upsert baseline: %w", err)
	}
	return nil
}

// LoadBaseline reads the athlete's baseline snapshot.
func (l *LiteStore) LoadBaseline(ctx context.Context, athlete string) (readiness.Baseline, error) {
	var payload string
	err := l.db.QueryRowContext(ctx, `SELECT payload FROM baselines WHERE athlete = ?`, athlete).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return readiness.Baseline{}, ErrNoBaseline
	}
	if err != nil {
		return readiness.Baseline{}, fmt.Errorf("load baseline: %w", err)
	}
	return decodeBaseline([]byte(payload))
}

// UpsertDecision persists or replaces the decision of a day.
func (l *LiteStore) UpsertDecision(ctx context.Context, rec DecisionRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO decisions (
			athlete, day, run_id, final_modifier, intensity_modifier, gap_modifier,
			confidence, recovery, illness_probability, gap_interpretation, phase,
			payload, status, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (athlete, day) DO UPDATE SET
			run_id = excluded.run_id,
			final_modifier = excluded.final_modifier,
			intensity_modifier = excluded.intensity_modifier,
			gap_modifier = excluded.gap_modifier,
			confidence = excluded.confidence,
			recovery = excluded.recovery,
			illness_probability = excluded.illness_probability,
			gap_interpretation = excluded.gap_interpretation,
			phase = excluded.phase,
			payload = excluded.payload,
			status = excluded.status,
			error = excluded.error,
			created_at = excluded.created_at
	`,
		rec.Athlete,
		dayOf(rec.Day).Format(sqliteDayLayout),
		rec.RunID.String(),
		rec.FinalModifier.StringFixed(2),
		rec.IntensityModifier.StringFixed(2),
		rec.GapModifier.StringFixed(2),
		rec.Confidence,
		rec.Recovery,
		rec.IllnessProbability,
		rec.GapInterpretation,
		rec.Phase,
		string(rec.Payload),
		rec.Status,
		rec.Error,
		l.now().UTC().Format(sqliteTSLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert decision: %w", err)
	}
	return nil
}

const liteDecisionColumns = `athlete, day, run_id, final_modifier, intensity_modifier, gap_modifier,
	confidence, recovery, illness_probability, gap_interpretation, phase,
	payload, status, error, created_at`

// ListDecisionsBetween lists decisions with from <= day < to, oldest first.
func (l *LiteStore) ListDecisionsBetween(ctx context.Context, athlete string, from, to time.Time) ([]DecisionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+liteDecisionColumns+`
		FROM decisions
		WHERE athlete = ? AND day >= ? AND day < ?
		ORDER BY day
	`, athlete, dayOf(from).Format(sqliteDayLayout), dayOf(to).Format(sqliteDayLayout))
	if err != nil {
		return nil, fmt.Errorf("list decisions between: %w", err)
	}
	defer rows.Close()
	return scanLiteDecisions(rows)
}

// ListRecentDecisions lists the most recent decisions ordered by descending day.
func (l *LiteStore) ListRecentDecisions(ctx context.Context, athlete string, limit int) ([]DecisionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+liteDecisionColumns+`
		FROM decisions
		WHERE athlete = ?
		ORDER BY day DESC
		LIMIT ?
	`, athlete, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent decisions: %w", err)
	}
	defer rows.Close()
	return scanLiteDecisions(rows)
}

// CountDecisions counts stored decisions of the athlete.
func (l *LiteStore) CountDecisions(ctx context.Context, athlete string) (int64, error) {
	var count int64
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions WHERE athlete = ?`, athlete).Scan(&count); err != nil {
		return 0, fmt.Errorf("count decisions: %w", err)
	}
	return count, nil
}

// InsertAlert records an alert unless one of the same kind exists for the day.
func (l *LiteStore) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, bool, error) {
	rec := alert
	rec.Day = dayOf(alert.Day)
	rec.CreatedAt = l.now().UTC()

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO alerts (athlete, day, kind, severity, channels, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (athlete, day, kind) DO NOTHING
	`, rec.Athlete, rec.Day.Format(sqliteDayLayout), rec.Kind, rec.Severity,
		strings.Join(rec.Channels, ","), rec.CreatedAt.Format(sqliteTSLayout))
	if err != nil {
		return AlertRecord{}, false, fmt.Errorf("insert alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return AlertRecord{}, false, fmt.Errorf("insert alert: %w", err)
	}
	if affected == 0 {
		return AlertRecord{}, false, nil
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return AlertRecord{}, false, fmt.Errorf("insert alert id: %w", err)
	}
	return rec, true, nil
}

// ListRecentAlerts lists most recent alerts.
func (l *LiteStore) ListRecentAlerts(ctx context.Context, athlete string, limit int) ([]AlertRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, athlete, day, kind, severity, channels, created_at
		FROM alerts
		WHERE athlete = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, athlete, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var (
			rec                    AlertRecord
			day, channels, created string
		)
		if err := rows.Scan(&rec.ID, &rec.Athlete, &day, &rec.Kind, &rec.Severity, &channels, &created); err != nil {
			return nil, err
		}
		if rec.Day, err = time.Parse(sqliteDayLayout, day); err != nil {
			return nil, fmt.Errorf("parse alert day: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(sqliteTSLayout, created); err != nil {
			return nil, fmt.Errorf("parse alert created_at: %w", err)
		}
		if channels != "" {
			rec.Channels = strings.Split(channels, ",")
		}
		alerts = append(alerts, rec)
	}
	return alerts, rows.Err()
}

func scanLiteDecisions(rows *sql.Rows) ([]DecisionRecord, error) {
	records := make([]DecisionRecord, 0)
	for rows.Next() {
		var (
			raw          rawDecision
			day, created string
			payload      string
			errMsg       sql.NullString
		)
		if err := rows.Scan(
			&raw.athlete,
			&day,
			&raw.runID,
			&raw.final,
			&raw.intensity,
			&raw.gap,
			&raw.confidence,
			&raw.recovery,
			&raw.illness,
			&raw.gapInterpretation,
			&raw.phase,
			&payload,
			&raw.status,
			&errMsg,
			&created,
		); err != nil {
			return nil, err
		}

		var err error
		if raw.day, err = time.Parse(sqliteDayLayout, day); err != nil {
			return nil, fmt.Errorf("parse decision day: %w", err)
		}
		if raw.createdAt, err = time.Parse(sqliteTSLayout, created); err != nil {
			return nil, fmt.Errorf("parse decision created_at: %w", err)
		}
		raw.payload = []byte(payload)
		if errMsg.Valid {
			msg := errMsg.String
			raw.errMsg = &msg
		}

		rec, err := raw.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
