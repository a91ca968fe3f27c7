package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"adaptive-coach/internal/readiness"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNoBaseline indicates no baseline snapshot has been stored for the athlete.
	ErrNoBaseline = errors.New("storage: no baseline stored")
)

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS baselines (
        athlete       TEXT PRIMARY KEY,
        payload       JSONB NOT NULL,
        calculated_at TIMESTAMPTZ NOT NULL,
        updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS decisions (
        athlete             TEXT NOT NULL,
        day                 DATE NOT NULL,
        run_id              UUID NOT NULL,
        final_modifier      NUMERIC(6,2) NOT NULL,
        intensity_modifier  NUMERIC(6,2) NOT NULL,
        gap_modifier        NUMERIC(6,2) NOT NULL,
        confidence          TEXT NOT NULL,
        recovery            TEXT NOT NULL,
        illness_probability TEXT NOT NULL,
        gap_interpretation  TEXT NOT NULL,
        phase               TEXT NOT NULL DEFAULT '',
        payload             JSONB NOT NULL,
        status              TEXT NOT NULL,
        error               TEXT,
        created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (athlete, day)
    );
    CREATE TABLE IF NOT EXISTS alerts (
        id         BIGSERIAL PRIMARY KEY,
        athlete    TEXT NOT NULL,
        day        DATE NOT NULL,
        kind       TEXT NOT NULL,
        severity   TEXT NOT NULL,
        channels   TEXT[] NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (athlete, day, kind)
    );`

	upsertBaselineSQL = `INSERT INTO baselines (athlete, payload, calculated_at, updated_at)
    VALUES ($1, $2, $3, now())
    ON CONFLICT (athlete) DO UPDATE
    SET payload       = EXCLUDED.payload,
        calculated_at = EXCLUDED.calculated_at,
        updated_at    = now();`

	loadBaselineSQL = `SELECT payload FROM baselines WHERE athlete = $1;`

	upsertDecisionSQL = `INSERT INTO decisions (
        athlete,
        day,
        run_id,
        final_modifier,
        intensity_modifier,
        gap_modifier,
        confidence,
        recovery,
        illness_probability,
        gap_interpretation,
        phase,
        payload,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
    )
    ON CONFLICT (athlete, day) DO UPDATE
    SET
        run_id              = EXCLUDED.run_id,
        final_modifier      = EXCLUDED.final_modifier,
        intensity_modifier  = EXCLUDED.intensity_modifier,
        gap_modifier        = EXCLUDED.gap_modifier,
        confidence          = EXCLUDED.confidence,
        recovery            = EXCLUDED.recovery,
        illness_probability = EXCLUDED.illness_probability,
        gap_interpretation  = EXCLUDED.gap_interpretation,
        phase               = EXCLUDED.phase,
        payload             = EXCLUDED.payload,
        status              = EXCLUDED.status,
        error               = EXCLUDED.error,
        created_at          = now();`

	decisionColumns = `athlete,
        day,
        run_id::text,
        final_modifier::text,
        intensity_modifier::text,
        gap_modifier::text,
        confidence,
        recovery,
        illness_probability,
        gap_interpretation,
        phase,
        payload,
        status,
        error,
        created_at`

	listDecisionsBetweenSQL = `SELECT ` + decisionColumns + `
    FROM decisions
    WHERE athlete = $1
      AND day >= $2
      AND day < $3
    ORDER BY day;`

	listRecentDecisionsSQL = `SELECT ` + decisionColumns + `
    FROM decisions
    WHERE athlete = $1
    ORDER BY day DESC
    LIMIT $2;`

	countDecisionsSQL = `SELECT COUNT(*) FROM decisions WHERE athlete = $1;`

	insertAlertSQL = `INSERT INTO alerts (
        athlete,
        day,
        kind,
        severity,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (athlete, day, kind) DO NOTHING
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        athlete,
        day,
        kind,
        severity,
        channels,
        created_at
    FROM alerts
    WHERE athlete = $1
    ORDER BY created_at DESC
    LIMIT $2;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// BaselineSnapshots persists the single current baseline per athlete.
type BaselineSnapshots interface {
	SaveBaseline(ctx context.Context, athlete string, baseline readiness.Baseline) error
	// LoadBaseline returns ErrNoBaseline when nothing has been stored.
	LoadBaseline(ctx context.Context, athlete string) (readiness.Baseline, error)
}

// DecisionStore defines operations for decision audit persistence.
type DecisionStore interface {
	UpsertDecision(ctx context.Context, rec DecisionRecord) error
	ListDecisionsBetween(ctx context.Context, athlete string, from, to time.Time) ([]DecisionRecord, error)
	ListRecentDecisions(ctx context.Context, athlete string, limit int) ([]DecisionRecord, error)
	CountDecisions(ctx context.Context, athlete string) (int64, error)
}

// AlertStore defines operations for alert auditing. InsertAlert reports
// false when an alert of the same kind was already recorded for the day.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, bool, error)
	ListRecentAlerts(ctx context.Context, athlete string, limit int) ([]AlertRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Backend is implemented by every storage driver.
type Backend interface {
	BaselineSnapshots
	DecisionStore
	AlertStore
	AdvisoryLocker
	Close()
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*LiteStore)(nil)
	_ Backend = (*MemoryStore)(nil)
)

// Store is the PostgreSQL backend.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// A failed unlock is released with the session when the connection closes.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// SaveBaseline replaces the athlete's baseline snapshot.
func (s *Store) SaveBaseline(ctx context.Context, athlete string, baseline readiness.Baseline) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	payload, err := encodeBaseline(baseline)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, upsertBaselineSQL, athlete, payload, baseline.CalculatedAt); err != nil {
		return fmt.Errorf("upsert baseline: %w", err)
	}
	return nil
}

// LoadBaseline reads the athlete's baseline snapshot.
func (s *Store) LoadBaseline(ctx context.Context, athlete string) (readiness.Baseline, error) {
	pool, err := s.getPool()
	if err != nil {
		return readiness.Baseline{}, err
	}
	var payload []byte
	if err := pool.QueryRow(ctx, loadBaselineSQL, athlete).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return readiness.Baseline{}, ErrNoBaseline
		}
		return readiness.Baseline{}, fmt.Errorf("load baseline: %w", err)
	}
	return decodeBaseline(payload)
}

// UpsertDecision persists or replaces the decision of a day.
func (s *Store) UpsertDecision(ctx context.Context, rec DecisionRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if rec.Error != nil {
		errMsg = *rec.Error
	}

	_, execErr := pool.Exec(ctx, upsertDecisionSQL,
		rec.Athlete,
		dayOf(rec.Day),
		rec.RunID.String(),
		rec.FinalModifier.String(),
		rec.IntensityModifier.String(),
		rec.GapModifier.String(),
		rec.Confidence,
		rec.Recovery,
		rec.IllnessProbability,
		rec.GapInterpretation,
		rec.Phase,
		[]byte(rec.Payload),
		rec.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("upsert decision: %w", execErr)
	}
	return nil
}

// ListDecisionsBetween lists decisions with from <= day < to, oldest first.
func (s *Store) ListDecisionsBetween(ctx context.Context, athlete string, from, to time.Time) ([]DecisionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listDecisionsBetweenSQL, athlete, dayOf(from), dayOf(to))
	if queryErr != nil {
		return nil, fmt.Errorf("list decisions between: %w", queryErr)
	}
	defer rows.Close()
	return collectDecisions(rows, 0)
}

// ListRecentDecisions lists the most recent decisions ordered by descending day.
func (s *Store) ListRecentDecisions(ctx context.Context, athlete string, limit int) ([]DecisionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentDecisionsSQL, athlete, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent decisions: %w", queryErr)
	}
	defer rows.Close()
	return collectDecisions(rows, limit)
}

// CountDecisions counts stored decisions of the athlete.
func (s *Store) CountDecisions(ctx context.Context, athlete string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countDecisionsSQL, athlete).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count decisions: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission unless one of the same kind exists for the day.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, false, err
	}

	rec := alert
	rec.Day = dayOf(alert.Day)
	row := pool.QueryRow(ctx, insertAlertSQL,
		rec.Athlete,
		rec.Day,
		rec.Kind,
		rec.Severity,
		rec.Channels,
	)
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return AlertRecord{}, false, nil
		}
		return AlertRecord{}, false, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, true, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, athlete string, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, athlete, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Athlete,
			&rec.Day,
			&rec.Kind,
			&rec.Severity,
			&rec.Channels,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func collectDecisions(rows pgx.Rows, capacity int) ([]DecisionRecord, error) {
	records := make([]DecisionRecord, 0, capacity)
	for rows.Next() {
		var raw rawDecision
		if err := rows.Scan(
			&raw.athlete,
			&raw.day,
			&raw.runID,
			&raw.final,
			&raw.intensity,
			&raw.gap,
			&raw.confidence,
			&raw.recovery,
			&raw.illness,
			&raw.gapInterpretation,
			&raw.phase,
			&raw.payload,
			&raw.status,
			&raw.errMsg,
			&raw.createdAt,
		); err != nil {
			return nil, err
		}
		rec, err := raw.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// rawDecision is a decision row before its textual columns are parsed.
type rawDecision struct {
	athlete           string
	day               time.Time
	runID             string
	final             string
	intensity         string
	gap               string
	confidence        string
	recovery          string
	illness           string
	gapInterpretation string
	phase             string
	payload           []byte
	status            string
	errMsg            *string
	createdAt         time.Time
}

func (r rawDecision) record() (DecisionRecord, error) {
	runID, err := uuid.Parse(r.runID)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("parse run id: %w", err)
	}
	final, err := decimal.NewFromString(r.final)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("parse final modifier: %w", err)
	}
	intensity, err := decimal.NewFromString(r.intensity)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("parse intensity modifier: %w", err)
	}
	gap, err := decimal.NewFromString(r.gap)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("parse gap modifier: %w", err)
	}
	return DecisionRecord{
		RunID:              runID,
		Athlete:            r.athlete,
		Day:                dayOf(r.day),
		FinalModifier:      final,
		IntensityModifier:  intensity,
		GapModifier:        gap,
		Confidence:         r.confidence,
		Recovery:           r.recovery,
		IllnessProbability: r.illness,
		GapInterpretation:  r.gapInterpretation,
		Phase:              r.phase,
		Payload:            r.payload,
		Status:             r.status,
		Error:              r.errMsg,
		CreatedAt:          r.createdAt,
	}, nil
}
