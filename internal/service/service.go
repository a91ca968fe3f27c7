package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"adaptive-coach/internal/alerting"
	"adaptive-coach/internal/fetcher"
	"adaptive-coach/internal/metrics"
	"adaptive-coach/internal/readiness"
	"adaptive-coach/internal/scheduler"
	"adaptive-coach/internal/storage"
)

// ErrLocked is returned when another process holds the cycle lock.
var ErrLocked = errors.New("decision cycle locked elsewhere")

// Options tune one athlete's decision cycle.
type Options struct {
	Athlete       string
	Location      *time.Location
	WellnessDays  int
	ActivityDays  int
	AlertsEnabled bool
	Channels      []string
	LockKey       int64
}

// Result is the outcome of one cycle.
type Result struct {
	RunID    uuid.UUID
	Day      time.Time
	Decision readiness.Decision
	Status   string
	Problems []string
	Alerts   []alerting.Notification
}

// Service orchestrates fetching, deciding, persistence, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	source    fetcher.Source
	engine    *readiness.Engine
	store     storage.Backend
	notifier  alerting.Notifier
	recorder  *metrics.Recorder
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time
}

// New constructs the decision service. sched, store, notifier and recorder
// may be nil.
func New(opts Options, sched *scheduler.Scheduler, source fetcher.Source, engine *readiness.Engine, store storage.Backend, notifier alerting.Notifier, recorder *metrics.Recorder, logger zerolog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.WellnessDays <= 0 {
		opts.WellnessDays = 45
	}
	if opts.ActivityDays <= 0 {
		opts.ActivityDays = 42
	}
	return &Service{
		scheduler: sched,
		source:    source,
		engine:    engine,
		store:     store,
		notifier:  notifier,
		recorder:  recorder,
		opts:      opts,
		logger:    logger.With().Str("component", "service").Str("athlete", opts.Athlete).Logger(),
		now:       time.Now,
	}
}

// Run begins the scheduled decision loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket runs the cycle for the calendar day containing bucket,
// skipping quietly when another process holds the lock.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	_, err := s.ProcessDay(ctx, bucket)
	if errors.Is(err, ErrLocked) {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	return err
}

// ProcessDay runs a full cycle for day under the advisory lock: fetch,
// decide, persist and alert.
func (s *Service) ProcessDay(ctx context.Context, day time.Time) (Result, error) {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return Result{}, err
	}
	if !proceed {
		return Result{}, ErrLocked
	}
	if unlock != nil {
		defer unlock()
	}

	start := s.now()
	res, err := s.Evaluate(ctx, day)
	if err != nil {
		s.recorder.ObserveDecision(s.opts.Athlete, "failed", 0, s.now().Sub(start))
		return res, err
	}

	s.persist(ctx, res)
	if s.opts.AlertsEnabled {
		res.Alerts = s.dispatchAlerts(ctx, res)
	}

	s.recorder.ObserveDecision(s.opts.Athlete, res.Status, res.Decision.FinalModifier, s.now().Sub(start))
	return res, nil
}

// Evaluate fetches inputs and computes the decision without persisting it
// or sending alerts. The baseline snapshot is still refreshed.
func (s *Service) Evaluate(ctx context.Context, day time.Time) (Result, error) {
	today := s.localDay(day)
	res := Result{RunID: uuid.New(), Day: today, Status: storage.StatusOK}
	log := s.logger.With().Time("day", today).Str("run_id", res.RunID.String()).Logger()

	wellness, err := s.source.FetchWellness(ctx, today.AddDate(0, 0, -(s.opts.WellnessDays-1)), today)
	if err != nil {
		s.recorder.FetchFailed("wellness")
		return res, fmt.Errorf("fetch wellness: %w", err)
	}

	in := readiness.Inputs{Today: today, Wellness: wellness}
	degrade := func(source string, err error) {
		s.recorder.FetchFailed(source)
		res.Status = storage.StatusDegraded
		res.Problems = append(res.Problems, fmt.Sprintf("%s: %v", source, err))
		log.Warn().Err(err).Str("source", source).Msg("fetch failed; degrading decision")
	}

	activities, err := s.source.FetchActivities(ctx, today.AddDate(0, 0, -s.opts.ActivityDays), today)
	if err != nil {
		degrade("activities", err)
		in.ActivitiesUnavailable = true
	} else {
		in.Activities = activities
	}

	fitness, err := s.source.FetchFitness(ctx, today)
	switch {
	case err != nil:
		degrade("fitness", err)
		in.Fitness = readiness.CurrentFitness(in.Activities, today)
	case fitness == nil:
		in.Fitness = readiness.CurrentFitness(in.Activities, today)
	default:
		in.Fitness = fitness
	}

	goal, err := s.source.FetchNextGoal(ctx, today)
	if err != nil {
		degrade("goal", err)
	} else {
		in.Goal = goal
	}

	res.Decision = s.engine.Decide(ctx, in)

	log.Info().
		Int("wellness_records", len(wellness)).
		Int("activities", len(in.Activities)).
		Str("status", res.Status).
		Float64("final_modifier", res.Decision.FinalModifier).
		Msg("decision cycle complete")
	return res, nil
}

func (s *Service) persist(ctx context.Context, res Result) {
	if s.store == nil {
		return
	}
	record, err := s.record(res)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", res.RunID.String()).Msg("failed to encode decision")
		return
	}
	if err := s.store.UpsertDecision(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("run_id", res.RunID.String()).Msg("failed to upsert decision")
	}
}

func (s *Service) record(res Result) (storage.DecisionRecord, error) {
	payload, err := json.Marshal(res.Decision)
	if err != nil {
		return storage.DecisionRecord{}, fmt.Errorf("marshal decision: %w", err)
	}

	d := res.Decision
	rec := storage.DecisionRecord{
		RunID:              res.RunID,
		Athlete:            s.opts.Athlete,
		Day:                res.Day,
		FinalModifier:      decimal.NewFromFloat(d.FinalModifier).Round(2),
		IntensityModifier:  decimal.NewFromFloat(d.Intensity.Modifier).Round(2),
		GapModifier:        decimal.NewFromFloat(d.Gap.IntensityModifier).Round(2),
		Confidence:         d.Intensity.Confidence,
		Recovery:           d.Recovery.Category,
		IllnessProbability: d.Illness.Probability,
		GapInterpretation:  d.Gap.Interpretation,
		Payload:            payload,
		Status:             res.Status,
		CreatedAt:          s.now().UTC(),
	}
	if d.Phase != nil {
		rec.Phase = d.Phase.Name
	}
	if len(res.Problems) > 0 {
		msg := strings.Join(res.Problems, "; ")
		rec.Error = &msg
	}
	return rec, nil
}

func (s *Service) dispatchAlerts(ctx context.Context, res Result) []alerting.Notification {
	var sent []alerting.Notification
	for _, note := range alerting.Evaluate(s.opts.Athlete, res.Decision, s.opts.Channels) {
		log := s.logger.With().Time("day", res.Day).Str("kind", note.Kind).Logger()

		if s.store != nil {
			_, inserted, err := s.store.InsertAlert(ctx, storage.AlertRecord{
				Athlete:  s.opts.Athlete,
				Day:      res.Day,
				Kind:     note.Kind,
				Severity: note.Severity,
				Channels: note.Channels,
			})
			if err != nil {
				log.Error().Err(err).Msg("failed to persist alert record")
			} else if !inserted {
				log.Debug().Msg("alert already sent for this day")
				continue
			}
		}

		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, note); err != nil {
				log.Error().Err(err).Msg("failed to dispatch alert")
				continue
			}
		}
		s.recorder.AlertSent(note.Kind)
		sent = append(sent, note)
	}
	return sent
}

func (s *Service) localDay(t time.Time) time.Time {
	y, m, d := t.In(s.opts.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.opts.Location)
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.opts.LockKey == 0 || s.store == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.store.TryAdvisoryLock(ctx, s.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
