package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"adaptive-coach/internal/alerting"
	"adaptive-coach/internal/config"
	"adaptive-coach/internal/enhance"
	"adaptive-coach/internal/fetcher"
	"adaptive-coach/internal/metrics"
	"adaptive-coach/internal/readiness"
	"adaptive-coach/internal/scheduler"
	"adaptive-coach/internal/service"
	"adaptive-coach/internal/storage"
	"adaptive-coach/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) athlete() string {
	return a.Config.Intervals.AthleteID
}

func (a *App) location() *time.Location {
	loc, err := a.Config.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}

func (a *App) newSource() fetcher.Source {
	cfg := a.Config.Intervals
	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}
	return fetcher.NewIntervals(fetcher.IntervalsOptions{
		BaseURL:   cfg.BaseURL,
		AthleteID: cfg.AthleteID,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
		Location:  a.location(),
	}, a.Logger)
}

func (a *App) newEnhancer() readiness.Enhancer {
	cfg := a.Config.Enhance
	if !cfg.Enabled {
		return nil
	}
	return enhance.New(enhance.Options{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		Timeout: cfg.RequestTimeout,
	}, a.Logger)
}

// newNotifier resolves alerting.channels into notifiers. It returns nil
// when no channel is usable.
func (a *App) newNotifier() alerting.Notifier {
	var out alerting.Fanout
	for _, channel := range a.Config.Alerting.Channels {
		switch channel {
		case "telegram":
			cfg := a.Config.Alerting.Telegram
			if !cfg.Enabled {
				a.Logger.Warn().Msg("telegram channel listed but alerting.telegram.enabled is false")
				continue
			}
			out = append(out, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
		case "log":
			out = append(out, alerting.NewLogNotifier(a.Logger))
		default:
			a.Logger.Warn().Str("channel", channel).Msg("unknown alert channel ignored")
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

func (a *App) openStore(ctx context.Context) (storage.Backend, func(), error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", a.Config.Database.Driver, err)
	}
	return store, store.Close, nil
}

func (a *App) newEngine(store storage.BaselineSnapshots) *readiness.Engine {
	var repo readiness.BaselineRepository
	if store != nil {
		repo = storage.NewAthleteBaselines(store, a.athlete())
	}
	cfg := a.Config.Engine
	baselines := readiness.NewBaselineStore(repo, readiness.BaselineOptions{MaxAge: cfg.BaselineMaxAge}, a.Logger)
	return readiness.NewEngine(baselines, a.newEnhancer(), readiness.EngineOptions{
		Illness: readiness.IllnessOptions{
			DaysToCheck:        cfg.IllnessDaysToCheck,
			MinConsecutiveDays: cfg.IllnessMinConsecutiveDays,
		},
		YellowModifier:  cfg.YellowModifier,
		GoalCTL:         cfg.GoalCTL,
		GapLookbackDays: cfg.GapLookbackDays,
	}, a.Logger)
}

// serviceDeps carries the optional collaborators of one service instance.
type serviceDeps struct {
	scheduler *scheduler.Scheduler
	source    fetcher.Source
	store     storage.Backend
	notifier  alerting.Notifier
	recorder  *metrics.Recorder
	alerts    bool
	// historical runs decide past days and leave the stored baseline alone.
	historical bool
}

func (a *App) newService(deps serviceDeps) *service.Service {
	if deps.source == nil {
		deps.source = a.newSource()
	}
	var snapshots storage.BaselineSnapshots
	if deps.store != nil && !deps.historical {
		snapshots = deps.store
	}
	return service.New(service.Options{
		Athlete:       a.athlete(),
		Location:      a.location(),
		WellnessDays:  a.Config.Intervals.WellnessDays,
		ActivityDays:  a.Config.Intervals.ActivityDays,
		AlertsEnabled: deps.alerts,
		Channels:      a.Config.Alerting.Channels,
		LockKey:       a.Config.Scheduler.AdvisoryLockKey,
	}, deps.scheduler, deps.source, a.newEngine(snapshots), deps.store, deps.notifier, deps.recorder, a.Logger)
}

func (a *App) newScheduler() (*scheduler.Scheduler, error) {
	cfg := a.Config.Scheduler
	opts := scheduler.Options{
		Interval:     cfg.Interval,
		AlignToStart: cfg.AlignToBucket,
		StartupDelay: cfg.StartupDelay,
		Location:     a.location(),
	}
	if cfg.Cron != "" {
		schedule, err := scheduler.ParseCron(cfg.Cron)
		if err != nil {
			return nil, err
		}
		opts.Schedule = schedule
	}
	return scheduler.New(opts, a.Logger), nil
}

// Run executes the long-running daily decision service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	sched, err := a.newScheduler()
	if err != nil {
		return err
	}

	recorder := metrics.New()
	if a.Config.Metrics.Listen != "" {
		stop := a.serveMetrics(recorder)
		defer stop()
	}

	notifier := a.newNotifier()
	alertsOn := a.Config.Alerting.Enabled && notifier != nil
	if a.Config.Alerting.Enabled && notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no usable channel configured")
	}

	svc := a.newService(serviceDeps{
		scheduler: sched,
		store:     store,
		notifier:  notifier,
		recorder:  recorder,
		alerts:    alertsOn,
	})

	a.Logger.Info().
		Str("athlete", a.athlete()).
		Str("driver", a.Config.Database.Driver).
		Str("cron", a.Config.Scheduler.Cron).
		Dur("interval", a.Config.Scheduler.Interval).
		Msg("starting decision service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("decision service stopped")
	return nil
}

func (a *App) serveMetrics(recorder *metrics.Recorder) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{
		Addr:              a.Config.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Str("listen", srv.Addr).Msg("metrics server failed")
		}
	}()
	a.Logger.Info().Str("listen", srv.Addr).Msg("metrics endpoint started")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
}

// DecideOptions configure the decide command.
type DecideOptions struct {
	Day    time.Time
	DryRun bool
	JSON   bool
}

// ExportOptions hold parameters for exporting historical decisions.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// BackfillOptions configure the backfill job. Both days are inclusive.
type BackfillOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}
