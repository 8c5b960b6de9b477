package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/irrrl-engine/internal/config"
	"github.com/kirillkom/irrrl-engine/internal/core/eligibility"
	"github.com/kirillkom/irrrl-engine/internal/core/ntb"
	"github.com/kirillkom/irrrl-engine/internal/core/policy"
	"github.com/kirillkom/irrrl-engine/internal/core/ports"
	"github.com/kirillkom/irrrl-engine/internal/core/usecase"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
	"github.com/kirillkom/irrrl-engine/internal/infrastructure/checklist"
	"github.com/kirillkom/irrrl-engine/internal/infrastructure/lock"
	"github.com/kirillkom/irrrl-engine/internal/infrastructure/queue/logonly"
	"github.com/kirillkom/irrrl-engine/internal/infrastructure/queue/nats"
	"github.com/kirillkom/irrrl-engine/internal/infrastructure/repository/memory"
	"github.com/kirillkom/irrrl-engine/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/irrrl-engine/internal/infrastructure/resilience"
	"github.com/kirillkom/irrrl-engine/internal/infrastructure/worksheet"
)

type App struct {
	Config config.Config
	Policy policy.Policy

	Repo       ports.ApplicationRepository
	Publisher  ports.EventPublisher
	Subscriber ports.EventSubscriber

	Intake   *usecase.IntakeUseCase
	Reader   *usecase.ApplicationReader
	Decision *usecase.DecisionUseCase
	Workflow *usecase.WorkflowUseCase
	Analysis *usecase.AnalysisUseCase

	closers []func()
}

type Option func(*options)

type options struct {
	recorder ports.DecisionRecorder
	name     string
}

// WithRecorder sends decision outcomes to the binary's metrics registry.
func WithRecorder(recorder ports.DecisionRecorder) Option {
	return func(o *options) { o.recorder = recorder }
}

// WithName sets the NATS connection name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	app := &App{Config: cfg, Policy: p}
	if err := app.initRepository(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initMessaging(o.name); err != nil {
		app.Close()
		return nil, err
	}
	locker, err := app.initLocker(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	docs := checklist.NewVAChecklist(p.CashOutTaxReturnThreshold)
	machine := workflow.NewMachine(nil)
	store := usecase.NewApplicationStore(app.Repo, locker, app.Publisher, nil)

	app.Intake = usecase.NewIntakeUseCase(store, machine)
	app.Reader = usecase.NewApplicationReader(store)
	app.Decision = usecase.NewDecisionUseCase(
		store,
		ntb.NewCalculator(p),
		eligibility.NewVerifier(p, eligibility.WithChecklist(docs)),
		worksheet.NewExcelRenderer(),
		o.recorder,
	)
	app.Workflow = usecase.NewWorkflowUseCase(store, machine, docs, o.recorder)
	app.Analysis = usecase.NewAnalysisUseCase(store, app.Decision, app.Workflow)
	return app, nil
}

func (a *App) initRepository(ctx context.Context) error {
	if a.Config.PostgresDSN == "" {
		slog.Warn("repository_in_memory", "reason", "POSTGRES_DSN not set")
		a.Repo = memory.NewApplicationRepository()
		return nil
	}
	db, err := postgres.OpenDB(a.Config.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { closeDB(db) })
	repo := postgres.NewApplicationRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.Repo = repo
	return nil
}

func (a *App) initMessaging(name string) error {
	if a.Config.NATSURL == "" {
		slog.Warn("publisher_log_only", "reason", "NATS_URL not set")
		a.Publisher = logonly.Publisher{}
		return nil
	}
	bus, err := nats.Connect(a.Config.NATSURL, nats.Options{
		Name:          name,
		SubjectPrefix: a.Config.NATSSubjectPrefix,
		Executor:      resilience.NewExecutor(a.Config.Resilience, nil),
	})
	if err != nil {
		return fmt.Errorf("init message bus: %w", err)
	}
	a.closers = append(a.closers, bus.Close)
	a.Publisher = bus
	a.Subscriber = bus
	return nil
}

func (a *App) initLocker(ctx context.Context) (ports.ApplicationLocker, error) {
	if a.Config.RedisURL == "" {
		return lock.NewLocalLocker(), nil
	}
	client, err := lock.NewRedisClient(ctx, a.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init redis locker: %w", err)
	}
	a.closers = append(a.closers, func() { closeRedis(client) })
	return lock.NewRedisLocker(client, lock.RedisOptions{TTL: a.Config.LockTTL}), nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("postgres_close_failed", "error", err)
	}
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		slog.Warn("redis_close_failed", "error", err)
	}
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
