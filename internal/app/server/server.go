package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/notifications"
	"hrleave/internal/domain/org"
	"hrleave/internal/domain/payroll"
	"hrleave/internal/platform/config"
	"hrleave/internal/platform/db"
	"hrleave/internal/platform/email"
	"hrleave/internal/platform/jobs"
	"hrleave/internal/platform/metrics"
	"hrleave/internal/transport/http/api"
	audithandler "hrleave/internal/transport/http/handlers/audit"
	leavehandler "hrleave/internal/transport/http/handlers/leave"
	notificationshandler "hrleave/internal/transport/http/handlers/notifications"
	"hrleave/internal/transport/http/middleware"
)

// Stores are the persistence backends behind the services. Run fills them
// with the Postgres implementations; tests use the in-memory ones.
type Stores struct {
	Leave         leave.Store
	Directory     org.Directory
	Audit         audit.StoreAPI
	Notifications notifications.StoreAPI
	Payroll       payroll.StoreAPI
	JobRuns       jobs.RunStore
	Mailer        notifications.Mailer
}

type App struct {
	Config        config.Config
	DB            *db.Pool
	Router        http.Handler
	Leave         *leave.Service
	Escalator     *leave.Escalator
	Audit         *audit.Service
	Notifications *notifications.Service
	Jobs          *jobs.Service
	Metrics       *metrics.Collector

	ready func(context.Context) error
}

// New connects to Postgres, applies migrations and seed data when enabled and
// wires the application on top of the pool.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	leaveStore := leave.NewStore(pool)
	if cfg.RunSeed {
		if err := db.Seed(ctx, leaveStore, cfg.DefaultApprovalCode); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	app := Assemble(cfg, Stores{
		Leave:         leaveStore,
		Directory:     org.NewStore(pool),
		Audit:         audit.NewStore(pool),
		Notifications: notifications.NewStore(pool),
		Payroll:       payroll.NewStore(pool),
		JobRuns:       jobs.NewStore(pool),
		Mailer:        email.New(cfg),
	})
	app.DB = pool
	app.ready = func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, config.ReadinessTimeout())
		defer cancel()
		return pool.Ping(ctx)
	}
	return app, nil
}

// Assemble builds services and the router over the given stores.
func Assemble(cfg config.Config, stores Stores) *App {
	collector := metrics.New()
	jobsSvc := jobs.New(stores.JobRuns)

	auditSvc := audit.New(stores.Audit)
	notifySvc := notifications.New(stores.Notifications, stores.Mailer)
	notifySvc.EmailEnabled = cfg.EmailEnabled && stores.Mailer != nil
	if cfg.EmailFrom != "" {
		notifySvc.DefaultFrom = cfg.EmailFrom
	}

	opts := leave.DefaultOptions()
	opts.Rules = leave.Rules{
		NoticeDays:         cfg.LeaveNoticeDays,
		PostLeaveGraceDays: cfg.LeavePostGraceDays,
		SickCapDays:        cfg.LeaveSickCapDays,
		SickWindowYears:    cfg.LeaveSickWindowYears,
	}
	if cfg.DefaultApprovalCode != "" {
		opts.DefaultApprovalCode = cfg.DefaultApprovalCode
	}
	if cfg.EscalationDefaultHours > 0 {
		opts.DefaultEscalationHours = cfg.EscalationDefaultHours
	}

	leaveSvc := leave.NewService(stores.Leave, stores.Directory, opts)
	leaveSvc.Audit = auditSvc
	leaveSvc.Notify = notifySvc
	leaveSvc.Payroll = payroll.NewPublisher(stores.Payroll, jobsSvc)
	leaveSvc.Metrics = collector

	escalator := leave.NewEscalator(leaveSvc, escalationPolicy(cfg))

	app := &App{
		Config:        cfg,
		Leave:         leaveSvc,
		Escalator:     escalator,
		Audit:         auditSvc,
		Notifications: notifySvc,
		Jobs:          jobsSvc,
		Metrics:       collector,
	}
	app.Router = app.routes()
	return app
}

func escalationPolicy(cfg config.Config) leave.EscalationPolicy {
	policy := leave.DefaultEscalationPolicy()
	if cfg.EscalationDefaultHours > 0 {
		policy.DefaultHours = cfg.EscalationDefaultHours
	}
	if cfg.EscalationExhaustedPolicy != "" {
		policy.OnExhausted = leave.ExhaustedPolicy(cfg.EscalationExhaustedPolicy)
	}
	policy.MaxLevel = cfg.EscalationMaxLevel
	return policy
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	perms := auth.StaticPermissions{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if cfg.MaxBodyBytes > 0 {
		router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.ready != nil {
			if err := a.ready(r.Context()); err != nil {
				slog.Warn("readiness check failed", "err", err)
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		leaveHandler := leavehandler.NewHandler(a.Leave, a.Escalator, a.Jobs, perms)
		leaveHandler.RegisterRoutes(r)

		auditHandler := audithandler.NewHandler(a.Audit, perms, a.canViewRequest)
		auditHandler.RegisterRoutes(r)

		notificationsHandler := notificationshandler.NewHandler(a.Notifications)
		notificationsHandler.RegisterRoutes(r)
	})

	return router
}

func (a *App) canViewRequest(ctx context.Context, user auth.UserContext, requestID string) (bool, error) {
	req, err := a.Leave.GetRequest(ctx, requestID)
	if errors.Is(err, leave.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.Leave.CanView(ctx, leave.Actor{EmployeeID: user.EmployeeID, IsHR: user.IsHR()}, req), nil
}

// StartJobs registers the cron schedules and starts the job worker. The
// worker stops when ctx is done.
func (a *App) StartJobs(ctx context.Context) error {
	schedules := []struct {
		spec    string
		jobType string
		run     func(context.Context) (any, error)
	}{
		{a.Config.EscalationSchedule, jobs.JobLeaveEscalation, func(ctx context.Context) (any, error) {
			return a.Escalator.RunEscalations(ctx, a.Leave.Now())
		}},
		{a.Config.AccrualSchedule, jobs.JobLeaveAccrual, func(ctx context.Context) (any, error) {
			return a.Leave.TriggerAccrual(ctx, a.Leave.Now())
		}},
		// Runs early in January for the year that just ended.
		{a.Config.CarryOverSchedule, jobs.JobLeaveCarryOver, func(ctx context.Context) (any, error) {
			return a.Leave.TriggerCarryOver(ctx, a.Leave.Now().Year()-1)
		}},
	}
	for _, s := range schedules {
		if err := a.Jobs.Schedule(s.spec, s.jobType, s.run); err != nil {
			return fmt.Errorf("schedule %s %q: %w", s.jobType, s.spec, err)
		}
	}
	a.Jobs.Start(ctx)
	return nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	if err := app.StartJobs(ctx); err != nil {
		log.Fatalf("jobs failed: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown failed", "err", err)
		}
	}()

	slog.Info("leave engine listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
	app.Jobs.Wait()
}
