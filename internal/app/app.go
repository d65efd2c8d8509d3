// Package app wires the synchronization core's components together: config,
// logging, the document store, the list repositories, the HTTP surface and
// the maintenance scheduler.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"shotlist/internal/adapter/httpapi"
	"shotlist/internal/adapter/scheduler"
	"shotlist/internal/config"
	"shotlist/internal/docstore"
	"shotlist/internal/domain"
	"shotlist/internal/platform/logger"
	"shotlist/internal/shared"
)

// App wires application components.
type App struct {
	cfg      config.Config
	log      *slog.Logger
	closeLog func() error
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, closeLog := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "shotlist",
	})
	return &App{cfg: cfg, log: log, closeLog: closeLog}, nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.log.Info("starting")
	defer func() { _ = a.closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()

	rawStore, closeStore, err := docstore.Open(ctx, docstore.OpenOptions{
		Driver:      docstore.Driver(a.cfg.Store.Driver),
		SQLitePath:  a.cfg.Store.SQLitePath,
		PostgresDSN: a.cfg.Store.PgDSN,
	}, a.log)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	store := docstore.WithMetrics(rawStore, registry)

	tasks := domain.NewTaskRepository(store, a.log)
	kit := domain.NewKitRepository(store, a.log)
	vendors := domain.NewVendorRepository(store, a.log)

	router := httpapi.NewRouter(httpapi.Options{
		Logger:   a.log,
		Registry: registry,
		Env:      a.cfg.Env,
	},
		httpapi.NewService(tasks),
		httpapi.NewService(kit),
		httpapi.NewService(vendors),
	)

	sched := scheduler.New(ctx, a.log)
	verifiers := map[string]func(context.Context) *shared.Error{
		domain.KindTasks:   tasks.VerifyTemplate,
		domain.KindKit:     kit.VerifyTemplate,
		domain.KindVendors: vendors.VerifyTemplate,
	}
	_, err = sched.Add(a.cfg.Sweep.Schedule, a.sweep(verifiers), scheduler.Options{
		Name:          "template-integrity-sweep",
		Timeout:       time.Minute,
		SkipIfRunning: true,
	})
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: router}
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("server", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweep re-verifies every template list's count invariants and reports all
// violations together as one aggregated error.
func (a *App) sweep(verifiers map[string]func(context.Context) *shared.Error) scheduler.JobFunc {
	return func(ctx context.Context) error {
		var failures []shared.OperationFailure
		succeeded := 0
		for kind, verify := range verifiers {
			if aerr := verify(ctx); aerr != nil {
				failures = append(failures, shared.OperationFailure{Operation: kind, Err: aerr})
				continue
			}
			succeeded++
		}
		if len(failures) == 0 {
			return nil
		}
		return shared.NewAggregate(shared.CodeBatchPartialFailure,
			"template integrity sweep found violations",
			"", "app.sweep", failures, succeeded)
	}
}
