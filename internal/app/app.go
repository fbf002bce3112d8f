package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"odotList/internal/config"
	"odotList/internal/handlers"
	"odotList/internal/logger"
	"odotList/internal/middleware"
	"odotList/internal/repository/task/inmemory"
	"odotList/internal/repository/task/sqlite"
	"odotList/internal/scheduler"
	"odotList/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	scheduler *scheduler.LocalScheduler
	service   *service.TaskService
	shutdowns []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {

	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	var repo service.TaskRepository
	var repoType service.RepoType

	switch a.config.Repository.Type {
	case "inmemory":
		repo = inmemory.NewTaskStorage()
		repoType = service.InMemoryType
	default:
		storage, err := sqlite.New(ctx, a.config.Database.Path)
		if err != nil {
			return fmt.Errorf("инициализация хранилища: %w", err)
		}
		a.shutdowns = append(a.shutdowns, storage.Close)
		repo = storage
		repoType = service.SQLiteType
	}

	a.scheduler = scheduler.New(&a.config.Scheduler.Interval, &a.config.Scheduler.BatchSize)

	a.service = service.NewTaskService(repo, a.scheduler, service.NewActionCell(), repoType)
	a.service.SetPresenter(&logPresenter{})

	// сработавшие уведомления возвращаются в сервис
	a.scheduler.SetDelivery(a.service.NotificationFired)

	taskHandler := handlers.NewTaskHandler(a.service)

	a.router = chi.NewRouter()

	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logging)
	a.router.Use(middleware.Timeout(30 * time.Second))
	a.router.Use(middleware.RateLimit(100))
	a.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	a.router.Route("/tasks", func(r chi.Router) {

		r.Get("/", taskHandler.GetTasks) // GET /tasks
		r.Post("/", taskHandler.PostTask) // POST /tasks

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", taskHandler.GetTaskByID)       // GET /tasks/{id}
			r.Put("/", taskHandler.UpdateTaskByID)    // PUT /tasks/{id}
			r.Delete("/", taskHandler.DeleteTaskByID) // DELETE /tasks/{id}

			r.Post("/toggle", taskHandler.ToggleTask) // POST /tasks/{id}/toggle
		})
	})

	// события от оболочки: уведомления и переходы фона
	a.router.Route("/events", func(r chi.Router) {
		r.Post("/notification", taskHandler.NotificationEvent) // POST /events/notification
		r.Post("/foreground", taskHandler.AppForeground)       // POST /events/foreground
		r.Post("/background", taskHandler.AppBackground)       // POST /events/background
	})

	a.router.Get("/health", taskHandler.HealthCheck)

	a.server = &http.Server{
		Addr:    a.config.GetServerAddr(),
		Handler: a.router,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	schedCtx, cancelSched := context.WithCancel(context.Background())
	go a.scheduler.Start(schedCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		cancelSched()
		a.runShutdowns()
		return fmt.Errorf("ошибка сервера: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Остановка приложения...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера", err)
	}

	cancelSched()
	a.runShutdowns()
	return nil
}

func (a *App) runShutdowns() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}

// logPresenter - заглушка UI: навигация сводится к записи в лог
type logPresenter struct{}

func (p *logPresenter) ShowTaskList() {
	logger.Info("Presenter: Переход к списку задач")
}
