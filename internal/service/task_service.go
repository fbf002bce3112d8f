package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"odotList/internal/logger"
	"odotList/internal/models/task"
	rep "odotList/internal/repository"
	"odotList/internal/scheduler"

	"go.uber.org/zap"
)

// здесь живёт жизненный цикл задачи: создание с планированием напоминания,
// реакция на уведомления и зеркальная сага удаления (cancel -> delete)

type TaskService struct {
	repo      TaskRepository
	scheduler NotificationScheduler
	presenter Presenter
	pending   *ActionCell
	repoType  RepoType

	mtx          sync.Mutex
	foregrounded bool
}

func NewTaskService(repo TaskRepository, sched NotificationScheduler, pending *ActionCell, repoType RepoType) *TaskService {
	return &TaskService{
		repo:      repo,
		scheduler: sched,
		pending:   pending,
		repoType:  repoType,
	}
}

// SetPresenter подключает UI-слой. До вызова сигналы навигации игнорируются.
func (s *TaskService) SetPresenter(p Presenter) {
	s.presenter = p
}

type CreateResult struct {
	ID        int64
	Scheduled bool
}

// CreateNewTask - сага из двух шагов: вставка строки, затем планирование
// напоминания с записью handle обратно в строку. Провал второго шага не
// откатывает первый: задача без напоминания всё равно полезна.
func (s *TaskService) CreateNewTask(ctx context.Context, title, date, clock string, priority task.Priority) (*CreateResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		logger.Info("Service: Отклонено создание задачи без названия")
		return nil, NewValidationError("title", "название не может быть пустым")
	}

	if priority == "" {
		priority = task.PriorityLow
	}
	if !priority.Valid() {
		return nil, NewValidationError("priority", "допустимы low, medium, high")
	}

	newTask := &task.Task{
		Title:    title,
		Date:     date,
		Time:     clock,
		Priority: priority,
	}

	dueAt, err := newTask.DueAt()
	if err != nil {
		return nil, NewValidationError("date", "ожидается дата YYYY-MM-DD и время HH:MM")
	}

	if err := s.repo.Create(ctx, newTask); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	handle, err := s.scheduler.Schedule(ctx, scheduler.Payload{TaskID: newTask.ID}, dueAt)
	if err != nil {
		// SCHEDULING_FAILURE не фатален: задача остаётся без напоминания
		logger.Warn("Service: Не удалось запланировать напоминание",
			zap.Int64("task_id", newTask.ID),
			zap.Error(err))
		return &CreateResult{ID: newTask.ID, Scheduled: false}, nil
	}

	newTask.NotificationID = &handle
	if err := s.repo.Update(ctx, newTask); err != nil {
		// handle не записан - снимаем уведомление, иначе оно осиротеет
		logger.Warn("Service: Не удалось привязать handle к задаче",
			zap.Int64("task_id", newTask.ID),
			zap.String("handle", handle),
			zap.Error(err))
		if cancelErr := s.scheduler.Cancel(ctx, handle); cancelErr != nil {
			logger.Warn("Service: Не удалось снять осиротевшее уведомление",
				zap.String("handle", handle),
				zap.Error(cancelErr))
		}
		return &CreateResult{ID: newTask.ID, Scheduled: false}, nil
	}

	logger.Info("Service: Задача создана",
		zap.Int64("task_id", newTask.ID),
		zap.String("handle", handle))
	return &CreateResult{ID: newTask.ID, Scheduled: true}, nil
}

func (s *TaskService) GetTasks(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, id int64) (*task.Task, error) {
	foundTask, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.Int64("target_id", id))
			return nil, NewNotFound("задача", id)
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return foundTask, nil
}

// ToggleCompletion переключает выполненность. Напоминание не трогаем:
// выполненная задача не отменяет свой алерт.
func (s *TaskService) ToggleCompletion(ctx context.Context, id int64) error {
	foundTask, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.Int64("target_id", id))
			return NewNotFound("задача", id)
		}
		return fmt.Errorf("получение задачи: %w", err)
	}

	foundTask.Completed = !foundTask.Completed

	if err := s.repo.Update(ctx, foundTask); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			// задачу успели удалить между чтением и записью
			return NewNotFound("задача", id)
		}
		return fmt.Errorf("обновление задачи: %w", err)
	}

	logger.Info("Service: Статус выполнения переключён",
		zap.Int64("task_id", id),
		zap.Bool("completed", foundTask.Completed))
	return nil
}

func (s *TaskService) UpdateTaskByID(ctx context.Context, id int64, options ...task.TaskOption) error {
	foundTask, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.Int64("target_id", id))
			return NewNotFound("задача", id)
		}
		return fmt.Errorf("получение задачи: %w", err)
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(foundTask)
	}

	if err := s.repo.Update(ctx, foundTask); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound("задача", id)
		}
		return fmt.Errorf("обновление задачи: %w", err)
	}
	return nil
}

// DeleteTaskByID - зеркальная сага: сначала снимаем уведомление, потом
// строку. Обратный порядок оставил бы алерт, ссылающийся на удалённый id.
// Идемпотентно: повторное удаление - успешный no-op.
func (s *TaskService) DeleteTaskByID(ctx context.Context, id int64) error {
	foundTask, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача уже удалена", zap.Int64("target_id", id))
			return nil
		}
		return fmt.Errorf("получение задачи: %w", err)
	}

	if foundTask.NotificationID != nil {
		if err := s.scheduler.Cancel(ctx, *foundTask.NotificationID); err != nil {
			// отмена no-op-безопасна, удалению строки не мешаем
			logger.Warn("Service: Ошибка отмены уведомления",
				zap.Int64("task_id", id),
				zap.String("handle", *foundTask.NotificationID),
				zap.Error(err))
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("удаление задачи: %w", err)
	}

	logger.Info("Service: Задача удалена", zap.Int64("task_id", id))
	return nil
}

// HandleNotificationEvent - единая точка входа для всех триггеров:
// прямой тап, кнопка действия, повтор события на холодном старте.
func (s *TaskService) HandleNotificationEvent(ctx context.Context, actionID string, payload scheduler.Payload) error {
	if payload.TaskID <= 0 {
		// MALFORMED_EVENT: событие без task_id никогда не фатально
		logger.Warn("Service: Событие уведомления без task_id",
			zap.String("action_id", actionID))
		return nil
	}

	s.mtx.Lock()
	foregrounded := s.foregrounded
	s.mtx.Unlock()

	if !foregrounded {
		// UI ещё не готов - откладываем, последняя запись вытесняет прежнюю
		s.pending.Set(PendingAction{ActionID: actionID, Payload: payload})
		logger.Info("Service: Действие отложено до foreground",
			zap.String("action_id", actionID),
			zap.Int64("task_id", payload.TaskID))
		return nil
	}

	return s.apply(ctx, actionID, payload)
}

func (s *TaskService) apply(ctx context.Context, actionID string, payload scheduler.Payload) error {
	switch actionID {
	case ActionDelete:
		return s.DeleteTaskByID(ctx, payload.TaskID)
	default:
		// тап и кнопка "show" ничего не меняют - показываем список
		if s.presenter != nil {
			s.presenter.ShowTaskList()
		}
		return nil
	}
}

// OnAppForeground вызывается оболочкой на каждом переходе в foreground
// и ровно один раз потребляет отложенное действие.
func (s *TaskService) OnAppForeground(ctx context.Context) error {
	s.mtx.Lock()
	s.foregrounded = true
	s.mtx.Unlock()

	action, ok := s.pending.Take()
	if !ok {
		return nil
	}

	logger.Info("Service: Повтор отложенного действия",
		zap.String("action_id", action.ActionID),
		zap.Int64("task_id", action.Payload.TaskID))
	return s.apply(ctx, action.ActionID, action.Payload)
}

func (s *TaskService) OnAppBackground() {
	s.mtx.Lock()
	s.foregrounded = false
	s.mtx.Unlock()
}

// NotificationFired - callback планировщика о терминальном срабатывании:
// handle больше не указывает на запланированный алерт, чистим его в строке.
func (s *TaskService) NotificationFired(ctx context.Context, handle string, payload scheduler.Payload) {
	firedTask, err := s.repo.GetByID(ctx, payload.TaskID)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Сработало уведомление удалённой задачи",
				zap.Int64("task_id", payload.TaskID))
			return
		}
		logger.Warn("Service: Ошибка чтения задачи после срабатывания", zap.Error(err))
		return
	}

	if firedTask.NotificationID == nil || *firedTask.NotificationID != handle {
		return
	}

	firedTask.NotificationID = nil
	if err := s.repo.Update(ctx, firedTask); err != nil {
		logger.Warn("Service: Не удалось очистить handle после срабатывания",
			zap.Int64("task_id", payload.TaskID),
			zap.Error(err))
		return
	}

	logger.Info("Service: Напоминание показано",
		zap.Int64("task_id", payload.TaskID),
		zap.String("handle", handle))
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса (%s): %w", s.repoType, err)
	}
	return nil
}
