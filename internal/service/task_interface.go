package service

import (
	"context"
	"time"

	"odotList/internal/models/task"
	"odotList/internal/scheduler"
)

type TaskRepository interface {
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetAll(context.Context) ([]*task.Task, error)
	GetByID(context.Context, int64) (*task.Task, error)
	Delete(context.Context, int64) error
	HealthCheck(context.Context) error
}

// NotificationScheduler - контракт системы локальных уведомлений.
// Cancel по неизвестному handle обязан быть no-op: отмена гонится
// со срабатыванием.
type NotificationScheduler interface {
	Schedule(ctx context.Context, payload scheduler.Payload, firesAt time.Time) (string, error)
	Cancel(ctx context.Context, handle string) error
}

// Presenter - сигналы в сторону UI. Сервис ничего не знает об экранах.
type Presenter interface {
	ShowTaskList()
}

type RepoType string

const SQLiteType RepoType = "sqlite"
const InMemoryType RepoType = "inmemory"

// идентификаторы действий уведомления
const ActionDelete = "delete"
const ActionShow = "show"
