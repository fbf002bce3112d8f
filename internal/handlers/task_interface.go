package handlers

import "context"
import "odotList/internal/models/task"
import "odotList/internal/scheduler"
import "odotList/internal/service"

type Service interface {
	CreateNewTask(ctx context.Context, title, date, clock string, priority task.Priority) (*service.CreateResult, error)
	GetTasks(ctx context.Context) ([]*task.Task, error)
	GetTaskByID(ctx context.Context, id int64) (*task.Task, error)
	ToggleCompletion(ctx context.Context, id int64) error
	UpdateTaskByID(ctx context.Context, id int64, options ...task.TaskOption) error
	DeleteTaskByID(ctx context.Context, id int64) error
	HandleNotificationEvent(ctx context.Context, actionID string, payload scheduler.Payload) error
	OnAppForeground(ctx context.Context) error
	OnAppBackground()
	HealthCheck(ctx context.Context) error
}
