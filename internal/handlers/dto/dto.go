package dto

import (
	"time"

	"odotList/internal/models/task"
)

type CreateTaskRequest struct {
	Title    string        `json:"title"`
	Date     string        `json:"date"`
	Time     string        `json:"time"`
	Priority task.Priority `json:"priority"`
}

type CreateTaskResponse struct {
	ID        int64 `json:"id"`
	Scheduled bool  `json:"scheduled"`
}

type UpdateTaskRequest struct {
	Title    *string        `json:"title,omitempty"`
	Date     *string        `json:"date,omitempty"`
	Time     *string        `json:"time,omitempty"`
	Priority *task.Priority `json:"priority,omitempty"`
}

// EventPayload - данные, пришедшие с уведомлением. TaskID указателем,
// чтобы отличить отсутствующее поле от нуля.
type EventPayload struct {
	TaskID *int64 `json:"task_id"`
}

type NotificationEventRequest struct {
	ActionID string        `json:"action_id"`
	Payload  *EventPayload `json:"payload"`
}

type TaskResponse struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Priority       string     `json:"priority"`
	Completed      bool       `json:"completed"`
	NotificationID *string    `json:"notification_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	IsOverdue      bool       `json:"is_overdue"`
}

func FromTask(t *task.Task) TaskResponse {
	isOverdue := false
	if due, err := t.DueAt(); err == nil {
		isOverdue = !t.Completed && due.Before(time.Now())
	}

	return TaskResponse{
		ID:             t.ID,
		Title:          t.Title,
		Date:           t.Date,
		Time:           t.Time,
		Priority:       string(t.Priority),
		Completed:      t.Completed,
		NotificationID: t.NotificationID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		IsOverdue:      isOverdue,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}
