package task

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Task struct {
	ID             int64      `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Date           string     `json:"date" db:"date"` // YYYY-MM-DD
	Time           string     `json:"time" db:"time"` // HH:MM
	Priority       Priority   `json:"priority" db:"priority"`
	Completed      bool       `json:"completed" db:"completed"`
	NotificationID *string    `json:"notification_id,omitempty" db:"notification_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" db:"updated_at,omitempty"`
}

type Priority string

const PriorityLow Priority = "low"
const PriorityMedium Priority = "medium"
const PriorityHigh Priority = "high"

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DueAt собирает date+time в момент срабатывания напоминания (локальная зона)
func (t *Task) DueAt() (time.Time, error) {
	due, err := time.ParseInLocation(DateLayout+" "+TimeLayout, t.Date+" "+t.Time, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("разбор даты напоминания: %w", err)
	}
	return due, nil
}
