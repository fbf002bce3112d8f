package task

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	if title == "" {
		return nil
	}
	return func(task *Task) {
		task.Title = title
	}
}

func WithDate(date string) TaskOption {
	if date == "" {
		return nil
	}
	return func(task *Task) {
		task.Date = date
	}
}

func WithTime(clock string) TaskOption {
	if clock == "" {
		return nil
	}
	return func(task *Task) {
		task.Time = clock
	}
}

func WithPriority(priority Priority) TaskOption {
	if !priority.Valid() {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithNotificationID(id *string) TaskOption {
	return func(task *Task) {
		task.NotificationID = id
	}
}
