package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"odotList/internal/models/task"
	"odotList/internal/repository"
	"odotList/internal/repository/task/inmemory"
	"odotList/internal/scheduler"
	"odotList/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetAll(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

// MockScheduler - мок системы уведомлений
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Schedule(ctx context.Context, payload scheduler.Payload, firesAt time.Time) (string, error) {
	args := m.Called(ctx, payload, firesAt)
	return args.String(0), args.Error(1)
}

func (m *MockScheduler) Cancel(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

var _ service.NotificationScheduler = (*MockScheduler)(nil)

type MockPresenter struct {
	mock.Mock
}

func (m *MockPresenter) ShowTaskList() {
	m.Called()
}

func newService(repo *MockTaskRepository, sched *MockScheduler) *service.TaskService {
	return service.NewTaskService(repo, sched, service.NewActionCell(), service.InMemoryType)
}

// TestTaskService_CreateNewTask тестирует сагу создания задачи
func TestTaskService_CreateNewTask(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		title         string
		date          string
		clock         string
		priority      task.Priority
		setupMocks    func(*MockTaskRepository, *MockScheduler)
		expectError   bool
		errorCode     string
		wantScheduled bool
	}{
		{
			name:     "success - task created and scheduled",
			title:    "Buy milk",
			date:     "2030-03-01",
			clock:    "09:00",
			priority: task.PriorityLow,
			setupMocks: func(r *MockTaskRepository, s *MockScheduler) {
				r.On("Create", mock.Anything, mock.MatchedBy(func(tsk *task.Task) bool {
					return tsk.Title == "Buy milk" && !tsk.Completed && tsk.NotificationID == nil
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*task.Task).ID = 1
				}).Return(nil)

				s.On("Schedule", mock.Anything, scheduler.Payload{TaskID: 1}, mock.Anything).Return("h1", nil)

				r.On("Update", mock.Anything, mock.MatchedBy(func(tsk *task.Task) bool {
					return tsk.ID == 1 && tsk.NotificationID != nil && *tsk.NotificationID == "h1"
				})).Return(nil)
			},
			wantScheduled: true,
		},
		{
			name:        "error - empty title",
			title:       "",
			date:        "2030-03-01",
			clock:       "09:00",
			setupMocks:  func(r *MockTaskRepository, s *MockScheduler) {},
			expectError: true,
			errorCode:   "VALIDATION_ERROR",
		},
		{
			name:        "error - whitespace title",
			title:       "   \t ",
			date:        "2030-03-01",
			clock:       "09:00",
			setupMocks:  func(r *MockTaskRepository, s *MockScheduler) {},
			expectError: true,
			errorCode:   "VALIDATION_ERROR",
		},
		{
			name:        "error - bad date format",
			title:       "Buy milk",
			date:        "01.03.2030",
			clock:       "09:00",
			setupMocks:  func(r *MockTaskRepository, s *MockScheduler) {},
			expectError: true,
			errorCode:   "VALIDATION_ERROR",
		},
		{
			name:        "error - unknown priority",
			title:       "Buy milk",
			date:        "2030-03-01",
			clock:       "09:00",
			priority:    "urgent",
			setupMocks:  func(r *MockTaskRepository, s *MockScheduler) {},
			expectError: true,
			errorCode:   "VALIDATION_ERROR",
		},
		{
			name:     "scheduler failure is not fatal",
			title:    "Buy milk",
			date:     "2030-03-01",
			clock:    "09:00",
			priority: task.PriorityHigh,
			setupMocks: func(r *MockTaskRepository, s *MockScheduler) {
				r.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
					args.Get(1).(*task.Task).ID = 7
				}).Return(nil)
				s.On("Schedule", mock.Anything, scheduler.Payload{TaskID: 7}, mock.Anything).Return("", errors.New("os rejected"))
			},
			wantScheduled: false,
		},
		{
			name:     "handle attach failure cancels the notification",
			title:    "Buy milk",
			date:     "2030-03-01",
			clock:    "09:00",
			priority: task.PriorityLow,
			setupMocks: func(r *MockTaskRepository, s *MockScheduler) {
				r.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
					args.Get(1).(*task.Task).ID = 3
				}).Return(nil)
				s.On("Schedule", mock.Anything, scheduler.Payload{TaskID: 3}, mock.Anything).Return("h3", nil)
				r.On("Update", mock.Anything, mock.Anything).Return(errors.New("db locked"))
				s.On("Cancel", mock.Anything, "h3").Return(nil)
			},
			wantScheduled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			mockSched := new(MockScheduler)
			tt.setupMocks(mockRepo, mockSched)

			svc := newService(mockRepo, mockSched)
			result, err := svc.CreateNewTask(ctx, tt.title, tt.date, tt.clock, tt.priority)

			if tt.expectError {
				require.Error(t, err)
				var businessErr *service.BusinessError
				require.ErrorAs(t, err, &businessErr)
				assert.Equal(t, tt.errorCode, businessErr.Code)
				// валидация не трогает ни store, ни scheduler
				mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				mockSched.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
				assert.Equal(t, tt.wantScheduled, result.Scheduled)
			}

			mockRepo.AssertExpectations(t)
			mockSched.AssertExpectations(t)
		})
	}
}

// TestTaskService_ToggleCompletion тестирует переключение выполнения
func TestTaskService_ToggleCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("toggle flips the flag and keeps the handle", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		handle := "h1"
		stored := &task.Task{ID: 1, Title: "Buy milk", NotificationID: &handle}

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(stored, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(tsk *task.Task) bool {
			return tsk.Completed && tsk.NotificationID != nil && *tsk.NotificationID == "h1"
		})).Return(nil)

		svc := newService(mockRepo, mockSched)
		err := svc.ToggleCompletion(ctx, 1)

		require.NoError(t, err)
		// scheduler не участвует в переключении
		mockSched.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("error - task not found", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		mockRepo.On("GetByID", mock.Anything, int64(42)).Return(nil, repository.ErrNotFound)

		svc := newService(mockRepo, mockSched)
		err := svc.ToggleCompletion(ctx, 42)

		require.Error(t, err)
		var businessErr *service.BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "NOT_FOUND", businessErr.Code)
	})
}

// TestTaskService_DeleteTaskByID тестирует сагу удаления
func TestTaskService_DeleteTaskByID(t *testing.T) {
	ctx := context.Background()

	t.Run("delete cancels notification then removes the row", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		handle := "h1"
		stored := &task.Task{ID: 1, Title: "Buy milk", NotificationID: &handle}

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(stored, nil)
		mockSched.On("Cancel", mock.Anything, "h1").Return(nil)
		mockRepo.On("Delete", mock.Anything, int64(1)).Return(nil)

		svc := newService(mockRepo, mockSched)
		err := svc.DeleteTaskByID(ctx, 1)

		require.NoError(t, err)
		mockSched.AssertNumberOfCalls(t, "Cancel", 1)
		mockRepo.AssertExpectations(t)
	})

	t.Run("delete without handle skips the scheduler", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		stored := &task.Task{ID: 2, Title: "Unscheduled"}

		mockRepo.On("GetByID", mock.Anything, int64(2)).Return(stored, nil)
		mockRepo.On("Delete", mock.Anything, int64(2)).Return(nil)

		svc := newService(mockRepo, mockSched)
		err := svc.DeleteTaskByID(ctx, 2)

		require.NoError(t, err)
		mockSched.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
	})

	t.Run("delete is idempotent on missing id", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		mockRepo.On("GetByID", mock.Anything, int64(99)).Return(nil, repository.ErrNotFound)

		svc := newService(mockRepo, mockSched)
		err := svc.DeleteTaskByID(ctx, 99)

		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mockSched.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
	})

	t.Run("cancel error does not block row removal", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		handle := "h5"
		stored := &task.Task{ID: 5, NotificationID: &handle}

		mockRepo.On("GetByID", mock.Anything, int64(5)).Return(stored, nil)
		mockSched.On("Cancel", mock.Anything, "h5").Return(errors.New("os error"))
		mockRepo.On("Delete", mock.Anything, int64(5)).Return(nil)

		svc := newService(mockRepo, mockSched)
		err := svc.DeleteTaskByID(ctx, 5)

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

// TestTaskService_HandleNotificationEvent тестирует единую точку входа событий
func TestTaskService_HandleNotificationEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("delete action removes the task once", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		handle := "h1"
		stored := &task.Task{ID: 1, NotificationID: &handle}

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(stored, nil)
		mockSched.On("Cancel", mock.Anything, "h1").Return(nil)
		mockRepo.On("Delete", mock.Anything, int64(1)).Return(nil)

		svc := newService(mockRepo, mockSched)
		require.NoError(t, svc.OnAppForeground(ctx))

		err := svc.HandleNotificationEvent(ctx, service.ActionDelete, scheduler.Payload{TaskID: 1})

		require.NoError(t, err)
		mockSched.AssertNumberOfCalls(t, "Cancel", 1)
		mockRepo.AssertNumberOfCalls(t, "Delete", 1)
	})

	t.Run("delete action for missing task is a no-op", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(nil, repository.ErrNotFound)

		svc := newService(mockRepo, mockSched)
		require.NoError(t, svc.OnAppForeground(ctx))

		err := svc.HandleNotificationEvent(ctx, service.ActionDelete, scheduler.Payload{TaskID: 1})

		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mockSched.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
	})

	t.Run("malformed event is logged and dropped", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		svc := newService(mockRepo, mockSched)
		require.NoError(t, svc.OnAppForeground(ctx))

		err := svc.HandleNotificationEvent(ctx, service.ActionDelete, scheduler.Payload{})

		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mockSched.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
	})

	t.Run("show action signals the presenter", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)
		mockPresenter := new(MockPresenter)

		mockPresenter.On("ShowTaskList").Return()

		svc := newService(mockRepo, mockSched)
		svc.SetPresenter(mockPresenter)
		require.NoError(t, svc.OnAppForeground(ctx))

		err := svc.HandleNotificationEvent(ctx, service.ActionShow, scheduler.Payload{TaskID: 1})

		require.NoError(t, err)
		mockPresenter.AssertNumberOfCalls(t, "ShowTaskList", 1)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

// TestTaskService_DeferredReplay тестирует ячейку отложенного действия
func TestTaskService_DeferredReplay(t *testing.T) {
	ctx := context.Background()

	t.Run("event in background is executed on foreground", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		handle := "h1"
		stored := &task.Task{ID: 1, NotificationID: &handle}

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(stored, nil)
		mockSched.On("Cancel", mock.Anything, "h1").Return(nil)
		mockRepo.On("Delete", mock.Anything, int64(1)).Return(nil)

		svc := newService(mockRepo, mockSched)

		// приложение ещё в фоне - действие откладывается
		err := svc.HandleNotificationEvent(ctx, service.ActionDelete, scheduler.Payload{TaskID: 1})
		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

		require.NoError(t, svc.OnAppForeground(ctx))
		mockRepo.AssertNumberOfCalls(t, "Delete", 1)
	})

	t.Run("second event overwrites the first, only it replays", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		handle := "h2"
		stored := &task.Task{ID: 2, NotificationID: &handle}

		mockRepo.On("GetByID", mock.Anything, int64(2)).Return(stored, nil)
		mockSched.On("Cancel", mock.Anything, "h2").Return(nil)
		mockRepo.On("Delete", mock.Anything, int64(2)).Return(nil)

		svc := newService(mockRepo, mockSched)

		require.NoError(t, svc.HandleNotificationEvent(ctx, service.ActionDelete, scheduler.Payload{TaskID: 1}))
		require.NoError(t, svc.HandleNotificationEvent(ctx, service.ActionDelete, scheduler.Payload{TaskID: 2}))

		require.NoError(t, svc.OnAppForeground(ctx))

		// первое действие вытеснено, задача 1 не трогалась
		mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, int64(1))
		mockRepo.AssertNumberOfCalls(t, "Delete", 1)
	})

	t.Run("foreground without pending action does nothing", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		svc := newService(mockRepo, mockSched)
		require.NoError(t, svc.OnAppForeground(ctx))

		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("background events defer again", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		svc := newService(mockRepo, mockSched)
		require.NoError(t, svc.OnAppForeground(ctx))
		svc.OnAppBackground()

		require.NoError(t, svc.HandleNotificationEvent(ctx, service.ActionDelete, scheduler.Payload{TaskID: 3}))
		mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

// TestActionCell тестирует ячейку отложенного действия напрямую
func TestActionCell(t *testing.T) {
	cell := service.NewActionCell()

	_, ok := cell.Take()
	assert.False(t, ok)

	cell.Set(service.PendingAction{ActionID: service.ActionShow, Payload: scheduler.Payload{TaskID: 1}})
	cell.Set(service.PendingAction{ActionID: service.ActionDelete, Payload: scheduler.Payload{TaskID: 2}})

	action, ok := cell.Take()
	require.True(t, ok)
	assert.Equal(t, service.ActionDelete, action.ActionID)
	assert.Equal(t, int64(2), action.Payload.TaskID)

	// повторное чтение пустое
	_, ok = cell.Take()
	assert.False(t, ok)
}

// TestTaskService_NotificationFired тестирует очистку handle после срабатывания
func TestTaskService_NotificationFired(t *testing.T) {
	ctx := context.Background()

	t.Run("fired notification clears the handle", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		handle := "h1"
		stored := &task.Task{ID: 1, NotificationID: &handle}

		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(stored, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(tsk *task.Task) bool {
			return tsk.NotificationID == nil
		})).Return(nil)

		svc := newService(mockRepo, mockSched)
		svc.NotificationFired(ctx, "h1", scheduler.Payload{TaskID: 1})

		mockRepo.AssertExpectations(t)
	})

	t.Run("fired notification of deleted task is tolerated", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		mockRepo.On("GetByID", mock.Anything, int64(9)).Return(nil, repository.ErrNotFound)

		svc := newService(mockRepo, mockSched)
		svc.NotificationFired(ctx, "h9", scheduler.Payload{TaskID: 9})

		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("stale handle does not clear a rescheduled one", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockSched := new(MockScheduler)

		current := "h-new"
		stored := &task.Task{ID: 4, NotificationID: &current}

		mockRepo.On("GetByID", mock.Anything, int64(4)).Return(stored, nil)

		svc := newService(mockRepo, mockSched)
		svc.NotificationFired(ctx, "h-old", scheduler.Payload{TaskID: 4})

		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

// TestLifecycle_EndToEnd - сквозной сценарий на живом inmemory-хранилище
// и живом планировщике
func TestLifecycle_EndToEnd(t *testing.T) {
	ctx := context.Background()

	repo := inmemory.NewTaskStorage()
	sched := scheduler.New(nil, nil)
	svc := service.NewTaskService(repo, sched, service.NewActionCell(), service.InMemoryType)
	sched.SetDelivery(svc.NotificationFired)
	require.NoError(t, svc.OnAppForeground(ctx))

	result, err := svc.CreateNewTask(ctx, "Buy milk", "2030-03-01", "09:00", task.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.ID)
	assert.True(t, result.Scheduled)

	created, err := svc.GetTaskByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, created.Completed)
	require.NotNil(t, created.NotificationID)
	assert.Equal(t, 1, sched.ScheduledCount())

	// двойное переключение возвращает исходное состояние
	require.NoError(t, svc.ToggleCompletion(ctx, 1))
	require.NoError(t, svc.ToggleCompletion(ctx, 1))
	toggled, err := svc.GetTaskByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)
	assert.Equal(t, created.NotificationID, toggled.NotificationID)

	// событие удаления с уведомления
	require.NoError(t, svc.HandleNotificationEvent(ctx, service.ActionDelete, scheduler.Payload{TaskID: 1}))

	_, err = svc.GetTaskByID(ctx, 1)
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "NOT_FOUND", businessErr.Code)
	assert.Equal(t, 0, sched.ScheduledCount())

	// повторная доставка того же события - no-op
	require.NoError(t, svc.HandleNotificationEvent(ctx, service.ActionDelete, scheduler.Payload{TaskID: 1}))

	tasks, err := svc.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

// TestTaskService_HealthCheck тестирует HealthCheck
func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockTaskRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectError: false,
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := newService(mockRepo, new(MockScheduler))
			err := svc.HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "проверка здоровья сервиса")
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}
