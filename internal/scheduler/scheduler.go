// Package scheduler - локальные напоминания: запланировать алерт на момент
// времени, отменить по handle. Аналог системного центра уведомлений.
package scheduler

import (
	"context"
	"sync"
	"time"

	"odotList/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Payload - данные, которые уведомление несёт обратно в приложение
type Payload struct {
	TaskID int64 `json:"task_id"`
}

// DeliveryFunc вызывается при срабатывании уведомления
type DeliveryFunc func(ctx context.Context, handle string, payload Payload)

type entry struct {
	payload Payload
	firesAt time.Time
}

type LocalScheduler struct {
	mtx       sync.Mutex
	entries   map[string]entry
	deliver   DeliveryFunc
	interval  time.Duration
	batchSize int
}

func New(interval *time.Duration, batchSize *int) *LocalScheduler {
	var intervalToSet time.Duration
	if interval == nil {
		intervalToSet = time.Second
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil {
		batchToSet = 100
	} else {
		batchToSet = *batchSize
	}

	return &LocalScheduler{
		entries:   make(map[string]entry),
		interval:  intervalToSet,
		batchSize: batchToSet,
	}
}

// SetDelivery назначает получателя сработавших уведомлений.
// Вызывается один раз при сборке приложения, до Start.
func (s *LocalScheduler) SetDelivery(deliver DeliveryFunc) {
	s.deliver = deliver
}

// Schedule регистрирует уведомление и возвращает его handle.
// Момент в прошлом не отклоняется - такое уведомление сработает
// на ближайшем тике.
func (s *LocalScheduler) Schedule(ctx context.Context, payload Payload, firesAt time.Time) (string, error) {
	handle := uuid.New().String()

	s.mtx.Lock()
	s.entries[handle] = entry{payload: payload, firesAt: firesAt}
	s.mtx.Unlock()

	if firesAt.Before(time.Now()) {
		logger.Warn("Scheduler: Момент срабатывания уже в прошлом",
			zap.String("handle", handle),
			zap.Int64("task_id", payload.TaskID))
	}

	logger.Info("Scheduler: Уведомление запланировано",
		zap.String("handle", handle),
		zap.Int64("task_id", payload.TaskID),
		zap.Time("fires_at", firesAt))
	return handle, nil
}

// Cancel снимает уведомление. Неизвестный или уже сработавший handle -
// штатная ситуация, не ошибка (отмена гонится со срабатыванием).
func (s *LocalScheduler) Cancel(ctx context.Context, handle string) error {
	s.mtx.Lock()
	_, existed := s.entries[handle]
	delete(s.entries, handle)
	s.mtx.Unlock()

	if !existed {
		logger.Info("Scheduler: Отмена неизвестного handle", zap.String("handle", handle))
		return nil
	}

	logger.Info("Scheduler: Уведомление отменено", zap.String("handle", handle))
	return nil
}

func (s *LocalScheduler) ScheduledCount() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.entries)
}

func (s *LocalScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Check(ctx)
		case <-ctx.Done():
			logger.Info("Scheduler: Цикл доставки останавливается")
			return
		}
	}
}

// Check доставляет созревшие уведомления и забывает их.
// Каждый handle срабатывает максимум один раз.
func (s *LocalScheduler) Check(ctx context.Context) {
	now := time.Now()

	type fired struct {
		handle  string
		payload Payload
	}

	s.mtx.Lock()
	due := []fired{}
	for handle, e := range s.entries {
		if len(due) >= s.batchSize {
			break
		}
		if e.firesAt.After(now) {
			continue
		}
		due = append(due, fired{handle: handle, payload: e.payload})
		delete(s.entries, handle)
	}
	s.mtx.Unlock()

	for _, f := range due {
		logger.Info("Scheduler: Уведомление сработало",
			zap.String("handle", f.handle),
			zap.Int64("task_id", f.payload.TaskID))
		if s.deliver != nil {
			s.deliver(ctx, f.handle, f.payload)
		}
	}
}
