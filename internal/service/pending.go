package service

import (
	"sync"

	"odotList/internal/scheduler"
)

// PendingAction - отложенное действие уведомления, ждущее перехода
// приложения в foreground.
type PendingAction struct {
	ActionID string
	Payload  scheduler.Payload
}

// ActionCell - ячейка на одно отложенное действие. Не очередь:
// запись поверх непотреблённого значения молча вытесняет его
// (последний победил), чтение забирает значение ровно один раз.
type ActionCell struct {
	mtx sync.Mutex
	val *PendingAction
}

func NewActionCell() *ActionCell {
	return &ActionCell{}
}

func (c *ActionCell) Set(action PendingAction) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.val = &action
}

func (c *ActionCell) Take() (PendingAction, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.val == nil {
		return PendingAction{}, false
	}
	action := *c.val
	c.val = nil
	return action, true
}
