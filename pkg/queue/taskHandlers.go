package queue

import (
	"context"
	"fmt"
	"log"
	"time"
)

// WaitlistMaintainer выполняет доменную работу задач очереди. Интерфейс
// объявлен на стороне потребителя, чтобы пакет очереди не зависел от
// сервисного слоя.
type WaitlistMaintainer interface {
	ExpireHold(ctx context.Context, entryID string) error
	SweepExpiredHolds(ctx context.Context) (int, error)
}

// TaskHandler dispatches queue tasks to the domain layer
type TaskHandler struct {
	waitlist WaitlistMaintainer
	timeout  time.Duration
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(waitlist WaitlistMaintainer, timeout time.Duration) *TaskHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TaskHandler{
		waitlist: waitlist,
		timeout:  timeout,
	}
}

// Handle routes a task to its handler by type
func (h *TaskHandler) Handle(task *Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	switch task.Type {
	case TaskTypeExpireHold:
		return h.handleExpireHold(ctx, task)
	case TaskTypeWaitlistSweep:
		return h.handleWaitlistSweep(ctx, task)
	default:
		return fmt.Errorf("invalid task type: %s", task.Type)
	}
}

// handleExpireHold releases a single waitlist hold whose deadline passed
func (h *TaskHandler) handleExpireHold(ctx context.Context, task *Task) error {
	entryID := task.GetString("entry_id")
	if entryID == "" {
		return fmt.Errorf("invalid expire_hold task: entry_id is required")
	}

	if err := h.waitlist.ExpireHold(ctx, entryID); err != nil {
		return fmt.Errorf("failed to expire hold %s: %w", entryID, err)
	}

	log.Printf("Hold expired for waitlist entry %s", entryID)
	return nil
}

// handleWaitlistSweep releases all overdue holds in one pass
func (h *TaskHandler) handleWaitlistSweep(ctx context.Context, task *Task) error {
	expired, err := h.waitlist.SweepExpiredHolds(ctx)
	if err != nil {
		return fmt.Errorf("waitlist sweep failed: %w", err)
	}

	if expired > 0 {
		log.Printf("Waitlist sweep released %d overdue holds", expired)
	}
	return nil
}
