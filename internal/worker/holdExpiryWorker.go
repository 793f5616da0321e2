package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/tickethub/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HoldExpiryWorker периодически ставит в очередь задачу полной проверки
// просроченных удержаний. Отложенные задачи на конкретные дедлайны
// остаются основным механизмом; эта задача — страховка на случай их потери.
type HoldExpiryWorker struct {
	publisher service.TaskPublisher
	interval  time.Duration
}

func NewHoldExpiryWorker(publisher service.TaskPublisher, interval time.Duration) *HoldExpiryWorker {
	return &HoldExpiryWorker{
		publisher: publisher,
		interval:  interval,
	}
}

func (w *HoldExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Hold expiry worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Hold expiry worker stopped")
			return
		case <-ticker.C:
			w.enqueueSweep(ctx)
		}
	}
}

// enqueueSweep публикует задачу waitlist_sweep
func (w *HoldExpiryWorker) enqueueSweep(ctx context.Context) {
	if w.publisher == nil {
		return
	}

	task := &service.Task{
		ID:   uuid.New().String(),
		Type: service.TaskTypeWaitlistSweep,
		Data: map[string]interface{}{},
	}

	if err := w.publisher.Publish(ctx, task); err != nil {
		logrus.Errorf("Failed to enqueue waitlist sweep: %v", err)
		return
	}

	logrus.Debug("Waitlist sweep task enqueued")
}
