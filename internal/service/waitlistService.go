package service

import (
	"context"
	"errors"
	"log"
	"time"

	repository "github.com/ds124wfegd/tickethub/internal/database/postgres"
	"github.com/ds124wfegd/tickethub/internal/entity"
	"github.com/ds124wfegd/tickethub/internal/monitoring"
	"github.com/ds124wfegd/tickethub/pkg/notifier"

	"github.com/google/uuid"
)

type waitlistService struct {
	store        repository.Store
	waitlistRepo repository.WaitlistRepository
	queue        TaskPublisher
	notify       notifier.Notifier
	holdTTL      time.Duration
	txRetries    int
	now          func() time.Time
}

// NewWaitlistService создает новый экземпляр WaitlistService
func NewWaitlistService(
	store repository.Store,
	waitlistRepo repository.WaitlistRepository,
	queue TaskPublisher,
	notify notifier.Notifier,
	holdTTL time.Duration,
	txRetries int,
) WaitlistService {
	if holdTTL <= 0 {
		holdTTL = 24 * time.Hour
	}
	if txRetries <= 0 {
		txRetries = 3
	}
	if notify == nil {
		notify = notifier.NewNopNotifier()
	}
	return &waitlistService{
		store:        store,
		waitlistRepo: waitlistRepo,
		queue:        queue,
		notify:       notify,
		holdTTL:      holdTTL,
		txRetries:    txRetries,
		now:          time.Now,
	}
}

// Join ставит пользователя в очередь ожидания мероприятия. Позиция
// назначается внутри транзакции, что исключает дубликаты при
// конкурентных вступлениях.
func (s *waitlistService) Join(ctx context.Context, req *JoinWaitlistRequest) (*entity.WaitlistEntry, error) {
	var entry *entity.WaitlistEntry

	err := s.withRetry(ctx, func() error {
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			if _, err := tx.GetEvent(ctx, req.EventID); err != nil {
				return err
			}

			waiting, err := tx.HasActiveWaitlistEntry(ctx, req.EventID, req.UserID)
			if err != nil {
				return err
			}
			if waiting {
				return entity.ErrAlreadyWaiting
			}

			position, err := tx.NextWaitlistPosition(ctx, req.EventID)
			if err != nil {
				return err
			}

			e := &entity.WaitlistEntry{
				ID:       uuid.New().String(),
				EventID:  req.EventID,
				UserID:   req.UserID,
				Position: position,
				Status:   entity.WaitlistStatusWaiting,
				JoinedAt: s.now(),
			}
			if err := tx.InsertWaitlistEntry(ctx, e); err != nil {
				return err
			}

			entry = e
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Leave помечает запись expired. Позиции оставшихся не перенумеровываются.
// Повторный вызов для уже неактивной записи — no-op.
func (s *waitlistService) Leave(ctx context.Context, entryID, userID string) error {
	return s.withRetry(ctx, func() error {
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			entry, err := tx.GetWaitlistEntry(ctx, entryID)
			if err != nil {
				return err
			}
			if entry.UserID != userID {
				return entity.ErrWaitlistEntryNotFound
			}
			if !entry.Status.IsActive() {
				return nil
			}

			entry.Status = entity.WaitlistStatusExpired
			return tx.UpdateWaitlistEntry(ctx, entry)
		})
	})
}

// GetEntry возвращает запись листа ожидания по идентификатору
func (s *waitlistService) GetEntry(ctx context.Context, id string) (*entity.WaitlistEntry, error) {
	return s.waitlistRepo.GetByID(ctx, id)
}

// AdmitNext помечает до openings ожидающих как notified в порядке позиций.
// Билет не выпускается: уведомлённый должен успеть купить до дедлайна
// удержания, иначе место будет предложено следующему.
func (s *waitlistService) AdmitNext(ctx context.Context, eventID int64, openings int) ([]*entity.WaitlistEntry, error) {
	if openings <= 0 {
		return nil, nil
	}

	var admitted []*entity.WaitlistEntry

	err := s.withRetry(ctx, func() error {
		admitted = nil
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			entries, err := tx.ListWaitingEntries(ctx, eventID, openings)
			if err != nil {
				return err
			}

			now := s.now()
			for _, entry := range entries {
				entry.Status = entity.WaitlistStatusNotified
				entry.NotifiedAt = &now
				if err := tx.UpdateWaitlistEntry(ctx, entry); err != nil {
					return err
				}
				admitted = append(admitted, entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	for _, entry := range admitted {
		s.scheduleHoldExpiry(ctx, entry)
		s.emitSpotAvailable(entry)
		monitoring.RecordWaitlistAdmission(eventID)
	}

	return admitted, nil
}

// ExpireHold снимает просроченное удержание одной записи: запись
// возвращается в waiting в хвост очереди, место предлагается следующему
func (s *waitlistService) ExpireHold(ctx context.Context, entryID string) error {
	var eventID int64
	expired := false

	err := s.withRetry(ctx, func() error {
		expired = false
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			entry, err := tx.GetWaitlistEntry(ctx, entryID)
			if err != nil {
				return err
			}
			// Уже купил, вышел или был просрочен ранее
			if entry.Status != entity.WaitlistStatusNotified {
				return nil
			}
			if !entry.HoldExpired(s.now(), s.holdTTL) {
				return nil
			}

			if err := s.requeue(ctx, tx, entry); err != nil {
				return err
			}

			eventID = entry.EventID
			expired = true
			return nil
		})
	})
	if err != nil {
		return err
	}

	if expired {
		if _, err := s.AdmitNext(ctx, eventID, 1); err != nil {
			log.Printf("Failed to admit next entrant for event %d: %v", eventID, err)
		}
	}
	return nil
}

// SweepExpiredHolds — периодическая страховка: возвращает в очередь все
// записи с просроченным удержанием и предлагает места следующим
func (s *waitlistService) SweepExpiredHolds(ctx context.Context) (int, error) {
	freedPerEvent := make(map[int64]int)
	total := 0

	err := s.withRetry(ctx, func() error {
		freedPerEvent = make(map[int64]int)
		total = 0
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			entries, err := tx.ListExpiredHolds(ctx, s.now().Add(-s.holdTTL))
			if err != nil {
				return err
			}

			for _, entry := range entries {
				if err := s.requeue(ctx, tx, entry); err != nil {
					return err
				}
				freedPerEvent[entry.EventID]++
				total++
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	for eventID, openings := range freedPerEvent {
		if _, err := s.AdmitNext(ctx, eventID, openings); err != nil {
			log.Printf("Failed to admit next entrants for event %d: %v", eventID, err)
		}
	}

	return total, nil
}

// requeue возвращает запись в waiting в хвост очереди
func (s *waitlistService) requeue(ctx context.Context, tx repository.Tx, entry *entity.WaitlistEntry) error {
	position, err := tx.NextWaitlistPosition(ctx, entry.EventID)
	if err != nil {
		return err
	}

	entry.Status = entity.WaitlistStatusWaiting
	entry.Position = position
	entry.NotifiedAt = nil
	return tx.UpdateWaitlistEntry(ctx, entry)
}

// scheduleHoldExpiry ставит отложенную задачу на дедлайн удержания
func (s *waitlistService) scheduleHoldExpiry(ctx context.Context, entry *entity.WaitlistEntry) {
	if s.queue == nil {
		return
	}

	task := &Task{
		ID:   uuid.New().String(),
		Type: TaskTypeExpireHold,
		Data: map[string]interface{}{
			"entry_id": entry.ID,
			"event_id": entry.EventID,
		},
		ExecuteAt: entry.NotifiedAt.Add(s.holdTTL),
	}
	if err := s.queue.Publish(ctx, task); err != nil {
		log.Printf("Failed to schedule hold expiry for entry %s: %v", entry.ID, err)
	}
}

func (s *waitlistService) emitSpotAvailable(entry *entity.WaitlistEntry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		event := &entity.NotificationEvent{
			Kind:    entity.NotificationSpotAvailable,
			UserID:  entry.UserID,
			EventID: entry.EventID,
			Payload: map[string]any{
				"entry_id":      entry.ID,
				"hold_deadline": entry.NotifiedAt.Add(s.holdTTL).Format(time.RFC3339),
			},
			CreatedAt: s.now(),
		}
		if err := s.notify.Emit(ctx, event); err != nil {
			log.Printf("Failed to emit waitlist notification: %v", err)
		}
	}()
}

// withRetry повторяет fn при конфликте сериализации
func (s *waitlistService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.txRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, entity.ErrTxConflict) {
			return err
		}

		monitoring.RecordTxRetry()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return err
}
