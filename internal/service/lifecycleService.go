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
)

type lifecycleService struct {
	store      repository.Store
	ticketRepo repository.TicketRepository
	waitlist   WaitlistService
	notify     notifier.Notifier
	txRetries  int
	now        func() time.Time
}

// NewLifecycleService создает новый экземпляр LifecycleService
func NewLifecycleService(
	store repository.Store,
	ticketRepo repository.TicketRepository,
	waitlist WaitlistService,
	notify notifier.Notifier,
	txRetries int,
) LifecycleService {
	if txRetries <= 0 {
		txRetries = 3
	}
	if notify == nil {
		notify = notifier.NewNopNotifier()
	}
	return &lifecycleService{
		store:      store,
		ticketRepo: ticketRepo,
		waitlist:   waitlist,
		notify:     notify,
		txRetries:  txRetries,
		now:        time.Now,
	}
}

// CheckIn отмечает вход по билету. Повторный вызов возвращает
// ErrAlreadyCheckedIn и не удваивает счётчик входов.
func (s *lifecycleService) CheckIn(ctx context.Context, ticketID string) (*entity.Ticket, error) {
	var ticket *entity.Ticket

	err := s.withRetry(ctx, func() error {
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			t, err := tx.GetTicket(ctx, ticketID)
			if err != nil {
				return err
			}

			if t.Status == entity.TicketStatusCheckedIn {
				return entity.ErrAlreadyCheckedIn
			}
			if !t.Status.CanTransition(entity.TicketStatusCheckedIn) {
				return entity.ErrInvalidStateTransition
			}

			now := s.now()
			t.Status = entity.TicketStatusCheckedIn
			t.CheckedInAt = &now
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}

			if err := tx.AddCheckedInCount(ctx, t.EventID, 1); err != nil {
				return err
			}

			ticket = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordCheckIn(ticket.EventID)
	return ticket, nil
}

// Cancel отменяет билет владельца и освобождает ёмкость
func (s *lifecycleService) Cancel(ctx context.Context, ticketID, userID string) (*entity.Ticket, error) {
	ticket, err := s.release(ctx, ticketID, userID, entity.TicketStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.emit(entity.NotificationTicketCancelled, ticket)
	s.admitFreed(ctx, ticket.EventID, 1)
	return ticket, nil
}

// RequestRefund помечает билет к возврату. Место остаётся занятым до
// завершения возврата: заявка может быть отклонена, и билет вернётся
// в оборот без повторной продажи его места.
func (s *lifecycleService) RequestRefund(ctx context.Context, ticketID, userID string) (*entity.Ticket, error) {
	var ticket *entity.Ticket

	err := s.withRetry(ctx, func() error {
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			t, err := tx.GetTicket(ctx, ticketID)
			if err != nil {
				return err
			}
			if t.OwnerID != userID {
				return entity.ErrNotTicketOwner
			}
			if !t.Status.CanTransition(entity.TicketStatusRefundRequested) {
				return entity.ErrInvalidStateTransition
			}

			t.Status = entity.TicketStatusRefundRequested
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}

			ticket = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emit(entity.NotificationRefundRequested, ticket)
	return ticket, nil
}

// CompleteRefund — терминальный переход, вызывается коллаборатором расчётов
// после возврата денег. Освобождает место и предлагает его листу ожидания.
func (s *lifecycleService) CompleteRefund(ctx context.Context, ticketID string) (*entity.Ticket, error) {
	var ticket *entity.Ticket

	err := s.withRetry(ctx, func() error {
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			t, err := tx.GetTicket(ctx, ticketID)
			if err != nil {
				return err
			}
			if !t.Status.CanTransition(entity.TicketStatusRefunded) {
				return entity.ErrInvalidStateTransition
			}

			t.Status = entity.TicketStatusRefunded
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}

			if err := s.freeCapacity(ctx, tx, t); err != nil {
				return err
			}

			ticket = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emit(entity.NotificationRefundCompleted, ticket)
	s.admitFreed(ctx, ticket.EventID, 1)
	return ticket, nil
}

// Transfer передает билет другому пользователю. Статус не меняется:
// билет остаётся confirmed у нового владельца, фиксируется происхождение.
func (s *lifecycleService) Transfer(ctx context.Context, req *TransferRequest) (*entity.Ticket, error) {
	if req.FromUserID == req.ToUserID {
		return nil, entity.ErrInvalidInput
	}

	var ticket *entity.Ticket

	err := s.withRetry(ctx, func() error {
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			t, err := tx.GetTicket(ctx, req.TicketID)
			if err != nil {
				return err
			}
			if t.OwnerID != req.FromUserID {
				return entity.ErrNotTicketOwner
			}
			if t.Status != entity.TicketStatusConfirmed {
				return entity.ErrInvalidStateTransition
			}
			if !t.Transferable {
				return entity.ErrNotTransferable
			}

			previous := t.OwnerID
			t.PreviousOwner = &previous
			t.OwnerID = req.ToUserID
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}

			ticket = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emit(entity.NotificationTicketTransferred, ticket)
	return ticket, nil
}

func (s *lifecycleService) GetTicket(ctx context.Context, id string) (*entity.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, id)
}

func (s *lifecycleService) GetUserTickets(ctx context.Context, userID string) ([]*entity.Ticket, error) {
	return s.ticketRepo.GetByUser(ctx, userID)
}

func (s *lifecycleService) GetEventTickets(ctx context.Context, eventID int64) ([]*entity.Ticket, error) {
	return s.ticketRepo.GetByEvent(ctx, eventID)
}

// release выполняет переход, освобождающий место, с проверкой владельца
func (s *lifecycleService) release(ctx context.Context, ticketID, userID string, to entity.TicketStatus) (*entity.Ticket, error) {
	var ticket *entity.Ticket

	err := s.withRetry(ctx, func() error {
		return s.store.WithinTx(ctx, func(tx repository.Tx) error {
			t, err := tx.GetTicket(ctx, ticketID)
			if err != nil {
				return err
			}
			if t.OwnerID != userID {
				return entity.ErrNotTicketOwner
			}
			if !t.Status.CanTransition(to) {
				return entity.ErrInvalidStateTransition
			}

			t.Status = to
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}

			if err := s.freeCapacity(ctx, tx, t); err != nil {
				return err
			}

			ticket = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// freeCapacity возвращает место билета в пул и закрывает регистрацию,
// когда её последний билет покинул активное множество
func (s *lifecycleService) freeCapacity(ctx context.Context, tx repository.Tx, t *entity.Ticket) error {
	if err := tx.AddSoldCount(ctx, t.TicketTypeID, -1); err != nil {
		return err
	}
	if err := tx.AddRegisteredCount(ctx, t.EventID, -1); err != nil {
		return err
	}

	occupying, err := tx.CountOccupyingTickets(ctx, t.RegistrationID)
	if err != nil {
		return err
	}
	if occupying == 0 {
		if err := tx.UpdateRegistrationStatus(ctx, t.RegistrationID, entity.RegistrationStatusCancelled); err != nil {
			return err
		}
	}
	return nil
}

// admitFreed предлагает освободившиеся места листу ожидания
func (s *lifecycleService) admitFreed(ctx context.Context, eventID int64, openings int) {
	if s.waitlist == nil {
		return
	}
	if _, err := s.waitlist.AdmitNext(ctx, eventID, openings); err != nil {
		log.Printf("Failed to admit waitlist entrants for event %d: %v", eventID, err)
	}
}

func (s *lifecycleService) emit(kind string, ticket *entity.Ticket) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		event := &entity.NotificationEvent{
			Kind:    kind,
			UserID:  ticket.OwnerID,
			EventID: ticket.EventID,
			Payload: map[string]any{
				"ticket_id": ticket.ID,
				"status":    string(ticket.Status),
			},
			CreatedAt: s.now(),
		}
		if err := s.notify.Emit(ctx, event); err != nil {
			log.Printf("Failed to emit %s notification: %v", kind, err)
		}
	}()
}

// withRetry повторяет fn при конфликте сериализации
func (s *lifecycleService) withRetry(ctx context.Context, fn func() error) error {
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
