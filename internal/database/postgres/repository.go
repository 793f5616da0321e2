package repository

import (
	"context"
	"time"

	"github.com/ds124wfegd/tickethub/internal/entity"
)

// Store — адаптер транзакционного хранилища. Вся взаимная блокировка
// делегируется механизму транзакций хранилища: WithinTx исполняет fn в
// snapshot-изолированной транзакции, и конкурирующий коммит, инвалидирующий
// прочитанные данные, завершает проигравшую транзакцию ошибкой
// entity.ErrTxConflict. Счётчики ёмкости мутируются только внутри таких
// транзакций.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx — примитивы чтения/записи, доступные внутри одной транзакции.
// Любая реализация обязана включать прочитанные счётчики в read set
// транзакции, чтобы гонка за последние места разрешалась конфликтом,
// а не двойной продажей.
type Tx interface {
	// Events and ticket types
	GetEvent(ctx context.Context, eventID int64) (*entity.Event, error)
	GetTicketType(ctx context.Context, typeID int64) (*entity.TicketType, error)
	AddRegisteredCount(ctx context.Context, eventID int64, delta int) error
	AddCheckedInCount(ctx context.Context, eventID int64, delta int) error
	AddSoldCount(ctx context.Context, typeID int64, delta int) error

	// Registrations
	HasActiveRegistration(ctx context.Context, eventID int64, userID string) (bool, error)
	InsertRegistration(ctx context.Context, reg *entity.Registration) error
	UpdateRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus) error

	// Tickets
	InsertTicket(ctx context.Context, ticket *entity.Ticket) error
	GetTicket(ctx context.Context, id string) (*entity.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *entity.Ticket) error
	CountOccupyingTickets(ctx context.Context, registrationID string) (int, error)

	// Discount codes
	GetDiscountByCode(ctx context.Context, eventID int64, code string) (*entity.DiscountCode, error)
	RedeemDiscount(ctx context.Context, codeID int64) error

	// Waitlist
	NextWaitlistPosition(ctx context.Context, eventID int64) (int64, error)
	HasActiveWaitlistEntry(ctx context.Context, eventID int64, userID string) (bool, error)
	GetActiveWaitlistEntry(ctx context.Context, eventID int64, userID string) (*entity.WaitlistEntry, error)
	InsertWaitlistEntry(ctx context.Context, entry *entity.WaitlistEntry) error
	GetWaitlistEntry(ctx context.Context, id string) (*entity.WaitlistEntry, error)
	ListWaitingEntries(ctx context.Context, eventID int64, limit int) ([]*entity.WaitlistEntry, error)
	ListExpiredHolds(ctx context.Context, notifiedBefore time.Time) ([]*entity.WaitlistEntry, error)
	UpdateWaitlistEntry(ctx context.Context, entry *entity.WaitlistEntry) error
}

// Read-only репозитории для проекций вне транзакций ядра.

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id int64) (*entity.Event, error)
	CreateTicketType(ctx context.Context, tt *entity.TicketType) error
	GetTicketType(ctx context.Context, id int64) (*entity.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID int64) ([]*entity.TicketType, error)
	GetStats(ctx context.Context, eventID int64) (*entity.EventStats, error)
}

type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Ticket, error)
	GetByUser(ctx context.Context, userID string) ([]*entity.Ticket, error)
	GetByEvent(ctx context.Context, eventID int64) ([]*entity.Ticket, error)
	GetByRegistration(ctx context.Context, registrationID string) ([]*entity.Ticket, error)
}

type RegistrationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Registration, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.Registration, error)
	GetActiveByEventAndUser(ctx context.Context, eventID int64, userID string) (*entity.Registration, error)
}

type WaitlistRepository interface {
	GetByID(ctx context.Context, id string) (*entity.WaitlistEntry, error)
	GetActiveByEventAndUser(ctx context.Context, eventID int64, userID string) (*entity.WaitlistEntry, error)
	CountWaiting(ctx context.Context, eventID int64) (int, error)
}

type DiscountRepository interface {
	Create(ctx context.Context, code *entity.DiscountCode) error
	GetByCode(ctx context.Context, eventID int64, code string) (*entity.DiscountCode, error)
}
