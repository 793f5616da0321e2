package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/tickethub/internal/entity"

	"github.com/shopspring/decimal"
)

// CatalogService определяет интерфейс для операций с каталогом
type CatalogService interface {
	// Основные операции
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error)
	GetEvent(ctx context.Context, id int64) (*entity.Event, error)
	CreateTicketType(ctx context.Context, req *CreateTicketTypeRequest) (*entity.TicketType, error)
	GetTicketType(ctx context.Context, id int64) (*entity.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID int64) ([]*entity.TicketType, error)

	// Проекции
	GetEventStats(ctx context.Context, eventID int64) (*entity.EventStats, error)
}

// DiscountService определяет интерфейс для операций со скидочными кодами
type DiscountService interface {
	CreateDiscount(ctx context.Context, req *CreateDiscountRequest) (*entity.DiscountCode, error)
	// ValidateDiscount проверяет код без списания использования
	// и возвращает цену со скидкой для указанного типа билета.
	ValidateDiscount(ctx context.Context, req *ValidateDiscountRequest) (*DiscountQuote, error)
}

// ReservationService — конвейер покупки билетов
type ReservationService interface {
	Purchase(ctx context.Context, req *PurchaseRequest) (*entity.Registration, error)
	GetRegistration(ctx context.Context, id string) (*entity.Registration, error)
}

// LifecycleService — операции над купленным билетом
type LifecycleService interface {
	CheckIn(ctx context.Context, ticketID string) (*entity.Ticket, error)
	Cancel(ctx context.Context, ticketID, userID string) (*entity.Ticket, error)
	RequestRefund(ctx context.Context, ticketID, userID string) (*entity.Ticket, error)
	CompleteRefund(ctx context.Context, ticketID string) (*entity.Ticket, error)
	Transfer(ctx context.Context, req *TransferRequest) (*entity.Ticket, error)

	GetTicket(ctx context.Context, id string) (*entity.Ticket, error)
	GetUserTickets(ctx context.Context, userID string) ([]*entity.Ticket, error)
	GetEventTickets(ctx context.Context, eventID int64) ([]*entity.Ticket, error)
}

// WaitlistService — лист ожидания с FIFO-дисциплиной
type WaitlistService interface {
	Join(ctx context.Context, req *JoinWaitlistRequest) (*entity.WaitlistEntry, error)
	Leave(ctx context.Context, entryID, userID string) error
	GetEntry(ctx context.Context, id string) (*entity.WaitlistEntry, error)

	// AdmitNext предлагает освободившиеся места первым ожидающим в порядке FIFO
	AdmitNext(ctx context.Context, eventID int64, openings int) ([]*entity.WaitlistEntry, error)

	// Операции истечения удержаний
	ExpireHold(ctx context.Context, entryID string) error
	SweepExpiredHolds(ctx context.Context) (int, error)
}

// CreateEventRequest представляет данные для создания события
type CreateEventRequest struct {
	Title         string            `json:"title" binding:"required"`
	Venue         string            `json:"venue"`
	StartsAt      entity.CustomTime `json:"starts_at" binding:"required"`
	TotalCapacity int               `json:"total_capacity" binding:"required,min=1"`
}

// CreateTicketTypeRequest представляет данные для создания типа билета
type CreateTicketTypeRequest struct {
	EventID        int64             `json:"event_id"`
	Name           string            `json:"name" binding:"required"`
	Price          decimal.Decimal   `json:"price" binding:"required"`
	Currency       string            `json:"currency"`
	TotalAvailable int               `json:"total_available" binding:"required,min=1"`
	MaxPerPerson   int               `json:"max_per_person" binding:"min=1"`
	SaleStart      entity.CustomTime `json:"sale_start" binding:"required"`
	SaleEnd        entity.CustomTime `json:"sale_end" binding:"required"`
}

// CreateDiscountRequest представляет данные для создания скидочного кода
type CreateDiscountRequest struct {
	EventID       int64             `json:"event_id"`
	Code          string            `json:"code" binding:"required"`
	Type          string            `json:"type" binding:"required,oneof=percentage fixed"`
	Value         decimal.Decimal   `json:"value" binding:"required"`
	MaxUses       int               `json:"max_uses" binding:"required,min=1"`
	ValidFrom     entity.CustomTime `json:"valid_from" binding:"required"`
	ValidTo       entity.CustomTime `json:"valid_to" binding:"required"`
	TicketTypeIDs []int64           `json:"ticket_type_ids"`
}

// ValidateDiscountRequest — запрос предварительной проверки кода
type ValidateDiscountRequest struct {
	EventID      int64  `json:"event_id"`
	Code         string `json:"code" binding:"required"`
	TicketTypeID int64  `json:"ticket_type_id" binding:"required"`
}

// DiscountQuote — результат предварительной проверки кода
type DiscountQuote struct {
	Code            string          `json:"code"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	RemainingUses   int             `json:"remaining_uses"`
}

// PurchaseItem — позиция покупки
type PurchaseItem struct {
	TicketTypeID int64 `json:"ticket_type_id" binding:"required"`
	Quantity     int   `json:"quantity" binding:"required,min=1"`
}

// PurchaseRequest представляет данные для покупки билетов
type PurchaseRequest struct {
	EventID        int64          `json:"event_id" binding:"required"`
	UserID         string         `json:"user_id" binding:"required"`
	Items          []PurchaseItem `json:"items" binding:"required,min=1,dive"`
	DiscountCode   string         `json:"discount_code"`
	IdempotencyKey string         `json:"idempotency_key"`
}

// TransferRequest представляет данные для передачи билета
type TransferRequest struct {
	TicketID   string `json:"-"`
	FromUserID string `json:"from_user_id" binding:"required"`
	ToUserID   string `json:"to_user_id" binding:"required"`
}

// JoinWaitlistRequest представляет данные для вступления в лист ожидания
type JoinWaitlistRequest struct {
	EventID int64  `json:"event_id" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
}

// TaskPublisher интерфейс для публикации задач в очередь
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task представляет задачу для очереди
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

// Константы типов задач
const (
	TaskTypeExpireHold    = "expire_hold"
	TaskTypeWaitlistSweep = "waitlist_sweep"
)
