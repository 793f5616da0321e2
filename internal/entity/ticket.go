package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketStatusConfirmed       TicketStatus = "confirmed"
	TicketStatusCheckedIn       TicketStatus = "checked_in"
	TicketStatusCancelled       TicketStatus = "cancelled"
	TicketStatusRefundRequested TicketStatus = "refund_requested"
	TicketStatusRefunded        TicketStatus = "refunded"
)

// ticketTransitions описывает допустимые переходы статусов билета.
// Передача билета другому владельцу не является переходом статуса:
// билет остаётся confirmed у нового владельца.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusConfirmed:       {TicketStatusCheckedIn, TicketStatusCancelled, TicketStatusRefundRequested},
	TicketStatusCheckedIn:       {},
	TicketStatusCancelled:       {},
	TicketStatusRefundRequested: {TicketStatusRefunded},
	TicketStatusRefunded:        {},
}

// CanTransition проверяет, допустим ли переход из одного статуса в другой
func (s TicketStatus) CanTransition(to TicketStatus) bool {
	for _, next := range ticketTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Occupies сообщает, занимает ли билет в этом статусе место в пуле мероприятия
func (s TicketStatus) Occupies() bool {
	switch s {
	case TicketStatusConfirmed, TicketStatusCheckedIn, TicketStatusRefundRequested:
		return true
	default:
		return false
	}
}

// Ticket — один выпущенный билет. Билеты никогда не удаляются физически:
// отмена и возврат являются переходами статуса, что сохраняет историю
// для аудита и исключает переиспользование идентификаторов.
type Ticket struct {
	ID             string          `json:"id" db:"id"`
	EventID        int64           `json:"event_id" db:"event_id"`
	TicketTypeID   int64           `json:"ticket_type_id" db:"ticket_type_id"`
	RegistrationID string          `json:"registration_id" db:"registration_id"`
	OwnerID        string          `json:"owner_id" db:"owner_id"`
	Status         TicketStatus    `json:"status" db:"status"`
	PurchasePrice  decimal.Decimal `json:"purchase_price" db:"purchase_price"`
	Currency       string          `json:"currency" db:"currency"`
	PurchasedAt    time.Time       `json:"purchased_at" db:"purchased_at"`
	CheckedInAt    *time.Time      `json:"checked_in_at,omitempty" db:"checked_in_at"`
	PreviousOwner  *string         `json:"previous_owner,omitempty" db:"previous_owner"`
	Transferable   bool            `json:"transferable" db:"transferable"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
