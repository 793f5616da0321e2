package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type RegistrationStatus string

const (
	RegistrationStatusActive    RegistrationStatus = "active"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

// Registration — чек одной покупки: группирует билеты, выпущенные в рамках
// одной транзакции. На пользователя допускается не более одной активной
// регистрации на мероприятие.
type Registration struct {
	ID             string             `json:"id" db:"id"`
	EventID        int64              `json:"event_id" db:"event_id"`
	UserID         string             `json:"user_id" db:"user_id"`
	TotalAmount    decimal.Decimal    `json:"total_amount" db:"total_amount"`
	Currency       string             `json:"currency" db:"currency"`
	Status         RegistrationStatus `json:"status" db:"status"`
	IdempotencyKey string             `json:"idempotency_key,omitempty" db:"idempotency_key"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`

	// Tickets заполняется при чтении, в таблице хранится только связь
	Tickets []*Ticket `json:"tickets,omitempty" db:"-"`
}
