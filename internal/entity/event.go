package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID              int64     `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Venue           string    `json:"venue" db:"venue"`
	StartsAt        time.Time `json:"starts_at" db:"starts_at"`
	TotalCapacity   int       `json:"total_capacity" db:"total_capacity"`
	RegisteredCount int       `json:"registered_count" db:"registered_count"`
	CheckedInCount  int       `json:"checked_in_count" db:"checked_in_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// RemainingCapacity возвращает количество свободных мест в общем пуле мероприятия
func (e *Event) RemainingCapacity() int {
	return e.TotalCapacity - e.RegisteredCount
}

type TicketType struct {
	ID             int64           `json:"id" db:"id"`
	EventID        int64           `json:"event_id" db:"event_id"`
	Name           string          `json:"name" db:"name"`
	Price          decimal.Decimal `json:"price" db:"price"`
	Currency       string          `json:"currency" db:"currency"`
	TotalAvailable int             `json:"total_available" db:"total_available"`
	Sold           int             `json:"sold" db:"sold"`
	MaxPerPerson   int             `json:"max_per_person" db:"max_per_person"`
	SaleStart      time.Time       `json:"sale_start" db:"sale_start"`
	SaleEnd        time.Time       `json:"sale_end" db:"sale_end"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Remaining возвращает количество непроданных билетов этого типа
func (t *TicketType) Remaining() int {
	return t.TotalAvailable - t.Sold
}

// WithinSaleWindow проверяет, открыто ли окно продаж в указанный момент
func (t *TicketType) WithinSaleWindow(now time.Time) bool {
	return !now.Before(t.SaleStart) && !now.After(t.SaleEnd)
}

// TypeAvailability является read-only проекцией каталога типов билетов
type TypeAvailability struct {
	TicketTypeID     int64           `json:"ticket_type_id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	Remaining        int             `json:"remaining"`
	WithinSaleWindow bool            `json:"within_sale_window"`
}
