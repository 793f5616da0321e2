package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// DiscountCode — скидочный код, привязанный к мероприятию. Код нормализуется
// к верхнему регистру; счётчик использований мутируется только внутри
// транзакции покупки.
type DiscountCode struct {
	ID            int64           `json:"id" db:"id"`
	EventID       int64           `json:"event_id" db:"event_id"`
	Code          string          `json:"code" db:"code"`
	Type          DiscountType    `json:"type" db:"type"`
	Value         decimal.Decimal `json:"value" db:"value"`
	MaxUses       int             `json:"max_uses" db:"max_uses"`
	CurrentUses   int             `json:"current_uses" db:"current_uses"`
	ValidFrom     time.Time       `json:"valid_from" db:"valid_from"`
	ValidTo       time.Time       `json:"valid_to" db:"valid_to"`
	TicketTypeIDs []int64         `json:"ticket_type_ids" db:"ticket_type_ids"`
	Active        bool            `json:"active" db:"active"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// NormalizeDiscountCode приводит код к каноническому виду
func NormalizeDiscountCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Usable проверяет активность, временное окно и остаток использований.
// Не мутирует код: списание использования происходит в транзакции покупки.
func (d *DiscountCode) Usable(now time.Time) error {
	if !d.Active {
		return ErrDiscountInvalid
	}
	if now.Before(d.ValidFrom) || now.After(d.ValidTo) {
		return ErrDiscountInvalid
	}
	if d.CurrentUses >= d.MaxUses {
		return ErrDiscountExhausted
	}
	return nil
}

// AppliesTo сообщает, распространяется ли скидка на данный тип билета.
// Пустой список типов означает "на все типы".
func (d *DiscountCode) AppliesTo(ticketTypeID int64) bool {
	if len(d.TicketTypeIDs) == 0 {
		return true
	}
	for _, id := range d.TicketTypeIDs {
		if id == ticketTypeID {
			return true
		}
	}
	return false
}

// Apply возвращает цену билета с учётом скидки. Цена не опускается ниже нуля.
func (d *DiscountCode) Apply(price decimal.Decimal) decimal.Decimal {
	var discounted decimal.Decimal
	switch d.Type {
	case DiscountTypePercentage:
		factor := decimal.NewFromInt(100).Sub(d.Value).Div(decimal.NewFromInt(100))
		discounted = price.Mul(factor).Round(2)
	case DiscountTypeFixed:
		discounted = price.Sub(d.Value)
	default:
		return price
	}
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted
}
