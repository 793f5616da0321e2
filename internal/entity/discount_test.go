package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDiscountApply тестирует расчёт цены со скидкой
func TestDiscountApply(t *testing.T) {
	tests := []struct {
		name     string
		dType    DiscountType
		value    string
		price    string
		expected string
	}{
		{name: "percentage discount", dType: DiscountTypePercentage, value: "25", price: "100.00", expected: "75"},
		{name: "percentage rounds to cents", dType: DiscountTypePercentage, value: "10", price: "33.33", expected: "30"},
		{name: "full percentage", dType: DiscountTypePercentage, value: "100", price: "50.00", expected: "0"},
		{name: "fixed discount", dType: DiscountTypeFixed, value: "15.50", price: "40.00", expected: "24.5"},
		{name: "fixed floors at zero", dType: DiscountTypeFixed, value: "60.00", price: "40.00", expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := &DiscountCode{
				Type:  tt.dType,
				Value: decimal.RequireFromString(tt.value),
			}

			got := code.Apply(decimal.RequireFromString(tt.price))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, got)
		})
	}
}

// TestDiscountUsable тестирует проверку активности, окна и остатка использований
func TestDiscountUsable(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	base := DiscountCode{
		Active:    true,
		ValidFrom: now.Add(-time.Hour),
		ValidTo:   now.Add(time.Hour),
		MaxUses:   10,
	}

	t.Run("usable inside window", func(t *testing.T) {
		code := base
		require.NoError(t, code.Usable(now))
	})

	t.Run("inactive code", func(t *testing.T) {
		code := base
		code.Active = false
		assert.ErrorIs(t, code.Usable(now), ErrDiscountInvalid)
	})

	t.Run("before window", func(t *testing.T) {
		code := base
		code.ValidFrom = now.Add(time.Minute)
		assert.ErrorIs(t, code.Usable(now), ErrDiscountInvalid)
	})

	t.Run("after window", func(t *testing.T) {
		code := base
		code.ValidTo = now.Add(-time.Minute)
		assert.ErrorIs(t, code.Usable(now), ErrDiscountInvalid)
	})

	t.Run("exhausted", func(t *testing.T) {
		code := base
		code.CurrentUses = code.MaxUses
		assert.ErrorIs(t, code.Usable(now), ErrDiscountExhausted)
	})
}

// TestDiscountAppliesTo тестирует ограничение скидки по типам билетов
func TestDiscountAppliesTo(t *testing.T) {
	unrestricted := &DiscountCode{}
	assert.True(t, unrestricted.AppliesTo(1))
	assert.True(t, unrestricted.AppliesTo(42))

	restricted := &DiscountCode{TicketTypeIDs: []int64{2, 5}}
	assert.True(t, restricted.AppliesTo(2))
	assert.True(t, restricted.AppliesTo(5))
	assert.False(t, restricted.AppliesTo(1))
}

// TestNormalizeDiscountCode тестирует нормализацию кода
func TestNormalizeDiscountCode(t *testing.T) {
	assert.Equal(t, "EARLYBIRD", NormalizeDiscountCode("  earlyBird "))
	assert.Equal(t, "", NormalizeDiscountCode("   "))
}
