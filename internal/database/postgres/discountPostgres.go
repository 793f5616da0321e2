package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ds124wfegd/tickethub/internal/entity"
)

type discountRepository struct {
	db *sql.DB
}

func NewDiscountRepository(db *sql.DB) DiscountRepository {
	return &discountRepository{db: db}
}

const discountColumns = `id, event_id, code, type, value, max_uses, current_uses, valid_from, valid_to, ticket_type_ids, active, created_at`

func (r *discountRepository) Create(ctx context.Context, code *entity.DiscountCode) error {
	query := `
		INSERT INTO discount_codes (event_id, code, type, value, max_uses, valid_from, valid_to, ticket_type_ids, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	code.Code = entity.NormalizeDiscountCode(code.Code)
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		code.EventID,
		code.Code,
		code.Type,
		code.Value,
		code.MaxUses,
		code.ValidFrom,
		code.ValidTo,
		pq.Array(code.TicketTypeIDs),
		code.Active,
		now,
	).Scan(&code.ID)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to create discount code: %w", err))
	}

	code.CreatedAt = now
	return nil
}

func scanDiscount(row rowScanner) (*entity.DiscountCode, error) {
	var code entity.DiscountCode
	var typeIDs pq.Int64Array
	err := row.Scan(
		&code.ID,
		&code.EventID,
		&code.Code,
		&code.Type,
		&code.Value,
		&code.MaxUses,
		&code.CurrentUses,
		&code.ValidFrom,
		&code.ValidTo,
		&typeIDs,
		&code.Active,
		&code.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrDiscountInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan discount code: %w", err)
	}
	code.TicketTypeIDs = []int64(typeIDs)
	return &code, nil
}

func (r *discountRepository) GetByCode(ctx context.Context, eventID int64, code string) (*entity.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes WHERE event_id = $1 AND code = $2`
	return scanDiscount(r.db.QueryRowContext(ctx, query, eventID, entity.NormalizeDiscountCode(code)))
}

// Методы pgTx по скидочным кодам.

func (t *pgTx) GetDiscountByCode(ctx context.Context, eventID int64, code string) (*entity.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes WHERE event_id = $1 AND code = $2`
	return scanDiscount(t.tx.QueryRowContext(ctx, query, eventID, entity.NormalizeDiscountCode(code)))
}

// RedeemDiscount списывает одно использование кода. Условный UPDATE
// разрешает гонку двух покупателей за последнее использование: проигравший
// не изменяет ни одной строки и получает ErrDiscountExhausted.
func (t *pgTx) RedeemDiscount(ctx context.Context, codeID int64) error {
	query := `UPDATE discount_codes SET current_uses = current_uses + 1 WHERE id = $1 AND current_uses < max_uses`

	res, err := t.tx.ExecContext(ctx, query, codeID)
	if err != nil {
		return fmt.Errorf("failed to redeem discount code: %w", err)
	}
	return requireRow(res, entity.ErrDiscountExhausted)
}
