package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/tickethub/internal/entity"
)

type registrationRepository struct {
	db *sql.DB
}

func NewRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

const registrationColumns = `id, event_id, user_id, total_amount, currency, status, COALESCE(idempotency_key, ''), created_at`

func scanRegistration(row rowScanner) (*entity.Registration, error) {
	var reg entity.Registration
	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.TotalAmount,
		&reg.Currency,
		&reg.Status,
		&reg.IdempotencyKey,
		&reg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan registration: %w", err)
	}
	return &reg, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*entity.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return scanRegistration(r.db.QueryRowContext(ctx, query, id))
}

func (r *registrationRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE idempotency_key = $1`
	return scanRegistration(r.db.QueryRowContext(ctx, query, key))
}

func (r *registrationRepository) GetActiveByEventAndUser(ctx context.Context, eventID int64, userID string) (*entity.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND user_id = $2 AND status = 'active'`
	return scanRegistration(r.db.QueryRowContext(ctx, query, eventID, userID))
}

// Методы pgTx по регистрациям.

func (t *pgTx) HasActiveRegistration(ctx context.Context, eventID int64, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2 AND status = 'active')`

	var exists bool
	if err := t.tx.QueryRowContext(ctx, query, eventID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing registration: %w", err)
	}
	return exists, nil
}

func (t *pgTx) InsertRegistration(ctx context.Context, reg *entity.Registration) error {
	query := `
		INSERT INTO registrations (id, event_id, user_id, total_amount, currency, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`

	_, err := t.tx.ExecContext(ctx, query,
		reg.ID,
		reg.EventID,
		reg.UserID,
		reg.TotalAmount,
		reg.Currency,
		reg.Status,
		reg.IdempotencyKey,
		reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus) error {
	query := `UPDATE registrations SET status = $1 WHERE id = $2`

	res, err := t.tx.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return requireRow(res, entity.ErrRegistrationNotFound)
}
