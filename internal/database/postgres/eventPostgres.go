package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/tickethub/internal/entity"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, title, venue, starts_at, total_capacity, registered_count, checked_in_count, created_at, updated_at`

func scanEvent(row *sql.Row) (*entity.Event, error) {
	var event entity.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Venue,
		&event.StartsAt,
		&event.TotalCapacity,
		&event.RegisteredCount,
		&event.CheckedInCount,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	query := `
		INSERT INTO events (title, venue, starts_at, total_capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Venue,
		event.StartsAt,
		event.TotalCapacity,
		now,
		now,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	event.CreatedAt = now
	event.UpdatedAt = now
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

const ticketTypeColumns = `id, event_id, name, price, currency, total_available, sold, max_per_person, sale_start, sale_end, created_at`

func (r *eventRepository) CreateTicketType(ctx context.Context, tt *entity.TicketType) error {
	query := `
		INSERT INTO ticket_types (event_id, name, price, currency, total_available, max_per_person, sale_start, sale_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		tt.EventID,
		tt.Name,
		tt.Price,
		tt.Currency,
		tt.TotalAvailable,
		tt.MaxPerPerson,
		tt.SaleStart,
		tt.SaleEnd,
		now,
	).Scan(&tt.ID)
	if err != nil {
		return fmt.Errorf("failed to create ticket type: %w", err)
	}

	tt.CreatedAt = now
	return nil
}

func (r *eventRepository) GetTicketType(ctx context.Context, id int64) (*entity.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = $1`

	var tt entity.TicketType
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.Price,
		&tt.Currency,
		&tt.TotalAvailable,
		&tt.Sold,
		&tt.MaxPerPerson,
		&tt.SaleStart,
		&tt.SaleEnd,
		&tt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return &tt, nil
}

func (r *eventRepository) ListTicketTypes(ctx context.Context, eventID int64) ([]*entity.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE event_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}
	defer rows.Close()

	var types []*entity.TicketType
	for rows.Next() {
		var tt entity.TicketType
		err := rows.Scan(
			&tt.ID,
			&tt.EventID,
			&tt.Name,
			&tt.Price,
			&tt.Currency,
			&tt.TotalAvailable,
			&tt.Sold,
			&tt.MaxPerPerson,
			&tt.SaleStart,
			&tt.SaleEnd,
			&tt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		types = append(types, &tt)
	}
	return types, rows.Err()
}

func (r *eventRepository) GetStats(ctx context.Context, eventID int64) (*entity.EventStats, error) {
	event, err := r.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	types, err := r.ListTicketTypes(ctx, eventID)
	if err != nil {
		return nil, err
	}

	stats := &entity.EventStats{
		Event:           *event,
		TicketsByStatus: make(map[entity.TicketStatus]int),
	}
	now := time.Now()
	for _, tt := range types {
		stats.Types = append(stats.Types, entity.TypeAvailability{
			TicketTypeID:     tt.ID,
			Name:             tt.Name,
			Price:            tt.Price,
			Currency:         tt.Currency,
			Remaining:        tt.Remaining(),
			WithinSaleWindow: tt.WithinSaleWindow(now),
		})
	}

	statusQuery := `SELECT status, COUNT(*) FROM tickets WHERE event_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, statusQuery, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status entity.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan ticket count: %w", err)
		}
		stats.TicketsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	waitingQuery := `SELECT COUNT(*) FROM waitlist_entries WHERE event_id = $1 AND status IN ('waiting', 'notified')`
	if err := r.db.QueryRowContext(ctx, waitingQuery, eventID).Scan(&stats.WaitlistDepth); err != nil {
		return nil, fmt.Errorf("failed to count waitlist depth: %w", err)
	}

	return stats, nil
}

// Методы pgTx по мероприятиям и счётчикам ёмкости.

func (t *pgTx) GetEvent(ctx context.Context, eventID int64) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(t.tx.QueryRowContext(ctx, query, eventID))
}

func (t *pgTx) GetTicketType(ctx context.Context, typeID int64) (*entity.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = $1`

	var tt entity.TicketType
	err := t.tx.QueryRowContext(ctx, query, typeID).Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.Price,
		&tt.Currency,
		&tt.TotalAvailable,
		&tt.Sold,
		&tt.MaxPerPerson,
		&tt.SaleStart,
		&tt.SaleEnd,
		&tt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return &tt, nil
}

func (t *pgTx) AddRegisteredCount(ctx context.Context, eventID int64, delta int) error {
	query := `UPDATE events SET registered_count = registered_count + $1, updated_at = $2 WHERE id = $3`
	res, err := t.tx.ExecContext(ctx, query, delta, time.Now(), eventID)
	if err != nil {
		return fmt.Errorf("failed to update registered count: %w", err)
	}
	return requireRow(res, entity.ErrEventNotFound)
}

func (t *pgTx) AddCheckedInCount(ctx context.Context, eventID int64, delta int) error {
	query := `UPDATE events SET checked_in_count = checked_in_count + $1, updated_at = $2 WHERE id = $3`
	res, err := t.tx.ExecContext(ctx, query, delta, time.Now(), eventID)
	if err != nil {
		return fmt.Errorf("failed to update checked-in count: %w", err)
	}
	return requireRow(res, entity.ErrEventNotFound)
}

func (t *pgTx) AddSoldCount(ctx context.Context, typeID int64, delta int) error {
	query := `UPDATE ticket_types SET sold = sold + $1 WHERE id = $2`
	res, err := t.tx.ExecContext(ctx, query, delta, typeID)
	if err != nil {
		return fmt.Errorf("failed to update sold count: %w", err)
	}
	return requireRow(res, entity.ErrTicketTypeNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
