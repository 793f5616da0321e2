package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/tickethub/internal/entity"
)

type ticketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, event_id, ticket_type_id, registration_id, owner_id, status, purchase_price, currency, purchased_at, checked_in_at, previous_owner, transferable, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*entity.Ticket, error) {
	var ticket entity.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.EventID,
		&ticket.TicketTypeID,
		&ticket.RegistrationID,
		&ticket.OwnerID,
		&ticket.Status,
		&ticket.PurchasePrice,
		&ticket.Currency,
		&ticket.PurchasedAt,
		&ticket.CheckedInAt,
		&ticket.PreviousOwner,
		&ticket.Transferable,
		&ticket.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	return &ticket, nil
}

func queryTickets(ctx context.Context, db *sql.DB, query string, args ...any) ([]*entity.Ticket, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*entity.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return scanTicket(r.db.QueryRowContext(ctx, query, id))
}

func (r *ticketRepository) GetByUser(ctx context.Context, userID string) ([]*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE owner_id = $1 ORDER BY purchased_at DESC`
	return queryTickets(ctx, r.db, query, userID)
}

func (r *ticketRepository) GetByEvent(ctx context.Context, eventID int64) ([]*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE event_id = $1 ORDER BY purchased_at`
	return queryTickets(ctx, r.db, query, eventID)
}

func (r *ticketRepository) GetByRegistration(ctx context.Context, registrationID string) ([]*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE registration_id = $1 ORDER BY purchased_at`
	return queryTickets(ctx, r.db, query, registrationID)
}

// Методы pgTx по билетам.

func (t *pgTx) InsertTicket(ctx context.Context, ticket *entity.Ticket) error {
	query := `
		INSERT INTO tickets (id, event_id, ticket_type_id, registration_id, owner_id, status, purchase_price, currency, purchased_at, transferable, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := t.tx.ExecContext(ctx, query,
		ticket.ID,
		ticket.EventID,
		ticket.TicketTypeID,
		ticket.RegistrationID,
		ticket.OwnerID,
		ticket.Status,
		ticket.PurchasePrice,
		ticket.Currency,
		ticket.PurchasedAt,
		ticket.Transferable,
		ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

func (t *pgTx) GetTicket(ctx context.Context, id string) (*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return scanTicket(t.tx.QueryRowContext(ctx, query, id))
}

func (t *pgTx) UpdateTicket(ctx context.Context, ticket *entity.Ticket) error {
	query := `
		UPDATE tickets
		SET owner_id = $1, status = $2, checked_in_at = $3, previous_owner = $4, transferable = $5, updated_at = $6
		WHERE id = $7
	`

	ticket.UpdatedAt = time.Now()
	res, err := t.tx.ExecContext(ctx, query,
		ticket.OwnerID,
		ticket.Status,
		ticket.CheckedInAt,
		ticket.PreviousOwner,
		ticket.Transferable,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	return requireRow(res, entity.ErrTicketNotFound)
}

func (t *pgTx) CountOccupyingTickets(ctx context.Context, registrationID string) (int, error) {
	query := `SELECT COUNT(*) FROM tickets WHERE registration_id = $1 AND status IN ('confirmed', 'checked_in', 'refund_requested')`

	var count int
	if err := t.tx.QueryRowContext(ctx, query, registrationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count occupying tickets: %w", err)
	}
	return count, nil
}
