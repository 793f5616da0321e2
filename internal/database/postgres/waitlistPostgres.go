package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/tickethub/internal/entity"
)

type waitlistRepository struct {
	db *sql.DB
}

func NewWaitlistRepository(db *sql.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

const waitlistColumns = `id, event_id, user_id, position, status, joined_at, notified_at`

func scanWaitlistEntry(row rowScanner) (*entity.WaitlistEntry, error) {
	var entry entity.WaitlistEntry
	err := row.Scan(
		&entry.ID,
		&entry.EventID,
		&entry.UserID,
		&entry.Position,
		&entry.Status,
		&entry.JoinedAt,
		&entry.NotifiedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrWaitlistEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *waitlistRepository) GetByID(ctx context.Context, id string) (*entity.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = $1`
	return scanWaitlistEntry(r.db.QueryRowContext(ctx, query, id))
}

func (r *waitlistRepository) GetActiveByEventAndUser(ctx context.Context, eventID int64, userID string) (*entity.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE event_id = $1 AND user_id = $2 AND status IN ('waiting', 'notified')`
	return scanWaitlistEntry(r.db.QueryRowContext(ctx, query, eventID, userID))
}

func (r *waitlistRepository) CountWaiting(ctx context.Context, eventID int64) (int, error) {
	query := `SELECT COUNT(*) FROM waitlist_entries WHERE event_id = $1 AND status = 'waiting'`

	var count int
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count waiting entries: %w", err)
	}
	return count, nil
}

// Методы pgTx по листу ожидания.

// NextWaitlistPosition выдаёт следующую позицию в очереди. Чтение максимума
// входит в read set serializable-транзакции, поэтому конкурентные вступления
// не могут получить одинаковую позицию: проигравший повторяет транзакцию.
func (t *pgTx) NextWaitlistPosition(ctx context.Context, eventID int64) (int64, error) {
	query := `SELECT COALESCE(MAX(position), 0) + 1 FROM waitlist_entries WHERE event_id = $1`

	var position int64
	if err := t.tx.QueryRowContext(ctx, query, eventID).Scan(&position); err != nil {
		return 0, fmt.Errorf("failed to get next waitlist position: %w", err)
	}
	return position, nil
}

func (t *pgTx) HasActiveWaitlistEntry(ctx context.Context, eventID int64, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM waitlist_entries WHERE event_id = $1 AND user_id = $2 AND status IN ('waiting', 'notified'))`

	var exists bool
	if err := t.tx.QueryRowContext(ctx, query, eventID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing waitlist entry: %w", err)
	}
	return exists, nil
}

func (t *pgTx) GetActiveWaitlistEntry(ctx context.Context, eventID int64, userID string) (*entity.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE event_id = $1 AND user_id = $2 AND status IN ('waiting', 'notified')`
	return scanWaitlistEntry(t.tx.QueryRowContext(ctx, query, eventID, userID))
}

func (t *pgTx) InsertWaitlistEntry(ctx context.Context, entry *entity.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (id, event_id, user_id, position, status, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := t.tx.ExecContext(ctx, query,
		entry.ID,
		entry.EventID,
		entry.UserID,
		entry.Position,
		entry.Status,
		entry.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert waitlist entry: %w", err)
	}
	return nil
}

func (t *pgTx) GetWaitlistEntry(ctx context.Context, id string) (*entity.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = $1`
	return scanWaitlistEntry(t.tx.QueryRowContext(ctx, query, id))
}

func (t *pgTx) ListWaitingEntries(ctx context.Context, eventID int64, limit int) ([]*entity.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE event_id = $1 AND status = 'waiting' ORDER BY position LIMIT $2`

	rows, err := t.tx.QueryContext(ctx, query, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.WaitlistEntry
	for rows.Next() {
		entry, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (t *pgTx) ListExpiredHolds(ctx context.Context, notifiedBefore time.Time) ([]*entity.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE status = 'notified' AND notified_at < $1 ORDER BY event_id, position`

	rows, err := t.tx.QueryContext(ctx, query, notifiedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}
	defer rows.Close()

	var entries []*entity.WaitlistEntry
	for rows.Next() {
		entry, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (t *pgTx) UpdateWaitlistEntry(ctx context.Context, entry *entity.WaitlistEntry) error {
	query := `UPDATE waitlist_entries SET position = $1, status = $2, notified_at = $3 WHERE id = $4`

	res, err := t.tx.ExecContext(ctx, query,
		entry.Position,
		entry.Status,
		entry.NotifiedAt,
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update waitlist entry: %w", err)
	}
	return requireRow(res, entity.ErrWaitlistEntryNotFound)
}
