package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ds124wfegd/tickethub/internal/entity"
)

type pgStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &pgStore{db: db}
}

// WithinTx исполняет fn в serializable-транзакции. Postgres проверяет
// read set на этапе коммита; проигравшая конкурентная транзакция получает
// serialization_failure, который транслируется в entity.ErrTxConflict для
// ограниченного повтора на уровне сервиса.
func (s *pgStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", entity.ErrStoreFailure, err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return mapPgError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapPgError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// pgTx реализует Tx поверх одной открытой транзакции.
// Методы по сущностям распределены по файлам *Postgres.go.
type pgTx struct {
	tx *sql.Tx
}

const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
	pqCheckViolation       = "23514"
)

// mapPgError переводит низкоуровневые ошибки драйвера в ошибки домена.
// Нарушение CHECK-ограничений на счётчиках ёмкости — это страховка уровня
// схемы: движок резервирования проверяет ёмкость до записи, и сюда такие
// ошибки попадают только при гонке, проигравшей сериализацию.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected:
			return fmt.Errorf("%w: %v", entity.ErrTxConflict, err)
		case pqUniqueViolation:
			return fmt.Errorf("%w: %v", entity.ErrAlreadyExists, err)
		case pqCheckViolation:
			return fmt.Errorf("%w: %v", entity.ErrCapacityExceeded, err)
		}
	}
	return err
}
