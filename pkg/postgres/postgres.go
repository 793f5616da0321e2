package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/ds124wfegd/tickethub/config"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	// CHECK-ограничения на счётчиках дублируют инварианты ёмкости на уровне
	// схемы; частичные уникальные индексы закрывают инварианты "не более
	// одной активной регистрации/записи в листе ожидания".
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id SERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			venue VARCHAR(255) NOT NULL DEFAULT '',
			starts_at TIMESTAMP NOT NULL,
			total_capacity INTEGER NOT NULL CHECK (total_capacity >= 0),
			registered_count INTEGER NOT NULL DEFAULT 0
				CHECK (registered_count >= 0 AND registered_count <= total_capacity),
			checked_in_count INTEGER NOT NULL DEFAULT 0 CHECK (checked_in_count >= 0),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS ticket_types (
			id SERIAL PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id),
			name VARCHAR(100) NOT NULL,
			price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
			currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			total_available INTEGER NOT NULL CHECK (total_available >= 0),
			sold INTEGER NOT NULL DEFAULT 0
				CHECK (sold >= 0 AND sold <= total_available),
			max_per_person INTEGER NOT NULL DEFAULT 1,
			sale_start TIMESTAMP NOT NULL,
			sale_end TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS registrations (
			id UUID PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id),
			user_id VARCHAR(100) NOT NULL,
			total_amount NUMERIC(12,2) NOT NULL,
			currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			idempotency_key TEXT UNIQUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS tickets (
			id UUID PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id),
			ticket_type_id INTEGER NOT NULL REFERENCES ticket_types(id),
			registration_id UUID NOT NULL REFERENCES registrations(id),
			owner_id VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
			purchase_price NUMERIC(12,2) NOT NULL,
			currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			purchased_at TIMESTAMP NOT NULL,
			checked_in_at TIMESTAMP,
			previous_owner VARCHAR(100),
			transferable BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS waitlist_entries (
			id UUID PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id),
			user_id VARCHAR(100) NOT NULL,
			position BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'waiting',
			joined_at TIMESTAMP NOT NULL,
			notified_at TIMESTAMP,
			UNIQUE (event_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS discount_codes (
			id SERIAL PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id),
			code VARCHAR(64) NOT NULL,
			type VARCHAR(20) NOT NULL,
			value NUMERIC(12,2) NOT NULL CHECK (value >= 0),
			max_uses INTEGER NOT NULL CHECK (max_uses > 0),
			current_uses INTEGER NOT NULL DEFAULT 0
				CHECK (current_uses >= 0 AND current_uses <= max_uses),
			valid_from TIMESTAMP NOT NULL,
			valid_to TIMESTAMP NOT NULL,
			ticket_type_ids BIGINT[] NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (event_id, code)
		)`,

		// Partial unique indexes for duplicate-registration invariants
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_active_user
			ON registrations(event_id, user_id) WHERE status = 'active'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_active_user
			ON waitlist_entries(event_id, user_id) WHERE status IN ('waiting', 'notified')`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_ticket_types_event_id ON ticket_types(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_event_id ON tickets(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_owner_id ON tickets(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_registration_id ON tickets(registration_id)`,
		`CREATE INDEX IF NOT EXISTS idx_waitlist_event_status ON waitlist_entries(event_id, status, position)`,
		`CREATE INDEX IF NOT EXISTS idx_waitlist_notified_at ON waitlist_entries(notified_at) WHERE status = 'notified'`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
