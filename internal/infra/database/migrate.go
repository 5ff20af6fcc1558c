package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate cria as tabelas e índices se ainda não existem. Os índices
// secundários (email, source) nascem junto com a tabela: o insert único
// cobre linha + índices, sem escrita parcial.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			id              UUID PRIMARY KEY,
			idempotency_key TEXT NOT NULL UNIQUE,
			email           TEXT NOT NULL,
			name            TEXT,
			company         TEXT,
			phone           TEXT,
			details         TEXT,
			source          TEXT,
			custom_fields   JSONB,
			status          TEXT NOT NULL DEFAULT 'NEW',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ttl_at          TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_created ON leads (created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads (email, created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_source ON leads (source, created_at, id)`,
		`CREATE TABLE IF NOT EXISTS delivery_attempts (
			id             UUID PRIMARY KEY,
			lead_id        UUID NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
			attempt_number INT NOT NULL,
			scheduled_at   TIMESTAMPTZ NOT NULL,
			executed_at    TIMESTAMPTZ,
			outcome        TEXT,
			error          TEXT,
			UNIQUE (lead_id, attempt_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_due ON delivery_attempts (scheduled_at) WHERE executed_at IS NULL`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
