package db

import (
	"context"
	"fmt"
)

// schemaStatements create the audit tables. Statements are idempotent so
// EnsureSchema can run at every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		signature     TEXT PRIMARY KEY,
		wallet        TEXT NOT NULL,
		operation     TEXT NOT NULL,
		status        TEXT NOT NULL,
		error_message TEXT,
		slot          BIGINT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS submissions_wallet_idx ON submissions (wallet, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS refunds (
		id                 BIGSERIAL PRIMARY KEY,
		signature          TEXT NOT NULL UNIQUE,
		original_signature TEXT,
		recipient          TEXT NOT NULL,
		lamports           BIGINT NOT NULL,
		reason             TEXT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS refunds_recipient_idx ON refunds (recipient, created_at DESC)`,
}

// EnsureSchema creates the audit tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
