package database

import (
	"context"
	"fmt"
)

type migration struct {
	version     int
	description string
	sql         string
}

var migrations = []migration{
	{
		version:     1,
		description: "create accounts table",
		sql: `CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			address TEXT,
			debt NUMERIC(14,2) NOT NULL DEFAULT 0,
			balance NUMERIC(14,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_action TIMESTAMPTZ,
			account_type TEXT NOT NULL DEFAULT 'customer'
		)`,
	},
	{
		version:     2,
		description: "create account book table",
		sql: `CREATE TABLE IF NOT EXISTS account_book (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			debt NUMERIC(14,2) NOT NULL DEFAULT 0,
			balance NUMERIC(14,2) NOT NULL DEFAULT 0
		)`,
	},
	{
		version:     3,
		description: "create account line table",
		sql: `CREATE TABLE IF NOT EXISTS account_line (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			account_book_id BIGINT NOT NULL REFERENCES account_book(id) ON DELETE CASCADE,
			net_price NUMERIC(14,2) NOT NULL,
			amount NUMERIC(14,4) NOT NULL,
			price NUMERIC(14,2) NOT NULL,
			tax NUMERIC(6,2) NOT NULL DEFAULT 20,
			discount NUMERIC(14,2) NOT NULL DEFAULT 0,
			total_price NUMERIC(14,2) NOT NULL,
			date TIMESTAMPTZ NOT NULL
		)`,
	},
	{
		version:     4,
		description: "create payments table",
		sql: `CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			name TEXT,
			payment NUMERIC(14,2) NOT NULL,
			old_debt NUMERIC(14,2) NOT NULL,
			old_balance NUMERIC(14,2) NOT NULL DEFAULT 0,
			account_book_id BIGINT NOT NULL REFERENCES account_book(id) ON DELETE CASCADE,
			date TIMESTAMPTZ NOT NULL
		)`,
	},
	{
		version:     5,
		description: "index lines by account book",
		sql: `CREATE INDEX IF NOT EXISTS account_line_book_idx ON account_line (account_book_id);
			CREATE INDEX IF NOT EXISTS payments_book_idx ON payments (account_book_id);
			CREATE INDEX IF NOT EXISTS account_book_account_idx ON account_book (account_id)`,
	},
}

// Migrate applies the schema. Every statement is idempotent so it is safe to
// run on each start.
func Migrate(ctx context.Context, db DBTX) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("database: migration %d (%s): %w", m.version, m.description, err)
		}
	}
	return nil
}
