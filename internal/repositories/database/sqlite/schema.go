package sqlite

// Migrations returns the ledger schema statements, applied in order on open.
// Each string is a single SQL statement (SQLite executes one at a time).
//
// Times are stored as fixed-width UTC text (see timeLayout) so that text ordering
// is time ordering. Decimals are stored as text to keep them exact.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			account_id        TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			account_type      TEXT NOT NULL CHECK (account_type IN ('ASSET', 'LIABILITY', 'EQUITY', 'INCOME', 'EXPENSE')),
			currency_code     TEXT NOT NULL,
			parent_account_id TEXT REFERENCES accounts (account_id),
			description       TEXT NOT NULL DEFAULT '',
			balance           TEXT NOT NULL DEFAULT '0',
			deleted_at        TEXT,
			created_at        TEXT NOT NULL,
			created_by        TEXT NOT NULL DEFAULT '',
			last_updated_at   TEXT NOT NULL,
			last_updated_by   TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS journals (
			journal_id           TEXT PRIMARY KEY,
			journal_date         TEXT NOT NULL,
			description          TEXT NOT NULL DEFAULT '',
			currency_code        TEXT NOT NULL,
			status               TEXT NOT NULL CHECK (status IN ('POSTED', 'REVERSED')),
			original_journal_id  TEXT REFERENCES journals (journal_id),
			reversing_journal_id TEXT REFERENCES journals (journal_id),
			amount               TEXT NOT NULL DEFAULT '0',
			transaction_count    INTEGER NOT NULL DEFAULT 0,
			deleted_at           TEXT,
			created_at           TEXT NOT NULL,
			created_by           TEXT NOT NULL DEFAULT '',
			last_updated_at      TEXT NOT NULL,
			last_updated_by      TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			transaction_id   TEXT PRIMARY KEY,
			journal_id       TEXT NOT NULL REFERENCES journals (journal_id),
			account_id       TEXT NOT NULL REFERENCES accounts (account_id),
			line_no          INTEGER NOT NULL,
			amount           TEXT NOT NULL,
			transaction_type TEXT NOT NULL CHECK (transaction_type IN ('DEBIT', 'CREDIT')),
			currency_code    TEXT NOT NULL,
			transaction_date TEXT NOT NULL,
			exchange_rate    TEXT,
			running_balance  TEXT NOT NULL DEFAULT '0',
			notes            TEXT NOT NULL DEFAULT '',
			deleted_at       TEXT,
			created_at       TEXT NOT NULL,
			created_by       TEXT NOT NULL DEFAULT '',
			last_updated_at  TEXT NOT NULL,
			last_updated_by  TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_journals_date ON journals(journal_date, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_journal ON transactions(journal_id, line_no)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_active ON transactions(account_id) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_journals_one_reversal ON journals(original_journal_id)
			WHERE original_journal_id IS NOT NULL AND deleted_at IS NULL`,
	}
}
