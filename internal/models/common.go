package models

import (
	"database/sql"
	"time"
)

// AuditFields holds the audit columns every table carries.
type AuditFields struct {
	CreatedAt     time.Time `db:"created_at"`
	CreatedBy     string    `db:"created_by"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
	LastUpdatedBy string    `db:"last_updated_by"`
}

// Tombstone is the nullable deleted_at column.
type Tombstone struct {
	DeletedAt sql.NullTime `db:"deleted_at"`
}
