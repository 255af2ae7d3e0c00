package mapping

import (
	"database/sql"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/models"
)

// ToModelAuditFields converts a domain AuditFields to a model AuditFields
func ToModelAuditFields(d domain.AuditFields) models.AuditFields {
	return models.AuditFields{
		CreatedAt:     d.CreatedAt,
		CreatedBy:     d.CreatedBy,
		LastUpdatedAt: d.LastUpdatedAt,
		LastUpdatedBy: d.LastUpdatedBy,
	}
}

// ToDomainAuditFields converts a model AuditFields to a domain AuditFields
func ToDomainAuditFields(m models.AuditFields) domain.AuditFields {
	return domain.AuditFields{
		CreatedAt:     m.CreatedAt.UTC(),
		CreatedBy:     m.CreatedBy,
		LastUpdatedAt: m.LastUpdatedAt.UTC(),
		LastUpdatedBy: m.LastUpdatedBy,
	}
}

// ToModelTombstone converts a domain Tombstone to its nullable column.
func ToModelTombstone(d domain.Tombstone) models.Tombstone {
	if d.DeletedAt == nil {
		return models.Tombstone{}
	}
	return models.Tombstone{DeletedAt: sql.NullTime{Time: *d.DeletedAt, Valid: true}}
}

// ToDomainTombstone converts a nullable deleted_at column to a domain Tombstone.
func ToDomainTombstone(m models.Tombstone) domain.Tombstone {
	if !m.DeletedAt.Valid {
		return domain.Tombstone{}
	}
	at := m.DeletedAt.Time.UTC()
	return domain.Tombstone{DeletedAt: &at}
}

// NullString converts an optional string to its nullable column.
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr converts a nullable column to an optional string.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
