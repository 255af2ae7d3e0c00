package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}

// Tombstone marks a record as soft-deleted. Store reads exclude tombstoned rows
// unless a query asks for them explicitly.
type Tombstone struct {
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// IsDeleted reports whether the record carries a deletion timestamp.
func (t Tombstone) IsDeleted() bool {
	return t.DeletedAt != nil
}

// MarkDeleted sets the deletion timestamp.
func (t *Tombstone) MarkDeleted(at time.Time) {
	t.DeletedAt = &at
}
