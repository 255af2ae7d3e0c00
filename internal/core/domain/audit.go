package domain

import "time"

// EntityType names the kind of record an audit or change event refers to.
type EntityType string

const (
	EntityAccount EntityType = "ACCOUNT"
	EntityJournal EntityType = "JOURNAL"
)

// AuditAction is the mutation an audit event records.
type AuditAction string

const (
	ActionCreate  AuditAction = "CREATE"
	ActionUpdate  AuditAction = "UPDATE"
	ActionDelete  AuditAction = "DELETE"
	ActionReverse AuditAction = "REVERSE"
	ActionRebuild AuditAction = "REBUILD"
)

// AuditEvent is emitted to the write-only audit side channel.
type AuditEvent struct {
	EntityType EntityType  `json:"entityType"`
	EntityID   string      `json:"entityID"`
	Action     AuditAction `json:"action"`
	Before     any         `json:"before,omitempty"`
	After      any         `json:"after,omitempty"`
	At         time.Time   `json:"at"`
}

// ChangeSet tells observers which accounts and journals changed.
type ChangeSet struct {
	Action     AuditAction `json:"action"`
	AccountIDs []string    `json:"accountIDs,omitempty"`
	JournalIDs []string    `json:"journalIDs,omitempty"`
	At         time.Time   `json:"at"`
}
