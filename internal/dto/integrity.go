package dto

import "github.com/SscSPs/mma_ledger/internal/core/domain"

// IntegrityCheckResponse is returned by an on-demand integrity pass.
type IntegrityCheckResponse struct {
	Summary            domain.IntegritySummary `json:"summary"`
	UnbalancedJournals []string                `json:"unbalancedJournals,omitempty"`
}

// FlushResponse reports the queue state after a flush.
type FlushResponse struct {
	Flushed bool `json:"flushed"`
	Pending int  `json:"pending"`
}
