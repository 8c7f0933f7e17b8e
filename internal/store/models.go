// Package store contains the database layer for vibeplane.
package store

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a generation job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusRunning    JobStatus = "RUNNING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCancelling JobStatus = "CANCELLING"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job represents one user-submitted generation request and its tracked outcome.
// ID, OwnerID and Prompt are immutable after creation. Metadata is merge-only:
// keys are added, never removed or clobbered wholesale.
type Job struct {
	ID          uuid.UUID
	OwnerID     string
	Prompt      string
	Model       string
	Status      JobStatus
	Artifact    *string
	ErrorDetail *string
	SandboxID   *string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Tier identifies a user's credit tier.
type Tier string

const (
	TierStandard Tier = "standard"
	TierElevated Tier = "elevated"
)

// Daily credit allowances per tier.
const (
	DailyAllowanceStandard = 50
	DailyAllowanceElevated = 1000
)

// Allowance returns the daily credit allowance for the tier.
func (t Tier) Allowance() int {
	if t == TierElevated {
		return DailyAllowanceElevated
	}
	return DailyAllowanceStandard
}

// CreditAccount is the per-user daily budget row.
// Balance never goes negative; it is refilled to the tier allowance the
// first time any check occurs on or after ResetAt.
type CreditAccount struct {
	UserID    string
	Balance   int
	Tier      Tier
	ResetAt   time.Time
	CreatedAt time.Time
}

// CreditUsage is a single append-only audit row. Rows are never mutated
// after insert.
type CreditUsage struct {
	ID        int64
	UserID    string
	Action    string
	Cost      int
	Success   bool
	CreatedAt time.Time
}
