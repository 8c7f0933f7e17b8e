package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrTerminal is returned when a status update targets a job that is
// already in a terminal state. Terminal states are final.
var ErrTerminal = errors.New("store: job is in a terminal state")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// JobStore handles the persistence of generation jobs.
type JobStore interface {
	// CreateJob inserts a new job row in PENDING state.
	CreateJob(ctx context.Context, tx DBTransaction, job *Job) error

	// GetJobByID returns a job by its ID, or ErrNotFound.
	GetJobByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// ListJobsByOwner returns the owner's jobs, newest first.
	ListJobsByOwner(ctx context.Context, ownerID string, limit int) ([]*Job, error)

	// SetJobStatus moves the job to the given status, optionally setting
	// artifact and error detail (last write wins on those columns).
	// Returns ErrTerminal if the job is already terminal.
	SetJobStatus(ctx context.Context, tx DBTransaction, id uuid.UUID, status JobStatus, artifact, errDetail *string) error

	// SetJobSandbox records the sandbox instance backing the job.
	// Returns ErrTerminal if the job is already terminal.
	SetJobSandbox(ctx context.Context, tx DBTransaction, id uuid.UUID, sandboxID string) error

	// MergeJobMetadata merges the patch into the job's metadata.
	// Existing keys not present in the patch are preserved.
	MergeJobMetadata(ctx context.Context, tx DBTransaction, id uuid.UUID, patch map[string]any) error
}

// CreditStore handles the persistence of credit accounts and the audit trail.
type CreditStore interface {
	// GetAccountForUpdate loads the user's credit account inside tx,
	// locking the row against concurrent mutation. A missing account is
	// created with the standard tier allowance first.
	GetAccountForUpdate(ctx context.Context, tx DBTransaction, userID string) (*CreditAccount, error)

	// SaveAccount writes the balance and reset boundary back.
	SaveAccount(ctx context.Context, tx DBTransaction, account *CreditAccount) error

	// AppendUsage inserts one audit row.
	AppendUsage(ctx context.Context, tx DBTransaction, usage *CreditUsage) error

	// ListUsage returns the user's most recent audit rows, newest first.
	ListUsage(ctx context.Context, userID string, limit int) ([]CreditUsage, error)
}
