package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"vibeplane/internal/store"

	"github.com/google/uuid"
)

// CreateJob inserts a new job row.
// Metadata is stored as JSONB; a nil map becomes an empty object.
func (s *Store) CreateJob(ctx context.Context, tx store.DBTransaction, job *store.Job) error {
	query := `
		INSERT INTO jobs (id, owner_id, prompt, model, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	meta := job.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	executor := s.executor(tx)
	_, err = executor.ExecContext(ctx, query,
		job.ID,
		job.OwnerID,
		job.Prompt,
		job.Model,
		job.Status,
		metaJSON,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

func (s *Store) GetJobByID(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	query := `
		SELECT id, owner_id, prompt, model, status, artifact, error_detail, sandbox_id, metadata, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return job, nil
}

// ListJobsByOwner returns the owner's jobs, newest first.
func (s *Store) ListJobsByOwner(ctx context.Context, ownerID string, limit int) ([]*store.Job, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, owner_id, prompt, model, status, artifact, error_detail, sandbox_id, metadata, created_at, updated_at
		FROM jobs
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*store.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// SetJobStatus moves the job to the given status with last-write-wins
// semantics on artifact and error_detail. The WHERE clause refuses to
// touch rows already in a terminal state, which makes the terminal
// invariant hold even when a completion races a cancellation.
func (s *Store) SetJobStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, status store.JobStatus, artifact, errDetail *string) error {
	query := `
		UPDATE jobs
		SET status = $2,
		    artifact = COALESCE($3, artifact),
		    error_detail = COALESCE($4, error_detail),
		    updated_at = NOW()
		WHERE id = $1
		  AND status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')
	`

	executor := s.executor(tx)
	result, err := executor.ExecContext(ctx, query, id, status, artifact, errDetail)
	if err != nil {
		return fmt.Errorf("failed to update status of job %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the row is gone or it is already terminal.
		if _, getErr := s.GetJobByID(ctx, id); getErr != nil {
			return getErr
		}
		return store.ErrTerminal
	}

	return nil
}

// SetJobSandbox records the sandbox instance backing the job. Terminal
// rows refuse the update like SetJobStatus does.
func (s *Store) SetJobSandbox(ctx context.Context, tx store.DBTransaction, id uuid.UUID, sandboxID string) error {
	query := `
		UPDATE jobs
		SET sandbox_id = $2, updated_at = NOW()
		WHERE id = $1
		  AND status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')
	`

	executor := s.executor(tx)
	result, err := executor.ExecContext(ctx, query, id, sandboxID)
	if err != nil {
		return fmt.Errorf("failed to record sandbox of job %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := s.GetJobByID(ctx, id); getErr != nil {
			return getErr
		}
		return store.ErrTerminal
	}

	return nil
}

// MergeJobMetadata merges the patch into the job's metadata column.
// The JSONB concatenation operator preserves keys absent from the patch.
func (s *Store) MergeJobMetadata(ctx context.Context, tx store.DBTransaction, id uuid.UUID, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}

	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	query := `
		UPDATE jobs
		SET metadata = COALESCE(metadata, '{}'::jsonb) || $2::jsonb,
		    updated_at = NOW()
		WHERE id = $1
	`

	executor := s.executor(tx)
	_, err = executor.ExecContext(ctx, query, id, patchJSON)
	if err != nil {
		return fmt.Errorf("failed to merge metadata of job %s: %w", id, err)
	}
	return nil
}

func (s *Store) executor(tx store.DBTransaction) store.DBTransaction {
	if tx != nil {
		return tx
	}
	return s.db
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*store.Job, error) {
	var job store.Job
	var metaJSON []byte

	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Prompt,
		&job.Model,
		&job.Status,
		&job.Artifact,
		&job.ErrorDetail,
		&job.SandboxID,
		&metaJSON,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &job.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of job %s: %w", job.ID, err)
		}
	}

	return &job, nil
}
