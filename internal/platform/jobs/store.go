package jobs

import (
	"context"

	"hrleave/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) StartRun(ctx context.Context, jobType, key string) (string, error) {
	var runID string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, job_key, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, jobType, key, "running").Scan(&runID)
	return runID, err
}

func (s *Store) FinishRun(ctx context.Context, runID, status string, details []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, runID)
	return err
}
