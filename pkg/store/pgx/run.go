package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artigraph/backend/internal/util"
	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

// SaveRun inserts the run or updates its mutable columns. The user id,
// simulate flag and creation time of an existing run are kept.
func (s *RunDBStorage) SaveRun(ctx context.Context, run common.Run) error {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = now
	}

	_, err := s.conn.Exec(ctx, upsertRunSQL,
		run.ID,
		run.UserID,
		string(run.State),
		string(run.FailedAt),
		run.Simulate,
		run.Nodes,
		run.Relationships,
		util.SanitizePostgresText(run.Error),
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns store.ErrNotFound when no run has the id.
func (s *RunDBStorage) GetRun(ctx context.Context, id string) (*common.Run, error) {
	var (
		run      common.Run
		state    string
		failedAt string
	)
	err := s.conn.QueryRow(ctx, getRunSQL, id).Scan(
		&run.ID,
		&run.UserID,
		&state,
		&failedAt,
		&run.Simulate,
		&run.Nodes,
		&run.Relationships,
		&run.Error,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	run.State = common.RunState(state)
	run.FailedAt = common.RunState(failedAt)
	return &run, nil
}
