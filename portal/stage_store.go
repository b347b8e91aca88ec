package portal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobbridge/portal/common/errors"
	"github.com/bobbridge/portal/lifecycle"
	"github.com/bobbridge/portal/portal/models"
)

// ProjectStageStore is the persistence surface the stage transition handler
// needs. Kept narrow so transition behavior can be tested against a stub.
type ProjectStageStore interface {
	// GetProject loads a live project, errors.ErrProjectNotFound otherwise.
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)

	// OpenRequiredItems counts incomplete required checklist items for the
	// given project stage.
	OpenRequiredItems(ctx context.Context, projectID uuid.UUID, stage lifecycle.Stage) (int, error)

	// SetStage writes the new stage with an optimistic guard on the expected
	// current value. Returns lifecycle.ErrConcurrentModification when the
	// row no longer holds expected.
	SetStage(ctx context.Context, projectID uuid.UUID, expected, next lifecycle.Stage) error

	// SeedChecklist inserts the default checklist for a stage the first time
	// the project reaches it. A stage that already has items is left alone.
	SeedChecklist(ctx context.Context, projectID uuid.UUID, stage lifecycle.Stage, items []ChecklistTemplate) error
}

// pgStageStore implements ProjectStageStore over the portal database
type pgStageStore struct {
	db *pgxpool.Pool
}

// NewStageStore creates the pgx-backed stage store
func NewStageStore(db *pgxpool.Pool) ProjectStageStore {
	return &pgStageStore{db: db}
}

func (s *pgStageStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := s.db.QueryRow(ctx,
		`SELECT id, client_id, name, description, current_stage, go_live_target, created_at, updated_at
		 FROM projects WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(&p.ID, &p.ClientID, &p.Name, &p.Description, &p.CurrentStage,
		&p.GoLiveTarget, &p.CreatedAt, &p.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, errors.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *pgStageStore) OpenRequiredItems(ctx context.Context, projectID uuid.UUID, stage lifecycle.Stage) (int, error) {
	var open int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM checklist_items
		 WHERE project_id = $1 AND stage = $2 AND required AND completed_at IS NULL`,
		projectID, stage,
	).Scan(&open)
	return open, err
}

func (s *pgStageStore) SetStage(ctx context.Context, projectID uuid.UUID, expected, next lifecycle.Stage) error {
	// Conditional write: two racing transitions both read the same starting
	// stage, only the first one matches the WHERE clause.
	tag, err := s.db.Exec(ctx,
		`UPDATE projects SET current_stage = $1, updated_at = $2
		 WHERE id = $3 AND current_stage = $4 AND deleted_at IS NULL`,
		next, time.Now(), projectID, expected,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrConcurrentModification
	}
	return nil
}

func (s *pgStageStore) SeedChecklist(ctx context.Context, projectID uuid.UUID, stage lifecycle.Stage, items []ChecklistTemplate) error {
	if len(items) == 0 {
		return nil
	}

	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM checklist_items WHERE project_id = $1 AND stage = $2)",
		projectID, stage,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	now := time.Now()
	for i, item := range items {
		_, err := s.db.Exec(ctx,
			`INSERT INTO checklist_items (id, project_id, stage, title, required, position, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), projectID, stage, item.Title, item.Required, i, now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
