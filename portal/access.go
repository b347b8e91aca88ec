package portal

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobbridge/portal/common/errors"
	commonModels "github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/pkg/middleware"
	"github.com/bobbridge/portal/portal/models"
)

// loadProject fetches a live project row
func loadProject(ctx context.Context, db *pgxpool.Pool, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := db.QueryRow(ctx,
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

// canAccessProject reports whether the authenticated user may see a project.
// Admins see everything; client users only their own tenant's projects.
func canAccessProject(c *fiber.Ctx, project *models.Project) bool {
	if middleware.GetRole(c) == commonModels.RoleAdmin {
		return true
	}
	clientID, ok := middleware.GetClientID(c)
	return ok && clientID == project.ClientID
}

// requireProject loads a project and enforces tenant scoping in one step
func requireProject(c *fiber.Ctx, db *pgxpool.Pool, id uuid.UUID) (*models.Project, error) {
	project, err := loadProject(c.Context(), db, id)
	if err != nil {
		return nil, err
	}
	if !canAccessProject(c, project) {
		return nil, errors.ErrNotProjectMember
	}
	return project, nil
}
