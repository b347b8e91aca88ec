package portal

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobbridge/portal/common/errors"
	commonModels "github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/lifecycle"
	"github.com/bobbridge/portal/pkg/httputil"
	"github.com/bobbridge/portal/pkg/middleware"
	"github.com/bobbridge/portal/portal/models"
)

// ProjectHandler handles project CRUD
type ProjectHandler struct {
	db *pgxpool.Pool
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(db *pgxpool.Pool) *ProjectHandler {
	return &ProjectHandler{db: db}
}

// CreateProjectRequest represents the project creation request body
type CreateProjectRequest struct {
	ClientID     string  `json:"client_id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	GoLiveTarget *string `json:"go_live_target"` // RFC 3339 date
}

// UpdateProjectRequest represents the project update request body.
// current_stage is deliberately absent: stage changes only go through
// the transition endpoint.
type UpdateProjectRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	GoLiveTarget *string `json:"go_live_target"`
}

// Create handles project creation. Admin-only; projects start at the
// first lifecycle stage with its checklist seeded.
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	if req.Name == "" || req.ClientID == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"name":      "required",
			"client_id": "required",
		})
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return httputil.BadRequest(c, "invalid client_id")
	}

	var clientExists bool
	err = h.db.QueryRow(c.Context(),
		"SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1 AND deleted_at IS NULL)",
		clientID,
	).Scan(&clientExists)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	if !clientExists {
		return httputil.Error(c, errors.ErrClientNotFound)
	}

	project := models.NewProject(clientID, req.Name)
	project.Description = req.Description

	if req.GoLiveTarget != nil && *req.GoLiveTarget != "" {
		target, err := time.Parse(time.RFC3339, *req.GoLiveTarget)
		if err != nil {
			return httputil.BadRequest(c, "go_live_target must be RFC 3339")
		}
		project.GoLiveTarget = &target
	}

	_, err = h.db.Exec(c.Context(),
		`INSERT INTO projects (id, client_id, name, description, current_stage, go_live_target, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		project.ID, project.ClientID, project.Name, project.Description,
		project.CurrentStage, project.GoLiveTarget, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to create project")
	}

	// New projects get the first stage's checklist right away
	store := NewStageStore(h.db)
	if err := store.SeedChecklist(c.Context(), project.ID, project.CurrentStage, ChecklistFor(project.CurrentStage)); err != nil {
		return httputil.InternalError(c, "failed to seed checklist")
	}

	return httputil.Created(c, project)
}

// List returns projects visible to the caller, newest first. Admins see
// every tenant; client users only their own. Supports ?client_id= for
// admins and ?stage= for both.
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	pagination := httputil.ParsePagination(c)

	where := "deleted_at IS NULL"
	args := []interface{}{}
	argn := 1

	if middleware.GetRole(c) != commonModels.RoleAdmin {
		clientID, ok := middleware.GetClientID(c)
		if !ok {
			return httputil.Error(c, errors.ErrNotProjectMember)
		}
		where += " AND client_id = $1"
		args = append(args, clientID)
		argn++
	} else if filter := c.Query("client_id"); filter != "" {
		clientID, err := uuid.Parse(filter)
		if err != nil {
			return httputil.BadRequest(c, "invalid client_id")
		}
		where += " AND client_id = $1"
		args = append(args, clientID)
		argn++
	}

	if stageFilter := c.Query("stage"); stageFilter != "" {
		stage, err := lifecycle.Parse(stageFilter)
		if err != nil {
			return httputil.Error(c, err)
		}
		where += " AND current_stage = $" + strconv.Itoa(argn)
		args = append(args, stage)
		argn++
	}

	var total int64
	err := h.db.QueryRow(c.Context(),
		"SELECT COUNT(*) FROM projects WHERE "+where, args...,
	).Scan(&total)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	query := `SELECT id, client_id, name, description, current_stage, go_live_target, created_at, updated_at
		 FROM projects WHERE ` + where + `
		 ORDER BY created_at DESC
		 LIMIT $` + strconv.Itoa(argn) + ` OFFSET $` + strconv.Itoa(argn+1)
	args = append(args, pagination.PageSize, pagination.Offset())

	rows, err := h.db.Query(c.Context(), query, args...)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Name, &p.Description, &p.CurrentStage,
			&p.GoLiveTarget, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return httputil.InternalError(c, "database error")
		}
		projects = append(projects, p)
	}

	return httputil.SuccessWithMeta(c, projects,
		httputil.BuildMeta(pagination.Page, pagination.PageSize, total))
}

// GetByID returns a single project with its current stage label
func (h *ProjectHandler) GetByID(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	project, err := requireProject(c, h.db, projectID)
	if err != nil {
		return httputil.Error(c, err)
	}

	return httputil.Success(c, fiber.Map{
		"project":     project,
		"stage_label": lifecycle.Label(project.CurrentStage),
	})
}

// Update modifies a project's descriptive fields. Admin-only.
func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	var req UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	var goLiveTarget *time.Time
	if req.GoLiveTarget != nil && *req.GoLiveTarget != "" {
		target, err := time.Parse(time.RFC3339, *req.GoLiveTarget)
		if err != nil {
			return httputil.BadRequest(c, "go_live_target must be RFC 3339")
		}
		goLiveTarget = &target
	}

	tag, err := h.db.Exec(c.Context(),
		`UPDATE projects SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			go_live_target = COALESCE($3, go_live_target),
			updated_at = $4
		 WHERE id = $5 AND deleted_at IS NULL`,
		req.Name, req.Description, goLiveTarget, time.Now(), projectID,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to update project")
	}
	if tag.RowsAffected() == 0 {
		return httputil.Error(c, errors.ErrProjectNotFound)
	}

	project, err := loadProject(c.Context(), h.db, projectID)
	if err != nil {
		return httputil.Error(c, err)
	}
	return httputil.Success(c, project)
}

// Delete soft-deletes a project. Admin-only.
func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	tag, err := h.db.Exec(c.Context(),
		"UPDATE projects SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		time.Now(), projectID,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to delete project")
	}
	if tag.RowsAffected() == 0 {
		return httputil.Error(c, errors.ErrProjectNotFound)
	}

	return httputil.NoContent(c)
}
