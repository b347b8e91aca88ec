package portal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobbridge/portal/common/errors"
	"github.com/bobbridge/portal/lifecycle"
	"github.com/bobbridge/portal/pkg/httputil"
	"github.com/bobbridge/portal/pkg/middleware"
	"github.com/bobbridge/portal/portal/models"
)

// ChecklistHandler handles per-stage delivery checklists
type ChecklistHandler struct {
	db       *pgxpool.Pool
	notifier *Notifier
}

// NewChecklistHandler creates a new checklist handler
func NewChecklistHandler(db *pgxpool.Pool, notifier *Notifier) *ChecklistHandler {
	return &ChecklistHandler{db: db, notifier: notifier}
}

// AddChecklistItemRequest represents the item creation request body
type AddChecklistItemRequest struct {
	Stage    string `json:"stage"`
	Title    string `json:"title"`
	Required bool   `json:"required"`
}

// List returns a project's checklist items, optionally filtered by ?stage=
func (h *ChecklistHandler) List(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	if _, err := requireProject(c, h.db, projectID); err != nil {
		return httputil.Error(c, err)
	}

	query := `SELECT id, project_id, stage, title, required, position, completed_at, completed_by, created_at
		 FROM checklist_items WHERE project_id = $1`
	args := []interface{}{projectID}

	if stageFilter := c.Query("stage"); stageFilter != "" {
		stage, err := lifecycle.Parse(stageFilter)
		if err != nil {
			return httputil.Error(c, err)
		}
		query += " AND stage = $2"
		args = append(args, stage)
	}
	query += " ORDER BY stage, position"

	rows, err := h.db.Query(c.Context(), query, args...)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	defer rows.Close()

	items := make([]models.ChecklistItem, 0)
	for rows.Next() {
		var item models.ChecklistItem
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Stage, &item.Title,
			&item.Required, &item.Position, &item.CompletedAt, &item.CompletedBy,
			&item.CreatedAt); err != nil {
			return httputil.InternalError(c, "database error")
		}
		items = append(items, item)
	}

	return httputil.Success(c, items)
}

// Add appends a custom item to a project stage's checklist. Admin-only.
func (h *ChecklistHandler) Add(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	var req AddChecklistItemRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	if req.Title == "" || req.Stage == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"title": "required",
			"stage": "required",
		})
	}

	stage, err := lifecycle.Parse(req.Stage)
	if err != nil {
		return httputil.Error(c, err)
	}

	if _, err := loadProject(c.Context(), h.db, projectID); err != nil {
		return httputil.Error(c, err)
	}

	// Place the item after the stage's current last position
	var position int
	err = h.db.QueryRow(c.Context(),
		"SELECT COALESCE(MAX(position) + 1, 0) FROM checklist_items WHERE project_id = $1 AND stage = $2",
		projectID, stage,
	).Scan(&position)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	item := models.ChecklistItem{
		ID:        uuid.New(),
		ProjectID: projectID,
		Stage:     stage,
		Title:     req.Title,
		Required:  req.Required,
		Position:  position,
		CreatedAt: time.Now(),
	}

	_, err = h.db.Exec(c.Context(),
		`INSERT INTO checklist_items (id, project_id, stage, title, required, position, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.ProjectID, item.Stage, item.Title, item.Required, item.Position, item.CreatedAt,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to add checklist item")
	}

	return httputil.Created(c, item)
}

// Complete marks an item done, recording who checked it off. When this was
// the stage's last open required item, project participants are notified.
func (h *ChecklistHandler) Complete(c *fiber.Ctx) error {
	return h.setCompletion(c, true)
}

// Uncomplete reopens an item
func (h *ChecklistHandler) Uncomplete(c *fiber.Ctx) error {
	return h.setCompletion(c, false)
}

func (h *ChecklistHandler) setCompletion(c *fiber.Ctx, done bool) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Unauthorized(c, "")
	}

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}
	itemID, err := uuid.Parse(c.Params("item_id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid item ID")
	}

	project, err := requireProject(c, h.db, projectID)
	if err != nil {
		return httputil.Error(c, err)
	}

	var item models.ChecklistItem
	err = h.db.QueryRow(c.Context(),
		`SELECT id, project_id, stage, title, required, position, completed_at, completed_by, created_at
		 FROM checklist_items WHERE id = $1 AND project_id = $2`,
		itemID, projectID,
	).Scan(&item.ID, &item.ProjectID, &item.Stage, &item.Title, &item.Required,
		&item.Position, &item.CompletedAt, &item.CompletedBy, &item.CreatedAt)
	if err != nil {
		return httputil.Error(c, errors.NotFound("checklist item"))
	}

	if done {
		now := time.Now()
		item.CompletedAt = &now
		item.CompletedBy = &userID
		_, err = h.db.Exec(c.Context(),
			"UPDATE checklist_items SET completed_at = $1, completed_by = $2 WHERE id = $3",
			now, userID, itemID,
		)
	} else {
		item.CompletedAt = nil
		item.CompletedBy = nil
		_, err = h.db.Exec(c.Context(),
			"UPDATE checklist_items SET completed_at = NULL, completed_by = NULL WHERE id = $1",
			itemID,
		)
	}
	if err != nil {
		return httputil.InternalError(c, "failed to update checklist item")
	}

	if done && h.notifier != nil {
		var openRequired int
		err := h.db.QueryRow(c.Context(),
			`SELECT COUNT(*) FROM checklist_items
			 WHERE project_id = $1 AND stage = $2 AND required AND completed_at IS NULL`,
			projectID, item.Stage,
		).Scan(&openRequired)
		if err == nil && openRequired == 0 {
			h.notifier.ChecklistCompleted(c.Context(), projectID, userID,
				project.Name, lifecycle.Label(item.Stage))
		}
	}

	return httputil.Success(c, item)
}
