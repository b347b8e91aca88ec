package portal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobbridge/portal/common/errors"
	commonModels "github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/pkg/httputil"
	"github.com/bobbridge/portal/pkg/middleware"
	"github.com/bobbridge/portal/portal/models"
)

// TicketHandler handles project support tickets
type TicketHandler struct {
	db       *pgxpool.Pool
	notifier *Notifier
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(db *pgxpool.Pool, notifier *Notifier) *TicketHandler {
	return &TicketHandler{db: db, notifier: notifier}
}

// CreateTicketRequest represents the ticket creation request body
type CreateTicketRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Priority string `json:"priority"`
}

// UpdateTicketRequest represents the ticket update request body
type UpdateTicketRequest struct {
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

// AddCommentRequest represents the comment creation request body
type AddCommentRequest struct {
	Body string `json:"body"`
}

// Create opens a new ticket against a project
func (h *TicketHandler) Create(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Unauthorized(c, "")
	}

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	if _, err := requireProject(c, h.db, projectID); err != nil {
		return httputil.Error(c, err)
	}

	var req CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	if req.Title == "" || req.Body == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"title": "required",
			"body":  "required",
		})
	}

	priority := commonModels.PriorityMedium
	if req.Priority != "" {
		priority = commonModels.TicketPriority(req.Priority)
		if !priority.IsValid() {
			return httputil.BadRequest(c, "invalid priority")
		}
	}

	now := time.Now()
	ticket := models.Ticket{
		ID:        uuid.New(),
		ProjectID: projectID,
		AuthorID:  userID,
		Title:     req.Title,
		Body:      req.Body,
		Status:    commonModels.TicketOpen,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = h.db.Exec(c.Context(),
		`INSERT INTO tickets (id, project_id, author_id, title, body, status, priority, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ticket.ID, ticket.ProjectID, ticket.AuthorID, ticket.Title, ticket.Body,
		ticket.Status, ticket.Priority, ticket.CreatedAt, ticket.UpdatedAt,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to create ticket")
	}

	return httputil.Created(c, ticket)
}

// List returns a project's tickets, optionally filtered by ?status=
func (h *TicketHandler) List(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	if _, err := requireProject(c, h.db, projectID); err != nil {
		return httputil.Error(c, err)
	}

	pagination := httputil.ParsePagination(c)

	where := "project_id = $1"
	args := []interface{}{projectID}

	if statusFilter := c.Query("status"); statusFilter != "" {
		status := commonModels.TicketStatus(statusFilter)
		if !status.IsValid() {
			return httputil.Error(c, errors.ErrInvalidTicketStatus)
		}
		where += " AND status = $2"
		args = append(args, status)
	}

	var total int64
	err = h.db.QueryRow(c.Context(),
		"SELECT COUNT(*) FROM tickets WHERE "+where, args...,
	).Scan(&total)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	query := `SELECT id, project_id, author_id, title, body, status, priority, created_at, updated_at, closed_at
		 FROM tickets WHERE ` + where + `
		 ORDER BY created_at DESC LIMIT `
	if len(args) == 1 {
		query += "$2 OFFSET $3"
	} else {
		query += "$3 OFFSET $4"
	}
	args = append(args, pagination.PageSize, pagination.Offset())

	rows, err := h.db.Query(c.Context(), query, args...)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	defer rows.Close()

	tickets := make([]models.Ticket, 0)
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.AuthorID, &t.Title, &t.Body,
			&t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt); err != nil {
			return httputil.InternalError(c, "database error")
		}
		tickets = append(tickets, t)
	}

	return httputil.SuccessWithMeta(c, tickets,
		httputil.BuildMeta(pagination.Page, pagination.PageSize, total))
}

// GetByID returns a ticket with its comment thread
func (h *TicketHandler) GetByID(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}
	ticketID, err := uuid.Parse(c.Params("ticket_id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid ticket ID")
	}

	if _, err := requireProject(c, h.db, projectID); err != nil {
		return httputil.Error(c, err)
	}

	ticket, err := h.loadTicket(c, projectID, ticketID)
	if err != nil {
		return httputil.Error(c, err)
	}

	rows, err := h.db.Query(c.Context(),
		`SELECT id, ticket_id, author_id, body, created_at
		 FROM ticket_comments WHERE ticket_id = $1 ORDER BY created_at`,
		ticketID,
	)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	defer rows.Close()

	comments := make([]models.TicketComment, 0)
	for rows.Next() {
		var cm models.TicketComment
		if err := rows.Scan(&cm.ID, &cm.TicketID, &cm.AuthorID, &cm.Body, &cm.CreatedAt); err != nil {
			return httputil.InternalError(c, "database error")
		}
		comments = append(comments, cm)
	}

	return httputil.Success(c, fiber.Map{
		"ticket":   ticket,
		"comments": comments,
	})
}

// Update changes a ticket's status or priority. Closed tickets are frozen.
func (h *TicketHandler) Update(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Unauthorized(c, "")
	}

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}
	ticketID, err := uuid.Parse(c.Params("ticket_id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid ticket ID")
	}

	project, err := requireProject(c, h.db, projectID)
	if err != nil {
		return httputil.Error(c, err)
	}

	var req UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	ticket, err := h.loadTicket(c, projectID, ticketID)
	if err != nil {
		return httputil.Error(c, err)
	}
	if ticket.Status == commonModels.TicketClosed {
		return httputil.Error(c, errors.ErrTicketClosed)
	}

	statusChanged := false
	if req.Status != nil {
		status := commonModels.TicketStatus(*req.Status)
		if !status.IsValid() {
			return httputil.Error(c, errors.ErrInvalidTicketStatus)
		}
		statusChanged = status != ticket.Status
		ticket.Status = status
		if status.IsTerminal() {
			now := time.Now()
			ticket.ClosedAt = &now
		} else {
			ticket.ClosedAt = nil
		}
	}
	if req.Priority != nil {
		priority := commonModels.TicketPriority(*req.Priority)
		if !priority.IsValid() {
			return httputil.BadRequest(c, "invalid priority")
		}
		ticket.Priority = priority
	}

	ticket.UpdatedAt = time.Now()
	_, err = h.db.Exec(c.Context(),
		`UPDATE tickets SET status = $1, priority = $2, closed_at = $3, updated_at = $4
		 WHERE id = $5`,
		ticket.Status, ticket.Priority, ticket.ClosedAt, ticket.UpdatedAt, ticketID,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to update ticket")
	}

	if statusChanged && h.notifier != nil {
		h.notifier.TicketUpdated(c.Context(), projectID, userID,
			project.Name, ticket.Title, string(ticket.Status))
	}

	return httputil.Success(c, ticket)
}

// AddComment appends a comment to a ticket's thread
func (h *TicketHandler) AddComment(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Unauthorized(c, "")
	}

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}
	ticketID, err := uuid.Parse(c.Params("ticket_id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid ticket ID")
	}

	if _, err := requireProject(c, h.db, projectID); err != nil {
		return httputil.Error(c, err)
	}

	var req AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}
	if req.Body == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"body": "required",
		})
	}

	ticket, err := h.loadTicket(c, projectID, ticketID)
	if err != nil {
		return httputil.Error(c, err)
	}
	if ticket.Status == commonModels.TicketClosed {
		return httputil.Error(c, errors.ErrTicketClosed)
	}

	comment := models.TicketComment{
		ID:        uuid.New(),
		TicketID:  ticketID,
		AuthorID:  userID,
		Body:      req.Body,
		CreatedAt: time.Now(),
	}

	_, err = h.db.Exec(c.Context(),
		`INSERT INTO ticket_comments (id, ticket_id, author_id, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.TicketID, comment.AuthorID, comment.Body, comment.CreatedAt,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to add comment")
	}

	// Commenting bumps the ticket's activity timestamp
	_, _ = h.db.Exec(c.Context(),
		"UPDATE tickets SET updated_at = $1 WHERE id = $2",
		comment.CreatedAt, ticketID,
	)

	return httputil.Created(c, comment)
}

func (h *TicketHandler) loadTicket(c *fiber.Ctx, projectID, ticketID uuid.UUID) (*models.Ticket, error) {
	var t models.Ticket
	err := h.db.QueryRow(c.Context(),
		`SELECT id, project_id, author_id, title, body, status, priority, created_at, updated_at, closed_at
		 FROM tickets WHERE id = $1 AND project_id = $2`,
		ticketID, projectID,
	).Scan(&t.ID, &t.ProjectID, &t.AuthorID, &t.Title, &t.Body, &t.Status,
		&t.Priority, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt)

	if err == pgx.ErrNoRows {
		return nil, errors.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
