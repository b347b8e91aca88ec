package portal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobbridge/portal/pkg/httputil"
	"github.com/bobbridge/portal/pkg/middleware"
	"github.com/bobbridge/portal/portal/models"
)

// MessageHandler handles the per-project message board
type MessageHandler struct {
	db       *pgxpool.Pool
	notifier *Notifier
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(db *pgxpool.Pool, notifier *Notifier) *MessageHandler {
	return &MessageHandler{db: db, notifier: notifier}
}

// PostMessageRequest represents the message creation request body
type PostMessageRequest struct {
	Body string `json:"body"`
}

// messageView joins the author's name onto a message row
type messageView struct {
	models.Message
	AuthorName string `json:"author_name"`
}

// List returns a project's messages, newest first
func (h *MessageHandler) List(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	if _, err := requireProject(c, h.db, projectID); err != nil {
		return httputil.Error(c, err)
	}

	pagination := httputil.ParsePagination(c)

	var total int64
	err = h.db.QueryRow(c.Context(),
		"SELECT COUNT(*) FROM messages WHERE project_id = $1", projectID,
	).Scan(&total)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	rows, err := h.db.Query(c.Context(),
		`SELECT m.id, m.project_id, m.author_id, m.body, m.created_at, COALESCE(u.name, 'Unknown')
		 FROM messages m
		 LEFT JOIN users u ON u.id = m.author_id
		 WHERE m.project_id = $1
		 ORDER BY m.created_at DESC
		 LIMIT $2 OFFSET $3`,
		projectID, pagination.PageSize, pagination.Offset(),
	)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	defer rows.Close()

	messages := make([]messageView, 0)
	for rows.Next() {
		var m messageView
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.AuthorID, &m.Body, &m.CreatedAt, &m.AuthorName); err != nil {
			return httputil.InternalError(c, "database error")
		}
		messages = append(messages, m)
	}

	return httputil.SuccessWithMeta(c, messages,
		httputil.BuildMeta(pagination.Page, pagination.PageSize, total))
}

// Post adds a message to the board and notifies the other participants
func (h *MessageHandler) Post(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Unauthorized(c, "")
	}

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	project, err := requireProject(c, h.db, projectID)
	if err != nil {
		return httputil.Error(c, err)
	}

	var req PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}
	if req.Body == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"body": "required",
		})
	}

	message := models.Message{
		ID:        uuid.New(),
		ProjectID: projectID,
		AuthorID:  userID,
		Body:      req.Body,
		CreatedAt: time.Now(),
	}

	_, err = h.db.Exec(c.Context(),
		`INSERT INTO messages (id, project_id, author_id, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		message.ID, message.ProjectID, message.AuthorID, message.Body, message.CreatedAt,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to post message")
	}

	if h.notifier != nil {
		var authorName string
		if err := h.db.QueryRow(c.Context(),
			"SELECT name FROM users WHERE id = $1", userID,
		).Scan(&authorName); err != nil {
			authorName = "A project member"
		}
		h.notifier.NewMessage(c.Context(), projectID, userID,
			project.Name, authorName, preview(req.Body, 120))
	}

	return httputil.Created(c, message)
}

// preview truncates a message body for notification text
func preview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "…"
}
