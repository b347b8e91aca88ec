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

// NotificationHandler handles the caller's in-app notification feed
type NotificationHandler struct {
	db *pgxpool.Pool
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(db *pgxpool.Pool) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// List returns the caller's notifications, newest first. ?unread=true
// narrows to unread ones.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Unauthorized(c, "")
	}

	pagination := httputil.ParsePagination(c)

	where := "user_id = $1"
	if c.Query("unread") == "true" {
		where += " AND read_at IS NULL"
	}

	var total int64
	err = h.db.QueryRow(c.Context(),
		"SELECT COUNT(*) FROM notifications WHERE "+where, userID,
	).Scan(&total)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	rows, err := h.db.Query(c.Context(),
		`SELECT id, user_id, project_id, type, title, body, read_at, created_at
		 FROM notifications WHERE `+where+`
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, pagination.PageSize, pagination.Offset(),
	)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ProjectID, &n.Type, &n.Title,
			&n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return httputil.InternalError(c, "database error")
		}
		notifications = append(notifications, n)
	}

	return httputil.SuccessWithMeta(c, notifications,
		httputil.BuildMeta(pagination.Page, pagination.PageSize, total))
}

// MarkRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Unauthorized(c, "")
	}

	notificationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid notification ID")
	}

	tag, err := h.db.Exec(c.Context(),
		`UPDATE notifications SET read_at = $1
		 WHERE id = $2 AND user_id = $3 AND read_at IS NULL`,
		time.Now(), notificationID, userID,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return httputil.NotFound(c, "notification")
	}

	return httputil.Success(c, fiber.Map{"read": true})
}

// MarkAllRead marks every unread notification of the caller as read
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Unauthorized(c, "")
	}

	tag, err := h.db.Exec(c.Context(),
		"UPDATE notifications SET read_at = $1 WHERE user_id = $2 AND read_at IS NULL",
		time.Now(), userID,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to mark notifications read")
	}

	return httputil.Success(c, fiber.Map{"marked": tag.RowsAffected()})
}
