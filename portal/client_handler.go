package portal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/bobbridge/portal/common/errors"
	commonModels "github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/pkg/httputil"
	"github.com/bobbridge/portal/portal/models"
)

// ClientHandler handles tenant organization management. All routes are
// admin-only; client users never manage tenants.
type ClientHandler struct {
	db *pgxpool.Pool
}

// NewClientHandler creates a new client handler
func NewClientHandler(db *pgxpool.Pool) *ClientHandler {
	return &ClientHandler{db: db}
}

// CreateClientRequest represents the client creation request body
type CreateClientRequest struct {
	Name         string  `json:"name"`
	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email"`
	BobSiteID    *string `json:"bob_site_id"`
}

// UpdateClientRequest represents the client update request body
type UpdateClientRequest struct {
	Name         *string `json:"name"`
	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email"`
	BobSiteID    *string `json:"bob_site_id"`
}

// CreateClientUserRequest provisions a portal login for a tenant
type CreateClientUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Create handles client creation
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	var req CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	if req.Name == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"name": "required",
		})
	}

	now := time.Now()
	client := models.Client{
		ID:           uuid.New(),
		Name:         req.Name,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		BobSiteID:    req.BobSiteID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := h.db.Exec(c.Context(),
		`INSERT INTO clients (id, name, contact_name, contact_email, bob_site_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		client.ID, client.Name, client.ContactName, client.ContactEmail,
		client.BobSiteID, client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to create client")
	}

	return httputil.Created(c, client)
}

// List returns all clients, newest first
func (h *ClientHandler) List(c *fiber.Ctx) error {
	pagination := httputil.ParsePagination(c)

	var total int64
	err := h.db.QueryRow(c.Context(),
		"SELECT COUNT(*) FROM clients WHERE deleted_at IS NULL",
	).Scan(&total)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	rows, err := h.db.Query(c.Context(),
		`SELECT id, name, contact_name, contact_email, bob_site_id, created_at, updated_at
		 FROM clients WHERE deleted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		pagination.PageSize, pagination.Offset(),
	)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	defer rows.Close()

	clients := make([]models.Client, 0)
	for rows.Next() {
		var cl models.Client
		if err := rows.Scan(&cl.ID, &cl.Name, &cl.ContactName, &cl.ContactEmail,
			&cl.BobSiteID, &cl.CreatedAt, &cl.UpdatedAt); err != nil {
			return httputil.InternalError(c, "database error")
		}
		clients = append(clients, cl)
	}

	return httputil.SuccessWithMeta(c, clients,
		httputil.BuildMeta(pagination.Page, pagination.PageSize, total))
}

// GetByID returns a single client
func (h *ClientHandler) GetByID(c *fiber.Ctx) error {
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid client ID")
	}

	var cl models.Client
	err = h.db.QueryRow(c.Context(),
		`SELECT id, name, contact_name, contact_email, bob_site_id, created_at, updated_at
		 FROM clients WHERE id = $1 AND deleted_at IS NULL`,
		clientID,
	).Scan(&cl.ID, &cl.Name, &cl.ContactName, &cl.ContactEmail,
		&cl.BobSiteID, &cl.CreatedAt, &cl.UpdatedAt)

	if err == pgx.ErrNoRows {
		return httputil.Error(c, errors.ErrClientNotFound)
	}
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	return httputil.Success(c, cl)
}

// Update modifies client contact fields
func (h *ClientHandler) Update(c *fiber.Ctx) error {
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid client ID")
	}

	var req UpdateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	tag, err := h.db.Exec(c.Context(),
		`UPDATE clients SET
			name = COALESCE($1, name),
			contact_name = COALESCE($2, contact_name),
			contact_email = COALESCE($3, contact_email),
			bob_site_id = COALESCE($4, bob_site_id),
			updated_at = $5
		 WHERE id = $6 AND deleted_at IS NULL`,
		req.Name, req.ContactName, req.ContactEmail, req.BobSiteID, time.Now(), clientID,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to update client")
	}
	if tag.RowsAffected() == 0 {
		return httputil.Error(c, errors.ErrClientNotFound)
	}

	return h.GetByID(c)
}

// Delete soft-deletes a client
func (h *ClientHandler) Delete(c *fiber.Ctx) error {
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid client ID")
	}

	tag, err := h.db.Exec(c.Context(),
		"UPDATE clients SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		time.Now(), clientID,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to delete client")
	}
	if tag.RowsAffected() == 0 {
		return httputil.Error(c, errors.ErrClientNotFound)
	}

	return httputil.NoContent(c)
}

// ListUsers returns the tenant's portal users
func (h *ClientHandler) ListUsers(c *fiber.Ctx) error {
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid client ID")
	}

	rows, err := h.db.Query(c.Context(),
		`SELECT id, email, name, role, client_id, created_at, updated_at
		 FROM users WHERE client_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at`,
		clientID,
	)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	defer rows.Close()

	users := make([]interface{}, 0)
	for rows.Next() {
		var u commonModels.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.ClientID,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return httputil.InternalError(c, "database error")
		}
		users = append(users, toUserResponse(&u))
	}

	return httputil.Success(c, users)
}

// CreateUser provisions a client-user login for the tenant
func (h *ClientHandler) CreateUser(c *fiber.Ctx) error {
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid client ID")
	}

	var req CreateClientUserRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"email":    "required",
			"password": "required",
			"name":     "required",
		})
	}
	if len(req.Password) < 8 {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"password": "must be at least 8 characters",
		})
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

	var emailTaken bool
	err = h.db.QueryRow(c.Context(),
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)",
		req.Email,
	).Scan(&emailTaken)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	if emailTaken {
		return httputil.Conflict(c, "email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return httputil.InternalError(c, "failed to hash password")
	}

	now := time.Now()
	user := commonModels.User{
		ID:        uuid.New(),
		Email:     req.Email,
		Name:      req.Name,
		Role:      commonModels.RoleClient,
		ClientID:  &clientID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = h.db.Exec(c.Context(),
		`INSERT INTO users (id, email, password_hash, name, role, client_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, string(hashedPassword), user.Name, user.Role, clientID, now, now,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to create user")
	}

	return httputil.Created(c, toUserResponse(&user))
}
