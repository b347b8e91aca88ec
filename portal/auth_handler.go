package portal

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/bobbridge/portal/common/dto"
	commonModels "github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/pkg/config"
	"github.com/bobbridge/portal/pkg/httputil"
	"github.com/bobbridge/portal/pkg/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	db     *pgxpool.Pool
	config *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *pgxpool.Pool, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, config: cfg}
}

// RegisterRequest represents the registration request body. Self-service
// registration always creates a client user; admins are provisioned by
// other admins through the client-user endpoints.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Name            string `json:"name"`
	ClientID        string `json:"client_id"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User         dto.UserResponse `json:"user"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// Register handles client-user registration
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.Name == "" || req.ClientID == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"email":     "required",
			"password":  "required",
			"name":      "required",
			"client_id": "required",
		})
	}

	if len(req.Password) < 8 {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"password": "must be at least 8 characters",
		})
	}

	if req.Password != req.PasswordConfirm {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"password_confirm": "passwords do not match",
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
		return httputil.NotFound(c, "client")
	}

	var exists bool
	err = h.db.QueryRow(c.Context(),
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)",
		req.Email,
	).Scan(&exists)
	if err != nil {
		return httputil.InternalError(c, "database error")
	}
	if exists {
		return httputil.Conflict(c, "email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return httputil.InternalError(c, "failed to hash password")
	}

	user := &commonModels.User{
		ID:       uuid.New(),
		Email:    req.Email,
		Name:     req.Name,
		Role:     commonModels.RoleClient,
		ClientID: &clientID,
	}
	hashed := string(hashedPassword)
	user.PasswordHash = &hashed
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now

	_, err = h.db.Exec(c.Context(),
		`INSERT INTO users (id, email, password_hash, name, role, client_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, hashed, user.Name, user.Role, clientID, now, now,
	)
	if err != nil {
		return httputil.InternalError(c, "failed to create user")
	}

	return h.issueTokensAndRespond(c, user)
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"email":    "required",
			"password": "required",
		})
	}

	var user commonModels.User
	err := h.db.QueryRow(c.Context(),
		`SELECT id, email, password_hash, name, role, client_id, created_at, updated_at
		 FROM users WHERE email = $1 AND deleted_at IS NULL`,
		req.Email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role,
		&user.ClientID, &user.CreatedAt, &user.UpdatedAt)

	if err == pgx.ErrNoRows {
		return httputil.Unauthorized(c, "invalid email or password")
	}
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	if !user.CanPasswordLogin() {
		return httputil.Unauthorized(c, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return httputil.Unauthorized(c, "invalid email or password")
	}

	_, _ = h.db.Exec(c.Context(),
		"UPDATE users SET last_login_at = $1 WHERE id = $2",
		time.Now(), user.ID,
	)

	return h.issueTokensAndRespond(c, &user)
}

// Refresh handles token refresh with rotation
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	if req.RefreshToken == "" {
		return httputil.BadRequest(c, "refresh_token is required")
	}

	tokenHash := hashToken(req.RefreshToken)

	var user commonModels.User
	var expiresAt time.Time
	var revokedAt *time.Time

	err := h.db.QueryRow(c.Context(),
		`SELECT rt.expires_at, rt.revoked_at, u.id, u.email, u.name, u.role, u.client_id, u.created_at, u.updated_at
		 FROM refresh_tokens rt
		 JOIN users u ON rt.user_id = u.id
		 WHERE rt.token_hash = $1 AND u.deleted_at IS NULL`,
		tokenHash,
	).Scan(&expiresAt, &revokedAt, &user.ID, &user.Email, &user.Name, &user.Role,
		&user.ClientID, &user.CreatedAt, &user.UpdatedAt)

	if err == pgx.ErrNoRows {
		return httputil.Unauthorized(c, "invalid refresh token")
	}
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	if revokedAt != nil {
		return httputil.Unauthorized(c, "refresh token has been revoked")
	}
	if time.Now().After(expiresAt) {
		return httputil.Unauthorized(c, "refresh token has expired")
	}

	// Rotate: revoke the presented token before issuing a new pair
	_, _ = h.db.Exec(c.Context(),
		"UPDATE refresh_tokens SET revoked_at = $1 WHERE token_hash = $2",
		time.Now(), tokenHash,
	)

	return h.issueTokensAndRespond(c, &user)
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		// If no body, just return success (logout without token)
		return httputil.Success(c, map[string]string{"message": "logged out"})
	}

	if req.RefreshToken != "" {
		tokenHash := hashToken(req.RefreshToken)
		_, _ = h.db.Exec(c.Context(),
			"UPDATE refresh_tokens SET revoked_at = $1 WHERE token_hash = $2",
			time.Now(), tokenHash,
		)
	}

	return httputil.Success(c, map[string]string{"message": "logged out"})
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Error(c, err)
	}

	var user commonModels.User
	err = h.db.QueryRow(c.Context(),
		`SELECT id, email, name, role, client_id, created_at, updated_at
		 FROM users WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.ClientID,
		&user.CreatedAt, &user.UpdatedAt)

	if err == pgx.ErrNoRows {
		return httputil.NotFound(c, "user")
	}
	if err != nil {
		return httputil.InternalError(c, "database error")
	}

	return httputil.Success(c, toUserResponse(&user))
}

func (h *AuthHandler) issueTokensAndRespond(c *fiber.Ctx, user *commonModels.User) error {
	accessToken, expiresAt, err := middleware.GenerateAccessToken(user, h.config.Auth.JWTSecret, h.config.Auth.JWTExpiry())
	if err != nil {
		return httputil.InternalError(c, "failed to generate access token")
	}

	refreshToken, refreshExpiry, err := middleware.GenerateRefreshToken(user, h.config.Auth.JWTSecret, h.config.Auth.RefreshExpiry())
	if err != nil {
		return httputil.InternalError(c, "failed to generate refresh token")
	}

	// Only the hash is persisted
	_, err = h.db.Exec(c.Context(),
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), user.ID, hashToken(refreshToken), refreshExpiry, time.Now(),
	)
	if err != nil {
		return httputil.InternalError(c, "failed to store refresh token")
	}

	return httputil.Success(c, AuthResponse{
		User:         toUserResponse(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	})
}

func toUserResponse(user *commonModels.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
	if user.ClientID != nil {
		id := user.ClientID.String()
		resp.ClientID = &id
	}
	return resp
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
