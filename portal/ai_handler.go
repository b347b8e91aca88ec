package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bobbridge/portal/common/errors"
	"github.com/bobbridge/portal/pkg/httputil"
	"github.com/bobbridge/portal/pkg/llm"
	"github.com/bobbridge/portal/pkg/middleware"
)

// AIHandler handles the project chat assistant
type AIHandler struct {
	db        *pgxpool.Pool
	redis     *redis.Client
	llm       *llm.MultiClient
	context   *ProjectContextBuilder
	perMinute int
}

// NewAIHandler creates a new AI handler. llmClient may be nil when no
// provider is configured; requests then fail with 503.
func NewAIHandler(db *pgxpool.Pool, redisClient *redis.Client, llmClient *llm.MultiClient, perMinute int) *AIHandler {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &AIHandler{
		db:        db,
		redis:     redisClient,
		llm:       llmClient,
		context:   NewProjectContextBuilder(db),
		perMinute: perMinute,
	}
}

// ChatRequest represents the chat request body. History carries the prior
// turns of the conversation; the client owns conversation state.
type ChatRequest struct {
	Message string `json:"message"`
	History []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history"`
}

// ChatResponse represents the assistant's reply
type ChatResponse struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}

// Chat answers a question about a project, grounded in its current
// lifecycle state. Rate limited per user.
func (h *AIHandler) Chat(c *fiber.Ctx) error {
	if h.llm == nil {
		return httputil.Error(c, errors.ErrAIServiceUnavailable)
	}

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

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}
	if req.Message == "" {
		return httputil.ValidationError(c, "validation failed", map[string]string{
			"message": "required",
		})
	}

	allowed, err := h.allow(c.Context(), userID)
	if err != nil {
		// Redis being down should not take chat with it
		allowed = true
	}
	if !allowed {
		return httputil.Error(c, errors.ErrAIRateLimit)
	}

	contextBlock, err := h.context.Build(c.Context(), project)
	if err != nil {
		return httputil.InternalError(c, "failed to build project context")
	}

	messages := make([]llm.Message, 0, len(req.History)+1)
	for _, turn := range req.History {
		if turn.Role != "user" && turn.Role != "assistant" {
			continue
		}
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: req.Message})

	resp, err := h.llm.Complete(c.Context(), llm.CompletionRequest{
		Messages:    messages,
		SystemMsg:   assistantSystemPrompt + "\n\n" + contextBlock,
		MaxTokens:   1024,
		Temperature: 0.3,
	})
	if err != nil {
		return httputil.Error(c, errors.ErrAIServiceUnavailable)
	}

	return httputil.Success(c, ChatResponse{
		Reply: resp.Content,
		Model: resp.Model,
	})
}

// allow implements a fixed-window per-user rate limit in Redis
func (h *AIHandler) allow(ctx context.Context, userID uuid.UUID) (bool, error) {
	if h.redis == nil {
		return true, nil
	}

	key := fmt.Sprintf("ai:chat:%s", userID)
	count, err := h.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		h.redis.Expire(ctx, key, time.Minute)
	}
	return count <= int64(h.perMinute), nil
}
