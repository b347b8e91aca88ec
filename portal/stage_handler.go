package portal

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/bobbridge/portal/common/errors"
	commonModels "github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/lifecycle"
	"github.com/bobbridge/portal/pkg/httputil"
	"github.com/bobbridge/portal/pkg/middleware"
)

// StageHandler owns the lifecycle endpoints: the transition protocol and
// the derived stepper view.
type StageHandler struct {
	store    ProjectStageStore
	notifier *Notifier
}

// NewStageHandler creates a new stage handler
func NewStageHandler(store ProjectStageStore, notifier *Notifier) *StageHandler {
	return &StageHandler{store: store, notifier: notifier}
}

// ChangeStageRequest is the transition request body
type ChangeStageRequest struct {
	Action      string `json:"action"`
	TargetStage string `json:"target_stage,omitempty"`
}

// ChangeStageResponse reports a successful transition
type ChangeStageResponse struct {
	ProjectID     string          `json:"project_id"`
	PreviousStage lifecycle.Stage `json:"previous_stage"`
	CurrentStage  lifecycle.Stage `json:"current_stage"`
	StageLabel    string          `json:"stage_label"`
}

// ChangeStage applies an advance or lock transition to a project. The route
// is admin-gated; this handler enforces the ordering rules, the checklist
// precondition on advance, and the optimistic write.
func (h *StageHandler) ChangeStage(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return httputil.Unauthorized(c, "")
	}

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	var req ChangeStageRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.BadRequest(c, "invalid request body")
	}

	treq := lifecycle.TransitionRequest{Action: lifecycle.Action(req.Action)}
	if req.TargetStage != "" {
		target, err := lifecycle.Parse(req.TargetStage)
		if err != nil {
			return httputil.Error(c, err)
		}
		treq.Target = target
	}

	project, err := h.store.GetProject(c.Context(), projectID)
	if err != nil {
		return httputil.Error(c, err)
	}

	// Advancing requires the current stage's required checklist to be done.
	// Lock is a pure rewind and is never checklist-gated.
	if treq.Action == lifecycle.ActionAdvance {
		open, err := h.store.OpenRequiredItems(c.Context(), projectID, project.CurrentStage)
		if err != nil {
			return httputil.InternalError(c, "database error")
		}
		if open > 0 {
			return httputil.Error(c, errors.ErrChecklistIncomplete)
		}
	}

	next, err := lifecycle.Transition(project.CurrentStage, treq)
	if err != nil {
		return httputil.Error(c, err)
	}

	if err := h.store.SetStage(c.Context(), projectID, project.CurrentStage, next); err != nil {
		return httputil.Error(c, err)
	}

	// Stage-entry side effects: seed the entered stage's checklist on first
	// arrival and notify participants. Lock re-enters a stage that was
	// already seeded on the way forward.
	if treq.Action == lifecycle.ActionAdvance {
		if err := h.store.SeedChecklist(c.Context(), projectID, next, ChecklistFor(next)); err != nil {
			return httputil.InternalError(c, "failed to seed stage checklist")
		}
	}

	if h.notifier != nil {
		h.notifier.StageChanged(c.Context(), projectID, userID, project.Name,
			lifecycle.Label(project.CurrentStage), lifecycle.Label(next))
	}

	return httputil.Success(c, ChangeStageResponse{
		ProjectID:     projectID.String(),
		PreviousStage: project.CurrentStage,
		CurrentStage:  next,
		StageLabel:    lifecycle.Label(next),
	})
}

// StageView is one stepper entry for UI rendering
type StageView struct {
	Key    lifecycle.Stage  `json:"key"`
	Label  string           `json:"label"`
	Slug   string           `json:"slug,omitempty"`
	Status lifecycle.Status `json:"status"`
}

// ListStages returns the full stepper for a project: every registry stage
// with its status derived from the project's current stage.
func (h *StageHandler) ListStages(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httputil.BadRequest(c, "invalid project ID")
	}

	project, err := h.store.GetProject(c.Context(), projectID)
	if err != nil {
		return httputil.Error(c, err)
	}

	// Client users only see their own tenant's projects
	if middleware.GetRole(c) != commonModels.RoleAdmin {
		clientID, ok := middleware.GetClientID(c)
		if !ok || clientID != project.ClientID {
			return httputil.Error(c, errors.ErrNotProjectMember)
		}
	}

	views := make([]StageView, 0, len(lifecycle.Stages))
	for _, s := range lifecycle.Stages {
		views = append(views, StageView{
			Key:    s.Key,
			Label:  s.Label,
			Slug:   s.Slug,
			Status: lifecycle.DeriveStatus(s.Key, project.CurrentStage),
		})
	}

	return httputil.Success(c, fiber.Map{
		"project_id":    projectID.String(),
		"current_stage": project.CurrentStage,
		"stages":        views,
	})
}
