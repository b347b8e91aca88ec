package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbridge/portal/common/dto"
	"github.com/bobbridge/portal/common/errors"
	commonModels "github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/lifecycle"
	"github.com/bobbridge/portal/portal/models"
)

// stubStageStore keeps one project in memory and mimics the conditional
// stage write of the real store.
type stubStageStore struct {
	project      *models.Project
	openRequired map[lifecycle.Stage]int
	seeded       []lifecycle.Stage
	conflictOnce bool // force one ErrConcurrentModification
}

func (s *stubStageStore) GetProject(_ context.Context, id uuid.UUID) (*models.Project, error) {
	if s.project == nil || s.project.ID != id {
		return nil, errors.ErrProjectNotFound
	}
	copied := *s.project
	return &copied, nil
}

func (s *stubStageStore) OpenRequiredItems(_ context.Context, _ uuid.UUID, stage lifecycle.Stage) (int, error) {
	return s.openRequired[stage], nil
}

func (s *stubStageStore) SetStage(_ context.Context, _ uuid.UUID, expected, next lifecycle.Stage) error {
	if s.conflictOnce {
		s.conflictOnce = false
		return lifecycle.ErrConcurrentModification
	}
	if s.project.CurrentStage != expected {
		return lifecycle.ErrConcurrentModification
	}
	s.project.CurrentStage = next
	return nil
}

func (s *stubStageStore) SeedChecklist(_ context.Context, _ uuid.UUID, stage lifecycle.Stage, _ []ChecklistTemplate) error {
	s.seeded = append(s.seeded, stage)
	return nil
}

func newStageTestApp(store ProjectStageStore, role commonModels.UserRole, clientID *uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uuid.New())
		c.Locals("role", role)
		if clientID != nil {
			c.Locals("clientID", *clientID)
		}
		return c.Next()
	})

	h := NewStageHandler(store, nil)
	app.Post("/projects/:id/stage", h.ChangeStage)
	app.Get("/projects/:id/stages", h.ListStages)
	return app
}

func postStage(t *testing.T, app *fiber.App, projectID uuid.UUID, body ChangeStageRequest) (*http.Response, dto.APIResponse) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/stage", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope dto.APIResponse
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return resp, envelope
}

func testProject(stage lifecycle.Stage) *models.Project {
	p := models.NewProject(uuid.New(), "Acme payroll integration")
	p.CurrentStage = stage
	return p
}

func TestChangeStageAdvance(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StageProvisioning), openRequired: map[lifecycle.Stage]int{}}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	resp, envelope := postStage(t, app, store.project.ID, ChangeStageRequest{Action: "advance"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, envelope.Success)
	assert.Equal(t, lifecycle.StageBobConfig, store.project.CurrentStage)
	assert.Equal(t, []lifecycle.Stage{lifecycle.StageBobConfig}, store.seeded)

	// A second advance keeps walking forward one step at a time
	resp, _ = postStage(t, app, store.project.ID, ChangeStageRequest{Action: "advance"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, lifecycle.StageMapping, store.project.CurrentStage)
}

func TestChangeStageAdvanceBlockedByChecklist(t *testing.T) {
	store := &stubStageStore{
		project:      testProject(lifecycle.StageDiscovery),
		openRequired: map[lifecycle.Stage]int{lifecycle.StageDiscovery: 2},
	}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	resp, envelope := postStage(t, app, store.project.ID, ChangeStageRequest{Action: "advance"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)
	assert.Equal(t, lifecycle.StageDiscovery, store.project.CurrentStage)
}

func TestChangeStageAdvanceFromSupport(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StageSupport), openRequired: map[lifecycle.Stage]int{}}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	resp, _ := postStage(t, app, store.project.ID, ChangeStageRequest{Action: "advance"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, lifecycle.StageSupport, store.project.CurrentStage)
}

func TestChangeStageImplicitLockFromPreSales(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StagePreSales), openRequired: map[lifecycle.Stage]int{}}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	resp, _ := postStage(t, app, store.project.ID, ChangeStageRequest{Action: "lock"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangeStageExplicitLockJumpsBack(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StageBuild), openRequired: map[lifecycle.Stage]int{}}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	resp, _ := postStage(t, app, store.project.ID, ChangeStageRequest{Action: "lock", TargetStage: "discovery"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, lifecycle.StageDiscovery, store.project.CurrentStage)
	// Lock does not re-seed: the stage was seeded on the way forward
	assert.Empty(t, store.seeded)
}

func TestChangeStageExplicitLockForwardRejected(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StageUAT), openRequired: map[lifecycle.Stage]int{}}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	resp, _ := postStage(t, app, store.project.ID, ChangeStageRequest{Action: "lock", TargetStage: "go_live"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, lifecycle.StageUAT, store.project.CurrentStage)
}

func TestChangeStageUnknownTargetRejected(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StageUAT), openRequired: map[lifecycle.Stage]int{}}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	resp, _ := postStage(t, app, store.project.ID, ChangeStageRequest{Action: "lock", TargetStage: "qa"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangeStageInvalidAction(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StageBuild), openRequired: map[lifecycle.Stage]int{}}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	resp, _ := postStage(t, app, store.project.ID, ChangeStageRequest{Action: "skip"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangeStageConcurrentConflict(t *testing.T) {
	store := &stubStageStore{
		project:      testProject(lifecycle.StageMapping),
		openRequired: map[lifecycle.Stage]int{},
		conflictOnce: true,
	}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	// First request loses the conditional write
	resp, _ := postStage(t, app, store.project.ID, ChangeStageRequest{Action: "advance"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, lifecycle.StageMapping, store.project.CurrentStage)

	// Re-issued request reads the fresh stage and succeeds
	resp, _ = postStage(t, app, store.project.ID, ChangeStageRequest{Action: "advance"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, lifecycle.StageBuild, store.project.CurrentStage)
}

func TestChangeStageProjectNotFound(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StageBuild), openRequired: map[lifecycle.Stage]int{}}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	resp, _ := postStage(t, app, uuid.New(), ChangeStageRequest{Action: "advance"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListStagesStepper(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StageMapping), openRequired: map[lifecycle.Stage]int{}}
	app := newStageTestApp(store, commonModels.RoleAdmin, nil)

	req := httptest.NewRequest(http.MethodGet, "/projects/"+store.project.ID.String()+"/stages", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			CurrentStage lifecycle.Stage `json:"current_stage"`
			Stages       []StageView     `json:"stages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.True(t, envelope.Success)
	require.Len(t, envelope.Data.Stages, 9)

	assert.Equal(t, lifecycle.StageMapping, envelope.Data.CurrentStage)
	for _, view := range envelope.Data.Stages {
		assert.Equal(t, lifecycle.DeriveStatus(view.Key, lifecycle.StageMapping), view.Status)
	}
}

func TestListStagesTenantScoping(t *testing.T) {
	store := &stubStageStore{project: testProject(lifecycle.StageBuild), openRequired: map[lifecycle.Stage]int{}}

	otherTenant := uuid.New()
	app := newStageTestApp(store, commonModels.RoleClient, &otherTenant)

	req := httptest.NewRequest(http.MethodGet, "/projects/"+store.project.ID.String()+"/stages", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Same tenant is allowed through
	app = newStageTestApp(store, commonModels.RoleClient, &store.project.ClientID)
	req = httptest.NewRequest(http.MethodGet, "/projects/"+store.project.ID.String()+"/stages", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
