// Package models holds the portal's persisted domain records.
package models

import (
	"time"

	"github.com/google/uuid"

	commonModels "github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/lifecycle"
)

// Client is a tenant organization running a HiBob payroll integration
type Client struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	ContactName  *string    `json:"contact_name,omitempty" db:"contact_name"`
	ContactEmail *string    `json:"contact_email,omitempty" db:"contact_email"`
	BobSiteID    *string    `json:"bob_site_id,omitempty" db:"bob_site_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Project is one payroll-integration delivery project for a tenant.
// CurrentStage is the single lifecycle state variable; every stage
// mutation goes through the transition guard and a conditional write.
type Project struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ClientID     uuid.UUID       `json:"client_id" db:"client_id"`
	Name         string          `json:"name" db:"name"`
	Description  *string         `json:"description,omitempty" db:"description"`
	CurrentStage lifecycle.Stage `json:"current_stage" db:"current_stage"`
	GoLiveTarget *time.Time      `json:"go_live_target,omitempty" db:"go_live_target"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// NewProject creates a project at the first lifecycle stage
func NewProject(clientID uuid.UUID, name string) *Project {
	now := time.Now()
	return &Project{
		ID:           uuid.New(),
		ClientID:     clientID,
		Name:         name,
		CurrentStage: lifecycle.First(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ChecklistItem is one item of a per-stage delivery checklist. Required
// items block advancing out of their stage until completed.
type ChecklistItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ProjectID   uuid.UUID       `json:"project_id" db:"project_id"`
	Stage       lifecycle.Stage `json:"stage" db:"stage"`
	Title       string          `json:"title" db:"title"`
	Required    bool            `json:"required" db:"required"`
	Position    int             `json:"position" db:"position"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CompletedBy *uuid.UUID      `json:"completed_by,omitempty" db:"completed_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// IsComplete reports whether the item has been checked off
func (i *ChecklistItem) IsComplete() bool {
	return i.CompletedAt != nil
}

// Ticket is a support ticket raised against a project
type Ticket struct {
	ID        uuid.UUID                   `json:"id" db:"id"`
	ProjectID uuid.UUID                   `json:"project_id" db:"project_id"`
	AuthorID  uuid.UUID                   `json:"author_id" db:"author_id"`
	Title     string                      `json:"title" db:"title"`
	Body      string                      `json:"body" db:"body"`
	Status    commonModels.TicketStatus   `json:"status" db:"status"`
	Priority  commonModels.TicketPriority `json:"priority" db:"priority"`
	CreatedAt time.Time                   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at" db:"updated_at"`
	ClosedAt  *time.Time                  `json:"closed_at,omitempty" db:"closed_at"`
}

// TicketComment is a threaded comment on a ticket
type TicketComment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TicketID  uuid.UUID `json:"ticket_id" db:"ticket_id"`
	AuthorID  uuid.UUID `json:"author_id" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Message is a post on a project's message board
type Message struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id"`
	AuthorID  uuid.UUID `json:"author_id" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Notification is a per-user in-app notification row
type Notification struct {
	ID        uuid.UUID                     `json:"id" db:"id"`
	UserID    uuid.UUID                     `json:"user_id" db:"user_id"`
	ProjectID *uuid.UUID                    `json:"project_id,omitempty" db:"project_id"`
	Type      commonModels.NotificationType `json:"type" db:"type"`
	Title     string                        `json:"title" db:"title"`
	Body      string                        `json:"body" db:"body"`
	ReadAt    *time.Time                    `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time                     `json:"created_at" db:"created_at"`
}
