package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobbridge/portal/lifecycle"
	"github.com/bobbridge/portal/portal/models"
)

// assistantSystemPrompt frames the chat assistant. The per-project context
// block is appended at request time.
const assistantSystemPrompt = `You are the BobBridge delivery assistant. You help clients and the
delivery team with questions about their HiBob payroll integration project:
where the project stands, what each stage means, and what is still open
before the next stage.

Ground every answer in the PROJECT CONTEXT below. If a question is outside
the project (legal advice, payroll calculations, HiBob product support),
say so and point the user at their delivery contact instead of guessing.`

// ProjectContextBuilder assembles the per-project context block that is
// attached to every chat completion. Kept small: stage position, open
// checklist, open tickets.
type ProjectContextBuilder struct {
	db *pgxpool.Pool
}

// NewProjectContextBuilder creates a new context builder
func NewProjectContextBuilder(db *pgxpool.Pool) *ProjectContextBuilder {
	return &ProjectContextBuilder{db: db}
}

// Build renders the context block for a project
func (cb *ProjectContextBuilder) Build(ctx context.Context, project *models.Project) (string, error) {
	var b strings.Builder

	b.WriteString("PROJECT CONTEXT:\n")
	fmt.Fprintf(&b, "- Project: %s\n", project.Name)
	if project.Description != nil && *project.Description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", *project.Description)
	}
	fmt.Fprintf(&b, "- Current stage: %s (%d of %d)\n",
		lifecycle.Label(project.CurrentStage),
		lifecycle.Index(project.CurrentStage)+1, len(lifecycle.Stages))
	if project.GoLiveTarget != nil {
		fmt.Fprintf(&b, "- Go-live target: %s\n", project.GoLiveTarget.Format("2 January 2006"))
	}

	if next, ok := lifecycle.Next(project.CurrentStage); ok {
		fmt.Fprintf(&b, "- Next stage: %s\n", lifecycle.Label(next))
	} else {
		b.WriteString("- This is the final stage; the project is in ongoing support.\n")
	}

	if err := cb.appendChecklist(ctx, &b, project); err != nil {
		return "", err
	}
	if err := cb.appendTickets(ctx, &b, project.ID); err != nil {
		return "", err
	}

	return b.String(), nil
}

func (cb *ProjectContextBuilder) appendChecklist(ctx context.Context, b *strings.Builder, project *models.Project) error {
	rows, err := cb.db.Query(ctx,
		`SELECT title, required, completed_at IS NOT NULL
		 FROM checklist_items WHERE project_id = $1 AND stage = $2
		 ORDER BY position`,
		project.ID, project.CurrentStage,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var title string
		var required, done bool
		if err := rows.Scan(&title, &required, &done); err != nil {
			return err
		}
		mark := "[ ]"
		if done {
			mark = "[x]"
		}
		suffix := ""
		if required {
			suffix = " (required)"
		}
		lines = append(lines, fmt.Sprintf("  %s %s%s", mark, title, suffix))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(lines) > 0 {
		fmt.Fprintf(b, "- %s checklist:\n%s\n",
			lifecycle.Label(project.CurrentStage), strings.Join(lines, "\n"))
	}
	return nil
}

func (cb *ProjectContextBuilder) appendTickets(ctx context.Context, b *strings.Builder, projectID uuid.UUID) error {
	rows, err := cb.db.Query(ctx,
		`SELECT title, status FROM tickets
		 WHERE project_id = $1 AND status NOT IN ('resolved', 'closed')
		 ORDER BY created_at DESC LIMIT 10`,
		projectID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var title, status string
		if err := rows.Scan(&title, &status); err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("  - %s (%s)", title, status))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(lines) > 0 {
		fmt.Fprintf(b, "- Open tickets:\n%s\n", strings.Join(lines, "\n"))
	}
	return nil
}
