package portal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	commonModels "github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/pkg/email"
)

// Notifier fans out portal events: it writes per-user notification rows and
// dispatches email off the request path. Email failures are logged, never
// surfaced to the triggering request.
type Notifier struct {
	db    *pgxpool.Pool
	email *email.Client
}

// NewNotifier creates a notifier. The email client may be nil when outbound
// email is not configured; in-app notifications still work.
func NewNotifier(db *pgxpool.Pool, emailClient *email.Client) *Notifier {
	return &Notifier{db: db, email: emailClient}
}

type recipient struct {
	ID    uuid.UUID
	Email string
}

// participants returns everyone attached to a project: the tenant's users
// plus all delivery-team admins, minus the acting user.
func (n *Notifier) participants(ctx context.Context, projectID, actorID uuid.UUID) ([]recipient, error) {
	rows, err := n.db.Query(ctx,
		`SELECT u.id, u.email FROM users u
		 WHERE u.deleted_at IS NULL
		   AND u.id <> $2
		   AND (u.role = 'admin'
		        OR u.client_id = (SELECT client_id FROM projects WHERE id = $1))`,
		projectID, actorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []recipient
	for rows.Next() {
		var r recipient
		if err := rows.Scan(&r.ID, &r.Email); err != nil {
			continue
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

func (n *Notifier) insertRows(ctx context.Context, recipients []recipient, projectID uuid.UUID, typ commonModels.NotificationType, title, body string) {
	now := time.Now()
	for _, r := range recipients {
		_, err := n.db.Exec(ctx,
			`INSERT INTO notifications (id, user_id, project_id, type, title, body, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), r.ID, projectID, typ, title, body, now,
		)
		if err != nil {
			log.Error().Err(err).Str("user_id", r.ID.String()).Msg("failed to insert notification")
		}
	}
}

// sendEmails runs the per-recipient send function detached from the request
func (n *Notifier) sendEmails(recipients []recipient, send func(ctx context.Context, to string) error) {
	if n.email == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, r := range recipients {
			if err := send(ctx, r.Email); err != nil {
				log.Error().Err(err).Str("to", r.Email).Msg("failed to send notification email")
			}
		}
	}()
}

// StageChanged notifies project participants about a lifecycle transition
func (n *Notifier) StageChanged(ctx context.Context, projectID, actorID uuid.UUID, projectName, fromLabel, toLabel string) {
	recipients, err := n.participants(ctx, projectID, actorID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve stage-change recipients")
		return
	}

	n.insertRows(ctx, recipients, projectID, commonModels.NotifyStageChanged,
		projectName+" moved to "+toLabel,
		"Stage changed from "+fromLabel+" to "+toLabel+".")

	n.sendEmails(recipients, func(ctx context.Context, to string) error {
		return n.email.SendStageChanged(ctx, to, projectName, fromLabel, toLabel)
	})
}

// ChecklistCompleted notifies participants when a stage's required checklist
// is fully checked off. In-app only; not worth an email.
func (n *Notifier) ChecklistCompleted(ctx context.Context, projectID, actorID uuid.UUID, projectName, stageLabel string) {
	recipients, err := n.participants(ctx, projectID, actorID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve checklist recipients")
		return
	}

	n.insertRows(ctx, recipients, projectID, commonModels.NotifyChecklistDone,
		stageLabel+" checklist complete on "+projectName,
		"All required "+stageLabel+" items are done. The project is ready to advance.")
}

// TicketUpdated notifies project participants about a ticket status change
func (n *Notifier) TicketUpdated(ctx context.Context, projectID, actorID uuid.UUID, projectName, ticketTitle, status string) {
	recipients, err := n.participants(ctx, projectID, actorID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve ticket-update recipients")
		return
	}

	n.insertRows(ctx, recipients, projectID, commonModels.NotifyTicketUpdated,
		"Ticket updated on "+projectName,
		"\""+ticketTitle+"\" is now "+status+".")

	n.sendEmails(recipients, func(ctx context.Context, to string) error {
		return n.email.SendTicketUpdated(ctx, to, projectName, ticketTitle, status)
	})
}

// NewMessage notifies project participants about a message-board post
func (n *Notifier) NewMessage(ctx context.Context, projectID, actorID uuid.UUID, projectName, authorName, preview string) {
	recipients, err := n.participants(ctx, projectID, actorID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve message recipients")
		return
	}

	n.insertRows(ctx, recipients, projectID, commonModels.NotifyNewMessage,
		"New message on "+projectName,
		authorName+": "+preview)

	n.sendEmails(recipients, func(ctx context.Context, to string) error {
		return n.email.SendNewMessage(ctx, to, projectName, authorName, preview)
	})
}
