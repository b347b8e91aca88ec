package models

// UserRole distinguishes delivery-team admins from tenant-side users
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleClient UserRole = "client"
)

// IsValid checks if the role is valid
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleClient:
		return true
	}
	return false
}

// TicketStatus represents the status of a support ticket
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketWaiting    TicketStatus = "waiting_on_client"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// IsValid checks if the ticket status is valid
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketWaiting, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// IsTerminal reports whether the status accepts no further work
func (s TicketStatus) IsTerminal() bool {
	return s == TicketClosed
}

// TicketPriority represents the priority of a support ticket
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// IsValid checks if the priority is valid
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// NotificationType categorizes portal notifications
type NotificationType string

const (
	NotifyStageChanged  NotificationType = "stage_changed"
	NotifyTicketUpdated NotificationType = "ticket_updated"
	NotifyNewMessage    NotificationType = "new_message"
	NotifyChecklistDone NotificationType = "checklist_completed"
)

// IsValid checks if the notification type is valid
func (n NotificationType) IsValid() bool {
	switch n {
	case NotifyStageChanged, NotifyTicketUpdated, NotifyNewMessage, NotifyChecklistDone:
		return true
	}
	return false
}
