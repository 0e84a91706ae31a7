package models

import "time"

// Audit actions.
const (
	AuditUserAutoRegistered = "user.auto_registered"
	AuditUserCreated        = "user.created"
	AuditUserUpdated        = "user.updated"
	AuditUserToggled        = "user.toggled"
	AuditUserDeleted        = "user.deleted"
	AuditToolCreated        = "tool.created"
	AuditToolUpdated        = "tool.updated"
	AuditToolDeleted        = "tool.deleted"
	AuditRequestReturned    = "request.admin_returned"
	AuditAdminDeleted       = "admin.deleted"
	AuditInviteCreated      = "invite.created"
)

// AuditLog records who changed what. ActorID is empty for kiosk actions.
type AuditLog struct {
	ID         string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID    *string   `gorm:"type:uuid" json:"actor_id,omitempty"`
	ActorEmail string    `gorm:"size:255" json:"actor_email"`
	Action     string    `gorm:"size:64;not null" json:"action"`
	TargetType string    `gorm:"size:32" json:"target_type"`
	TargetID   string    `gorm:"size:64" json:"target_id"`
	Detail     string    `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
