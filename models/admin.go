package models

import (
	"time"
)

// Admin signs in with passkeys. ID is a UUID string and doubles as the
// WebAuthn user handle.
type Admin struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Email       string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	DisplayName string `gorm:"size:255;not null" json:"display_name"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"login_count"`
	LastLoginIP string     `gorm:"size:45" json:"-"`
	LastLoginUA string     `gorm:"size:255" json:"-"`

	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Credentials []Credential `gorm:"foreignKey:AdminID" json:"-"`
}

func (Admin) TableName() string { return "admins" }

// Credential is one registered passkey. CredentialID, PublicKey and AAGUID
// are stored as bytea.
type Credential struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AdminID         string    `gorm:"type:uuid;index" json:"admin_id"`
	CredentialID    []byte    `gorm:"uniqueIndex" json:"-"`
	PublicKey       []byte    `json:"-"`
	AttestationType string    `gorm:"size:64" json:"attestation_type"`
	AAGUID          []byte    `gorm:"type:bytea" json:"-"`
	SignCount       uint32    `json:"sign_count"`
	CloneWarning    bool      `json:"clone_warning"`
	BackupEligible  bool      `json:"backup_eligible"`
	BackupState     bool      `json:"backup_state"`
	TransportsJSON  string    `gorm:"type:text" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func (Credential) TableName() string { return "credentials" }
