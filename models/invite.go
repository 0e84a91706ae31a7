package models

import "time"

// Invite is a one-time token that lets a new admin register a passkey.
type Invite struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Email     string     `gorm:"index;size:255;not null" json:"email"`
	Token     string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedBy string     `gorm:"size:255" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Invite) TableName() string { return "invites" }

// Usable reports whether the invite can still be redeemed at now.
func (i *Invite) Usable(now time.Time) bool {
	return i.UsedAt == nil && now.Before(i.ExpiresAt)
}
