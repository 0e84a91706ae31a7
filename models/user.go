package models

import (
	"strings"
	"time"
)

// User is an employee who can borrow tools. Email and EmployeeID are nil when
// not supplied so the unique constraints only apply to real values.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FirstName  string    `gorm:"size:100;not null" json:"first_name"`
	LastName   string    `gorm:"size:100;not null" json:"last_name"`
	Email      *string   `gorm:"size:255;uniqueIndex:users_email_key" json:"email,omitempty"`
	EmployeeID *string   `gorm:"size:50;uniqueIndex:users_employee_id_key" json:"employee_id,omitempty"`
	Department string    `gorm:"size:100" json:"department"`
	Phone      string    `gorm:"size:30" json:"phone"`
	Position   string    `gorm:"size:100" json:"position"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// EmployeeIDValue returns the employee id or "".
func (u *User) EmployeeIDValue() string {
	if u.EmployeeID == nil {
		return ""
	}
	return *u.EmployeeID
}

// OptionalString turns a trimmed empty string into nil.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
