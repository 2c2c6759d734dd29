package models

import (
	"time"
)

// User represents an employee eligible for incentive plans.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Email     string    `gorm:"uniqueIndex;size:255" json:"email"`
	RoleKey   string    `gorm:"size:100;index" json:"role_key"`
	VentureID uint      `gorm:"not null;index" json:"venture_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}
