package models

import (
	"time"

	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
)

// User is the minimal identity row referenced by user-owned records.
// Credential storage and session handling live outside this service.
type User struct {
	ID        uint           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email     string         `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Role      enums.UserRole `gorm:"column:role;not null;default:'customer'" json:"role"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
