package models

import "time"

// UserAddress is a shipping destination owned by exactly one user.
type UserAddress struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Line1     string    `gorm:"column:line1;not null" json:"line1"`
	City      string    `gorm:"column:city;not null" json:"city"`
	State     string    `gorm:"column:state;not null" json:"state"`
	Country   string    `gorm:"column:country;not null" json:"country"`
	ZipCode   string    `gorm:"column:zip_code;not null" json:"zip_code"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
