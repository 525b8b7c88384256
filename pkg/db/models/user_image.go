package models

import "time"

// UserImage is a stored portrait used as the source image for try-on jobs.
// The bytes live in the private bucket under S3Key; ImageURL is the public
// form handed back to clients.
type UserImage struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	ImageURL  string    `gorm:"column:image_url;not null" json:"image_url"`
	S3Key     string    `gorm:"column:s3_key;not null" json:"s3_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
