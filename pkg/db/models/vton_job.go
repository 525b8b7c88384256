package models

import (
	"time"

	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
)

// VtonJob tracks one try-on generation. Rows are created in processing
// status and mutated exactly once by the background poller to a terminal
// state: completed with an output URL, or failed.
type VtonJob struct {
	ID                uint                   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID            uint                   `gorm:"column:user_id;not null;index" json:"user_id"`
	UserImageID       uint                   `gorm:"column:user_image_id;not null" json:"user_image_id"`
	ProductID         uint                   `gorm:"column:product_id;not null" json:"product_id"`
	GeneratedImageURL string                 `gorm:"column:generated_image_url;not null;default:''" json:"generated_image_url"`
	ProviderOrderID   string                 `gorm:"column:provider_order_id;not null" json:"provider_order_id"`
	SegmentationType  enums.SegmentationType `gorm:"column:segmentation_type;not null;default:0" json:"segmentation_type"`
	Status            enums.VtonStatus       `gorm:"column:status;not null;default:'processing'" json:"status"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
