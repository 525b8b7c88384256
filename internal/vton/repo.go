package vton

import (
	"context"
	"time"

	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	"gorm.io/gorm"
)

// HistoryEntry is one row of the try-on history view, joined with product
// and source-image context.
type HistoryEntry struct {
	ID                uint             `gorm:"column:id" json:"id"`
	ProductID         uint             `gorm:"column:product_id" json:"product_id"`
	ProductName       string           `gorm:"column:product_name" json:"product_name"`
	ProductImageURL   string           `gorm:"column:product_image_url" json:"product_image_url"`
	UserImageURL      string           `gorm:"column:user_image_url" json:"user_image_url"`
	GeneratedImageURL string           `gorm:"column:generated_image_url" json:"generated_image_url"`
	Status            enums.VtonStatus `gorm:"column:status" json:"status"`
	CreatedAt         time.Time        `gorm:"column:created_at" json:"created_at"`
}

// Repository exposes try-on persistence: user images and generation jobs.
type Repository interface {
	SaveUserImage(ctx context.Context, image *models.UserImage) error
	FindUserImage(ctx context.Context, userID, imageID uint) (*models.UserImage, error)
	ListUserImages(ctx context.Context, userID uint) ([]models.UserImage, error)
	DeleteUserImage(ctx context.Context, userID, imageID uint) (int64, error)
	FindPrimaryProductMedia(ctx context.Context, productID uint) (*models.ProductMedia, error)
	CreateJob(ctx context.Context, job *models.VtonJob) error
	FindJobForUser(ctx context.Context, userID, jobID uint) (*models.VtonJob, error)
	CompleteJob(ctx context.Context, jobID uint, outputURL string) error
	FailJob(ctx context.Context, jobID uint) error
	ListHistory(ctx context.Context, userID uint) ([]HistoryEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a try-on repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveUserImage(ctx context.Context, image *models.UserImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *repository) FindUserImage(ctx context.Context, userID, imageID uint) (*models.UserImage, error) {
	var image models.UserImage
	err := r.db.WithContext(ctx).
		First(&image, "id = ? AND user_id = ?", imageID, userID).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *repository) ListUserImages(ctx context.Context, userID uint) ([]models.UserImage, error) {
	var images []models.UserImage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (r *repository) DeleteUserImage(ctx context.Context, userID, imageID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", imageID, userID).
		Delete(&models.UserImage{})
	return res.RowsAffected, res.Error
}

func (r *repository) FindPrimaryProductMedia(ctx context.Context, productID uint) (*models.ProductMedia, error) {
	var media models.ProductMedia
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_primary = ?", productID, true).
		First(&media).Error
	if err != nil {
		return nil, err
	}
	return &media, nil
}

func (r *repository) CreateJob(ctx context.Context, job *models.VtonJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repository) FindJobForUser(ctx context.Context, userID, jobID uint) (*models.VtonJob, error) {
	var job models.VtonJob
	err := r.db.WithContext(ctx).
		First(&job, "id = ? AND user_id = ?", jobID, userID).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CompleteJob resolves a processing job with its output. The status guard
// keeps a late poller from overwriting an already-resolved job.
func (r *repository) CompleteJob(ctx context.Context, jobID uint, outputURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.VtonJob{}).
		Where("id = ? AND status = ?", jobID, enums.VtonStatusProcessing).
		Updates(map[string]any{
			"generated_image_url": outputURL,
			"status":              enums.VtonStatusCompleted,
		}).Error
}

func (r *repository) FailJob(ctx context.Context, jobID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.VtonJob{}).
		Where("id = ? AND status = ?", jobID, enums.VtonStatusProcessing).
		Update("status", enums.VtonStatusFailed).Error
}

func (r *repository) ListHistory(ctx context.Context, userID uint) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := r.db.WithContext(ctx).
		Table("vton_jobs AS vj").
		Select(`vj.id, vj.product_id, vj.generated_image_url, vj.status, vj.created_at,
			p.name AS product_name, COALESCE(pm.url, '') AS product_image_url, ui.image_url AS user_image_url`).
		Joins("JOIN products p ON p.id = vj.product_id").
		Joins("JOIN user_images ui ON ui.id = vj.user_image_id").
		Joins("LEFT JOIN product_media pm ON pm.product_id = p.id AND pm.is_primary = ?", true).
		Where("vj.user_id = ?", userID).
		Order("vj.created_at DESC").
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
