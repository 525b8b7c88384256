package vton

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nikhilmehra04/stylehub-backend/pkg/config"
	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"github.com/nikhilmehra04/stylehub-backend/pkg/lightx"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
	"github.com/nikhilmehra04/stylehub-backend/pkg/storage"
)

const (
	uploadPrefix     = "vton"
	imageContentType = "image/jpeg"
)

// Provider is the try-on generation backend.
type Provider interface {
	CreateUploadSlot(ctx context.Context, size int64, contentType string) (*lightx.UploadSlot, error)
	UploadImage(ctx context.Context, uploadURL string, image []byte, contentType string) error
	SubmitTryOn(ctx context.Context, personImageURL, outfitImageURL string, segmentation enums.SegmentationType) (*lightx.TryOnSubmission, error)
	OrderStatus(ctx context.Context, orderID string) (*lightx.OrderState, error)
}

// ObjectStore holds user-uploaded portraits.
type ObjectStore interface {
	PresignUpload(ctx context.Context, fileName, prefix string) (*storage.UploadTicket, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// GenerateResult is the immediate acknowledgement of a queued generation;
// the job resolves later through the background poller.
type GenerateResult struct {
	JobID              uint             `json:"vton_id"`
	OrderID            string           `json:"order_id"`
	Status             enums.VtonStatus `json:"status"`
	MaxRetries         int              `json:"max_retries"`
	AvgResponseTimeSec int              `json:"avg_response_time_sec"`
}

// Service exposes the try-on pipeline: portrait management, generation,
// and job status reads.
type Service interface {
	CreateUploadTicket(ctx context.Context, userID uint, fileName string) (*storage.UploadTicket, error)
	SaveUserImage(ctx context.Context, userID uint, imageURL, s3Key string) (*models.UserImage, error)
	ListUserImages(ctx context.Context, userID uint) ([]models.UserImage, error)
	DeleteUserImage(ctx context.Context, userID, imageID uint) error
	Generate(ctx context.Context, userID, userImageID, productID uint, segmentation enums.SegmentationType) (*GenerateResult, error)
	Status(ctx context.Context, userID, jobID uint) (*models.VtonJob, error)
	History(ctx context.Context, userID uint) ([]HistoryEntry, error)
	Wait()
}

type service struct {
	repo     Repository
	provider Provider
	store    ObjectStore
	fetcher  ImageFetcher
	log      *logger.Logger

	pollInterval time.Duration
	maxAttempts  int
	pollers      sync.WaitGroup
}

// NewService wires the try-on service.
func NewService(repo Repository, provider Provider, store ObjectStore, fetcher ImageFetcher, cfg config.VtonConfig, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vton: repository is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("vton: provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vton: object store is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("vton: image fetcher is required")
	}
	if log == nil {
		return nil, fmt.Errorf("vton: logger is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 20
	}
	return &service{
		repo:         repo,
		provider:     provider,
		store:        store,
		fetcher:      fetcher,
		log:          log,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
	}, nil
}

func (s *service) CreateUploadTicket(ctx context.Context, userID uint, fileName string) (*storage.UploadTicket, error) {
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	ticket, err := s.store.PresignUpload(ctx, fileName, uploadPrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign portrait upload")
	}
	return ticket, nil
}

func (s *service) SaveUserImage(ctx context.Context, userID uint, imageURL, s3Key string) (*models.UserImage, error) {
	if imageURL == "" || s3Key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image url and s3 key are required")
	}
	image := &models.UserImage{UserID: userID, ImageURL: imageURL, S3Key: s3Key}
	if err := s.repo.SaveUserImage(ctx, image); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist user image")
	}
	return image, nil
}

func (s *service) ListUserImages(ctx context.Context, userID uint) ([]models.UserImage, error) {
	images, err := s.repo.ListUserImages(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user images")
	}
	return images, nil
}

func (s *service) DeleteUserImage(ctx context.Context, userID, imageID uint) error {
	image, err := s.repo.FindUserImage(ctx, userID, imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user image")
	}

	affected, err := s.repo.DeleteUserImage(ctx, userID, imageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user image")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user image not found")
	}

	// The row is gone either way; losing the orphaned object is tolerable.
	if err := s.store.DeleteObject(ctx, image.S3Key); err != nil {
		s.log.Warn(s.log.WithField(ctx, "s3_key", image.S3Key), "failed to delete portrait object")
	}
	return nil
}

// Generate stages both images on the provider, queues the try-on, records
// the job as processing, and hands the order id to a detached poller. The
// caller gets the acknowledgement immediately.
func (s *service) Generate(ctx context.Context, userID, userImageID, productID uint, segmentation enums.SegmentationType) (*GenerateResult, error) {
	if !segmentation.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid segmentation type %d", int(segmentation)))
	}

	image, err := s.repo.FindUserImage(ctx, userID, userImageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user image not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user image")
	}

	media, err := s.repo.FindPrimaryProductMedia(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product has no primary image")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product media")
	}

	portraitURL, err := s.store.PresignDownload(ctx, image.S3Key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign portrait download")
	}

	personImageURL, err := s.stageImage(ctx, portraitURL)
	if err != nil {
		return nil, err
	}
	outfitImageURL, err := s.stageImage(ctx, media.URL)
	if err != nil {
		return nil, err
	}

	submission, err := s.provider.SubmitTryOn(ctx, personImageURL, outfitImageURL, segmentation)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit try-on")
	}

	job := &models.VtonJob{
		UserID:           userID,
		UserImageID:      userImageID,
		ProductID:        productID,
		ProviderOrderID:  submission.OrderID,
		SegmentationType: segmentation,
		Status:           enums.VtonStatusProcessing,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist try-on job")
	}

	// The poller outlives the request; detach it from request cancellation.
	pollCtx := s.log.WithVtonJobID(context.WithoutCancel(ctx), job.ID)
	s.pollers.Add(1)
	go func() {
		defer s.pollers.Done()
		s.pollJob(pollCtx, job.ID, submission.OrderID)
	}()

	s.log.Info(s.log.WithVtonJobID(ctx, job.ID), "try-on job queued")
	return &GenerateResult{
		JobID:              job.ID,
		OrderID:            submission.OrderID,
		Status:             enums.VtonStatusProcessing,
		MaxRetries:         submission.MaxRetriesAllowed,
		AvgResponseTimeSec: submission.AvgResponseTimeSec,
	}, nil
}

// stageImage fetches image bytes from sourceURL and re-uploads them to the
// provider's storage, returning the provider-hosted URL.
func (s *service) stageImage(ctx context.Context, sourceURL string) (string, error) {
	raw, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch image bytes")
	}
	if len(raw) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "image source returned no bytes")
	}

	slot, err := s.provider.CreateUploadSlot(ctx, int64(len(raw)), imageContentType)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider upload slot")
	}
	if err := s.provider.UploadImage(ctx, slot.UploadURL, raw, imageContentType); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image to provider")
	}
	return slot.ImageURL, nil
}

func (s *service) Status(ctx context.Context, userID, jobID uint) (*models.VtonJob, error) {
	job, err := s.repo.FindJobForUser(ctx, userID, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "try-on job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load try-on job")
	}
	return job, nil
}

func (s *service) History(ctx context.Context, userID uint) ([]HistoryEntry, error) {
	entries, err := s.repo.ListHistory(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load try-on history")
	}
	return entries, nil
}

// Wait blocks until all detached pollers have finished.
func (s *service) Wait() {
	s.pollers.Wait()
}
