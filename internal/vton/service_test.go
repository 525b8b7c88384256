package vton

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nikhilmehra04/stylehub-backend/pkg/config"
	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"github.com/nikhilmehra04/stylehub-backend/pkg/lightx"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
	"github.com/nikhilmehra04/stylehub-backend/pkg/storage"
)

type stubProvider struct {
	createUploadSlot func(ctx context.Context, size int64, contentType string) (*lightx.UploadSlot, error)
	uploadImage      func(ctx context.Context, uploadURL string, image []byte, contentType string) error
	submitTryOn      func(ctx context.Context, personImageURL, outfitImageURL string, segmentation enums.SegmentationType) (*lightx.TryOnSubmission, error)
	orderStatus      func(ctx context.Context, orderID string) (*lightx.OrderState, error)
}

func (s *stubProvider) CreateUploadSlot(ctx context.Context, size int64, contentType string) (*lightx.UploadSlot, error) {
	if s.createUploadSlot == nil {
		return &lightx.UploadSlot{UploadURL: "https://upload.example/slot", ImageURL: "https://img.example/slot"}, nil
	}
	return s.createUploadSlot(ctx, size, contentType)
}

func (s *stubProvider) UploadImage(ctx context.Context, uploadURL string, image []byte, contentType string) error {
	if s.uploadImage == nil {
		return nil
	}
	return s.uploadImage(ctx, uploadURL, image, contentType)
}

func (s *stubProvider) SubmitTryOn(ctx context.Context, personImageURL, outfitImageURL string, segmentation enums.SegmentationType) (*lightx.TryOnSubmission, error) {
	if s.submitTryOn == nil {
		return &lightx.TryOnSubmission{OrderID: "ord_test", Status: lightx.StatusInit, MaxRetriesAllowed: 20, AvgResponseTimeSec: 10}, nil
	}
	return s.submitTryOn(ctx, personImageURL, outfitImageURL, segmentation)
}

func (s *stubProvider) OrderStatus(ctx context.Context, orderID string) (*lightx.OrderState, error) {
	if s.orderStatus == nil {
		return nil, errors.New("unexpected OrderStatus call")
	}
	return s.orderStatus(ctx, orderID)
}

type stubStore struct {
	deletedKeys []string
}

func (s *stubStore) PresignUpload(ctx context.Context, fileName, prefix string) (*storage.UploadTicket, error) {
	return &storage.UploadTicket{
		UploadURL: "https://bucket.example/upload",
		FileURL:   "https://bucket.example/" + prefix + "/" + fileName,
		Key:       prefix + "/" + fileName,
	}, nil
}

func (s *stubStore) PresignDownload(ctx context.Context, key string) (string, error) {
	return "https://bucket.example/signed/" + key, nil
}

func (s *stubStore) DeleteObject(ctx context.Context, key string) error {
	s.deletedKeys = append(s.deletedKeys, key)
	return nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return []byte{0xff, 0xd8, 0xff}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:vton_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(&models.Product{}, &models.ProductMedia{}, &models.UserImage{}, &models.VtonJob{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, provider Provider) (Service, *stubStore) {
	t.Helper()
	store := &stubStore{}
	log := logger.New(logger.Options{ServiceName: "vton-test", Output: io.Discard})
	cfg := config.VtonConfig{PollInterval: time.Millisecond, MaxAttempts: 4}
	svc, err := NewService(NewRepository(db), provider, store, stubFetcher{}, cfg, log)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, store
}

func seedPortrait(t *testing.T, db *gorm.DB, userID uint) uint {
	t.Helper()
	image := models.UserImage{UserID: userID, ImageURL: "https://bucket.example/vton/me.jpg", S3Key: "vton/me.jpg"}
	if err := db.Create(&image).Error; err != nil {
		t.Fatalf("seed portrait: %v", err)
	}
	return image.ID
}

func seedProductWithMedia(t *testing.T, db *gorm.DB) uint {
	t.Helper()
	product := models.Product{Name: "jacket", Price: 80}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	media := models.ProductMedia{ProductID: product.ID, URL: "https://cdn.example/jacket.jpg", IsPrimary: true}
	if err := db.Create(&media).Error; err != nil {
		t.Fatalf("seed media: %v", err)
	}
	return product.ID
}

func loadJob(t *testing.T, db *gorm.DB, jobID uint) models.VtonJob {
	t.Helper()
	var job models.VtonJob
	if err := db.First(&job, "id = ?", jobID).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	return job
}

func TestGenerateQueuesJobAndPollerCompletes(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &stubProvider{
		orderStatus: func(ctx context.Context, orderID string) (*lightx.OrderState, error) {
			return &lightx.OrderState{OrderID: orderID, Status: lightx.StatusActive, Output: "https://out.example/result.jpg"}, nil
		},
	}
	svc, _ := newTestService(t, db, provider)
	ctx := context.Background()

	imageID := seedPortrait(t, db, 1)
	productID := seedProductWithMedia(t, db)

	res, err := svc.Generate(ctx, 1, imageID, productID, enums.SegmentationUpperBody)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Status != enums.VtonStatusProcessing || res.OrderID != "ord_test" {
		t.Fatalf("unexpected ack: %+v", res)
	}

	svc.Wait()
	job := loadJob(t, db, res.JobID)
	if job.Status != enums.VtonStatusCompleted {
		t.Fatalf("job status = %s, want completed", job.Status)
	}
	if job.GeneratedImageURL != "https://out.example/result.jpg" {
		t.Fatalf("output url = %q", job.GeneratedImageURL)
	}
}

func TestGeneratePollerRecordsFailure(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &stubProvider{
		orderStatus: func(ctx context.Context, orderID string) (*lightx.OrderState, error) {
			return &lightx.OrderState{OrderID: orderID, Status: lightx.StatusFailed}, nil
		},
	}
	svc, _ := newTestService(t, db, provider)

	imageID := seedPortrait(t, db, 1)
	productID := seedProductWithMedia(t, db)

	res, err := svc.Generate(context.Background(), 1, imageID, productID, enums.SegmentationFullBody)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	svc.Wait()
	if got := loadJob(t, db, res.JobID).Status; got != enums.VtonStatusFailed {
		t.Fatalf("job status = %s, want failed", got)
	}
}

func TestGeneratePollerTimesOut(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	var calls atomic.Int32
	provider := &stubProvider{
		orderStatus: func(ctx context.Context, orderID string) (*lightx.OrderState, error) {
			calls.Add(1)
			return &lightx.OrderState{OrderID: orderID, Status: lightx.StatusInit}, nil
		},
	}
	svc, _ := newTestService(t, db, provider)

	imageID := seedPortrait(t, db, 1)
	productID := seedProductWithMedia(t, db)

	res, err := svc.Generate(context.Background(), 1, imageID, productID, enums.SegmentationLowerBody)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	svc.Wait()
	if got := loadJob(t, db, res.JobID).Status; got != enums.VtonStatusFailed {
		t.Fatalf("job status = %s, want failed after timeout", got)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("status calls = %d, want 4", got)
	}
}

func TestGeneratePollerRetriesThroughErrors(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	var calls atomic.Int32
	provider := &stubProvider{
		orderStatus: func(ctx context.Context, orderID string) (*lightx.OrderState, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("transient provider blip")
			}
			return &lightx.OrderState{OrderID: orderID, Status: lightx.StatusActive, Output: "https://out.example/ok.jpg"}, nil
		},
	}
	svc, _ := newTestService(t, db, provider)

	imageID := seedPortrait(t, db, 1)
	productID := seedProductWithMedia(t, db)

	res, err := svc.Generate(context.Background(), 1, imageID, productID, enums.SegmentationUpperBody)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	svc.Wait()
	if got := loadJob(t, db, res.JobID).Status; got != enums.VtonStatusCompleted {
		t.Fatalf("job status = %s, want completed despite transient error", got)
	}
}

func TestGenerateValidatesInputs(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db, &stubProvider{})
	ctx := context.Background()
	productID := seedProductWithMedia(t, db)
	imageID := seedPortrait(t, db, 1)

	_, err := svc.Generate(ctx, 1, imageID, productID, enums.SegmentationType(7))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	// Someone else's portrait is invisible.
	_, err = svc.Generate(ctx, 2, imageID, productID, enums.SegmentationUpperBody)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	// Product without a primary image cannot be tried on.
	bare := models.Product{Name: "plain", Price: 10}
	if err := db.Create(&bare).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	_, err = svc.Generate(ctx, 1, imageID, bare.ID, enums.SegmentationUpperBody)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	var jobs int64
	if err := db.Model(&models.VtonJob{}).Count(&jobs).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobs != 0 {
		t.Fatalf("rejected generations persisted %d jobs", jobs)
	}
}

func TestUserImageLifecycle(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, store := newTestService(t, db, &stubProvider{})
	ctx := context.Background()

	ticket, err := svc.CreateUploadTicket(ctx, 1, "me.jpg")
	if err != nil {
		t.Fatalf("upload ticket: %v", err)
	}
	if ticket.UploadURL == "" || ticket.Key == "" {
		t.Fatalf("incomplete ticket: %+v", ticket)
	}

	if _, err := svc.CreateUploadTicket(ctx, 1, ""); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for empty file name")
	}

	image, err := svc.SaveUserImage(ctx, 1, ticket.FileURL, ticket.Key)
	if err != nil {
		t.Fatalf("save image: %v", err)
	}

	images, err := svc.ListUserImages(ctx, 1)
	if err != nil || len(images) != 1 {
		t.Fatalf("list = %d err = %v, want 1", len(images), err)
	}

	if err := svc.DeleteUserImage(ctx, 1, image.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deletedKeys) != 1 || store.deletedKeys[0] != ticket.Key {
		t.Fatalf("object not deleted: %v", store.deletedKeys)
	}
	err = svc.DeleteUserImage(ctx, 1, image.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStatusAndHistoryScopedToUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &stubProvider{
		orderStatus: func(ctx context.Context, orderID string) (*lightx.OrderState, error) {
			return &lightx.OrderState{OrderID: orderID, Status: lightx.StatusActive, Output: "https://out.example/r.jpg"}, nil
		},
	}
	svc, _ := newTestService(t, db, provider)
	ctx := context.Background()

	imageID := seedPortrait(t, db, 1)
	productID := seedProductWithMedia(t, db)

	res, err := svc.Generate(ctx, 1, imageID, productID, enums.SegmentationUpperBody)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	svc.Wait()

	job, err := svc.Status(ctx, 1, res.JobID)
	if err != nil || job.Status != enums.VtonStatusCompleted {
		t.Fatalf("status = %+v err = %v", job, err)
	}
	_, err = svc.Status(ctx, 2, res.JobID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	history, err := svc.History(ctx, 1)
	if err != nil || len(history) != 1 {
		t.Fatalf("history = %d err = %v, want 1", len(history), err)
	}
	entry := history[0]
	if entry.ProductName != "jacket" || entry.GeneratedImageURL != "https://out.example/r.jpg" {
		t.Fatalf("unexpected history entry: %+v", entry)
	}

	other, err := svc.History(ctx, 2)
	if err != nil || len(other) != 0 {
		t.Fatalf("history for other user = %d err = %v, want 0", len(other), err)
	}
}
