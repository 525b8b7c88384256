package addresses

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"gorm.io/gorm"
)

// Input carries the writable address fields.
type Input struct {
	Line1   string `json:"line1" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
	ZipCode string `json:"zip_code" validate:"required"`
}

// Service manages a user's shipping addresses.
type Service interface {
	List(ctx context.Context, userID uint) ([]models.UserAddress, error)
	Create(ctx context.Context, userID uint, input Input) (*models.UserAddress, error)
	Update(ctx context.Context, userID, addressID uint, input Input) (*models.UserAddress, error)
	Delete(ctx context.Context, userID, addressID uint) error
}

type service struct {
	db *gorm.DB
}

// NewService wires the address service.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("addresses: db is required")
	}
	return &service{db: db}, nil
}

func (s *service) List(ctx context.Context, userID uint) ([]models.UserAddress, error) {
	var list []models.UserAddress
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return list, nil
}

func (s *service) Create(ctx context.Context, userID uint, input Input) (*models.UserAddress, error) {
	address := &models.UserAddress{
		UserID:  userID,
		Line1:   input.Line1,
		City:    input.City,
		State:   input.State,
		Country: input.Country,
		ZipCode: input.ZipCode,
	}
	if err := s.db.WithContext(ctx).Create(address).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist address")
	}
	return address, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uint, input Input) (*models.UserAddress, error) {
	address, err := s.find(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	address.Line1 = input.Line1
	address.City = input.City
	address.State = input.State
	address.Country = input.Country
	address.ZipCode = input.ZipCode
	if err := s.db.WithContext(ctx).Save(address).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist address")
	}
	return address, nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		Delete(&models.UserAddress{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete address")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

func (s *service) find(ctx context.Context, userID, addressID uint) (*models.UserAddress, error) {
	var address models.UserAddress
	err := s.db.WithContext(ctx).
		First(&address, "id = ? AND user_id = ?", addressID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return &address, nil
}
