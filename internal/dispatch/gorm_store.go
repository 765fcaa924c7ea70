package dispatch

import (
	"context"

	"github.com/bidzi/bidzi-backend/internal/models"
	"gorm.io/gorm"
)

// GormStore is the Postgres-backed dispatch Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) OnlineDrivers(ctx context.Context, vehicleType string) ([]models.DriverLocation, error) {
	var locations []models.DriverLocation
	err := s.db.WithContext(ctx).
		Where("vehicle_type = ? AND is_online = ? AND is_available = ?", vehicleType, true, true).
		Find(&locations).Error
	if err != nil {
		return nil, err
	}
	return locations, nil
}

func (s *GormStore) CreateDispatchRequest(ctx context.Context, req *models.DispatchRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}
