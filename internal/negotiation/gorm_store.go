package negotiation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
	"gorm.io/gorm"
)

// GormStore is the Postgres-backed Store. Terminal transitions go through
// guarded UPDATEs so a row can only leave "pending" once, and the partial
// unique indexes created in migrations back the duplicate checks.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetBooking(ctx context.Context, rideID string) (*models.RideBooking, error) {
	var booking models.RideBooking
	if err := s.db.WithContext(ctx).Where("id = ?", rideID).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (s *GormStore) GetOffer(ctx context.Context, rideID string, driverID uint) (*models.DriverOffer, error) {
	var offer models.DriverOffer
	err := s.db.WithContext(ctx).
		Where("ride_id = ? AND driver_id = ?", rideID, driverID).
		First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &offer, nil
}

func (s *GormStore) ListOffers(ctx context.Context, rideID string) ([]models.DriverOffer, error) {
	var offers []models.DriverOffer
	err := s.db.WithContext(ctx).
		Where("ride_id = ?", rideID).
		Order("offered_price ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (s *GormStore) GetCounter(ctx context.Context, counterID string) (*models.CounterOffer, error) {
	var counter models.CounterOffer
	if err := s.db.WithContext(ctx).Where("id = ?", counterID).First(&counter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &counter, nil
}

func (s *GormStore) PendingCounter(ctx context.Context, rideID string, driverID uint, offeredBy string) (*models.CounterOffer, error) {
	var counter models.CounterOffer
	err := s.db.WithContext(ctx).
		Where("ride_id = ? AND driver_id = ? AND offered_by = ? AND status = ?",
			rideID, driverID, offeredBy, models.CounterStatusPending).
		First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

func (s *GormStore) InsertCounter(ctx context.Context, counter *models.CounterOffer) error {
	if err := s.db.WithContext(ctx).Create(counter).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePending
		}
		return err
	}
	return nil
}

func (s *GormStore) ResolveCounter(ctx context.Context, counterID, status string, respondedAt time.Time, applyPrice bool) (bool, error) {
	resolved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CounterOffer{}).
			Where("id = ? AND status = ?", counterID, models.CounterStatusPending).
			Updates(map[string]interface{}{
				"status":       status,
				"responded_at": respondedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already terminal, not an error
		}
		resolved = true

		if !applyPrice {
			return nil
		}

		var counter models.CounterOffer
		if err := tx.Where("id = ?", counterID).First(&counter).Error; err != nil {
			return err
		}
		return tx.Model(&models.DriverOffer{}).
			Where("ride_id = ? AND driver_id = ?", counter.RideID, counter.DriverID).
			Updates(map[string]interface{}{
				"offered_price": counter.CounterPrice,
				"offer_type":    models.OfferTypeCounterOffer,
			}).Error
	})
	if err != nil {
		return false, err
	}
	return resolved, nil
}

func (s *GormStore) PendingCountersBefore(ctx context.Context, cutoff time.Time) ([]models.CounterOffer, error) {
	var counters []models.CounterOffer
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.CounterStatusPending, cutoff).
		Find(&counters).Error
	if err != nil {
		return nil, err
	}
	return counters, nil
}

func (s *GormStore) ConfirmBooking(ctx context.Context, rideID string, driverID uint, finalPrice int) (bool, error) {
	confirmed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RideBooking{}).
			Where("id = ? AND status = ?", rideID, models.BookingStatusPending).
			Updates(map[string]interface{}{
				"status":              models.BookingStatusConfirmed,
				"confirmed_driver_id": driverID,
				"final_price":         finalPrice,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		confirmed = true

		return tx.Model(&models.DriverOffer{}).
			Where("ride_id = ? AND driver_id = ?", rideID, driverID).
			Update("is_confirmed", true).Error
	})
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

func (s *GormStore) CancelBooking(ctx context.Context, rideID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.RideBooking{}).
		Where("id = ? AND status = ?", rideID, models.BookingStatusPending).
		Update("status", models.BookingStatusCancelled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

// isUniqueViolation matches Postgres unique constraint failures without
// binding to a driver-specific error type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}
