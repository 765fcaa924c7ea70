package database

import (
	"github.com/bidzi/bidzi-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.RideBooking{},
		&models.DriverOffer{},
		&models.CounterOffer{},
		&models.DriverLocation{},
		&models.DispatchRequest{},
		&models.Notification{},
		&models.ScheduledRideBooking{},
		&models.SharedRide{},
		&models.RideParticipant{},
	)
	if err != nil {
		return err
	}

	// Constraints gorm struct tags cannot express. These back the negotiation
	// invariants so that no client-side check is the only line of defense.
	constraints := []string{
		// At most one pending counter per (ride, driver, side) at a time.
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_pending_counter
			ON counter_offers (ride_id, driver_id, offered_by)
			WHERE status = 'pending'`,
		// At most one confirmed offer per ride, ever.
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_confirmed_offer
			ON driver_ride_responses (ride_id)
			WHERE is_confirmed`,
		// confirmed_driver_id set exactly when the booking is confirmed.
		`ALTER TABLE ride_bookings DROP CONSTRAINT IF EXISTS ride_bookings_confirmed_check`,
		`ALTER TABLE ride_bookings ADD CONSTRAINT ride_bookings_confirmed_check
			CHECK ((status = 'confirmed') = (confirmed_driver_id IS NOT NULL))`,
		// One live join request per (ride, rider); a rejected request may be retried.
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_participant
			ON ride_participants (ride_id, user_id)
			WHERE status <> 'rejected'`,
		// Seat accounting can never go negative or above capacity.
		`ALTER TABLE shared_rides DROP CONSTRAINT IF EXISTS shared_rides_seats_check`,
		`ALTER TABLE shared_rides ADD CONSTRAINT shared_rides_seats_check
			CHECK (available_seats >= 0 AND available_seats <= total_seats)`,
		`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_user_type_check`,
		`ALTER TABLE users ADD CONSTRAINT users_user_type_check
			CHECK (user_type IN ('rider', 'driver'))`,
	}

	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
