package models

import (
	"time"
)

// ScheduledRideBooking is a ride planned for a future date/time. It skips the
// live negotiation flow; a driver is assigned closer to the scheduled slot.
type ScheduledRideBooking struct {
	ID                 string     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID             uint       `json:"userId" gorm:"not null;index"`
	PickupAddress      string     `json:"pickupAddress" gorm:"not null"`
	PickupLat          float64    `json:"pickupLat" gorm:"not null"`
	PickupLng          float64    `json:"pickupLng" gorm:"not null"`
	DropAddress        string     `json:"dropAddress" gorm:"not null"`
	DropLat            float64    `json:"dropLat" gorm:"not null"`
	DropLng            float64    `json:"dropLng" gorm:"not null"`
	VehicleType        string     `json:"vehicleType" gorm:"not null"`
	DistanceKm         float64    `json:"distanceKm" gorm:"not null"`
	Bid                int        `json:"bid" gorm:"not null"`
	Note               string     `json:"note,omitempty"`
	ScheduledFor       time.Time  `json:"scheduledFor" gorm:"not null;index"`
	Status             string     `json:"status" gorm:"not null;default:'scheduled'"` // scheduled, confirmed, cancelled
	ConfirmedDriverID  *uint      `json:"confirmedDriverId,omitempty"`
	DriverAssignedAt   *time.Time `json:"driverAssignedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// TableName specifies the table name
func (ScheduledRideBooking) TableName() string {
	return "scheduled_ride_bookings"
}

const (
	ScheduledStatusScheduled = "scheduled"
	ScheduledStatusConfirmed = "confirmed"
	ScheduledStatusCancelled = "cancelled"
)
