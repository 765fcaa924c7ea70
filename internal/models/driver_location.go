package models

import (
	"time"
)

// DriverLocation represents a driver's last known position and status
type DriverLocation struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	DriverID    uint      `json:"driverId" gorm:"not null;uniqueIndex"`
	Latitude    float64   `json:"lat" gorm:"not null"`
	Longitude   float64   `json:"lng" gorm:"not null"`
	Heading     float64   `json:"heading" gorm:"not null;default:0"`
	VehicleType string    `json:"vehicleType" gorm:"not null;default:'auto'"`
	IsOnline    bool      `json:"isOnline" gorm:"not null;default:false"`
	IsAvailable bool      `json:"isAvailable" gorm:"not null;default:false"`
	LastSeen    time.Time `json:"lastSeen" gorm:"not null"`
	Driver      *User     `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (DriverLocation) TableName() string {
	return "driver_locations"
}

// DispatchRequest is the per-driver record created by fan-out: one row for
// every driver a new booking was offered to.
type DispatchRequest struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	RideID      string     `json:"rideId" gorm:"type:uuid;not null;index"`
	DriverID    uint       `json:"driverId" gorm:"not null;index"`
	PickupLat   float64    `json:"pickupLat" gorm:"not null"`
	PickupLng   float64    `json:"pickupLng" gorm:"not null"`
	VehicleType string     `json:"vehicleType" gorm:"not null"`
	BidPrice    int        `json:"bidPrice" gorm:"not null"`
	DistanceKm  float64    `json:"distanceKm"` // driver to pickup at dispatch time
	Status      string     `json:"status" gorm:"not null;default:'pending'"` // pending, accepted, rejected
	SentAt      time.Time  `json:"sentAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// TableName specifies the table name
func (DispatchRequest) TableName() string {
	return "ride_requests"
}

// DispatchRequest status constants
const (
	DispatchStatusPending  = "pending"
	DispatchStatusAccepted = "accepted"
	DispatchStatusRejected = "rejected"
)
