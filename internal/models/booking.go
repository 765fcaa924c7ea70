package models

import (
	"time"
)

// RideBooking is a rider's trip ask: the bid other drivers respond to.
type RideBooking struct {
	ID                string     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID            uint       `json:"userId" gorm:"not null;index"`
	ConfirmedDriverID *uint      `json:"confirmedDriverId,omitempty" gorm:"null"`
	PickupAddress     string     `json:"pickupAddress" gorm:"not null"`
	PickupLat         float64    `json:"pickupLat" gorm:"not null"`
	PickupLng         float64    `json:"pickupLng" gorm:"not null"`
	DropAddress       string     `json:"dropAddress" gorm:"not null"`
	DropLat           float64    `json:"dropLat" gorm:"not null"`
	DropLng           float64    `json:"dropLng" gorm:"not null"`
	VehicleType       string     `json:"vehicleType" gorm:"not null"` // bike, auto, car
	DistanceKm        float64    `json:"distanceKm" gorm:"not null"`
	Bid               int        `json:"bid" gorm:"not null"` // whole currency units
	FinalPrice        *int       `json:"finalPrice,omitempty"` // set on confirmation
	Note              string     `json:"note,omitempty"`
	Passengers        int        `json:"passengers" gorm:"not null;default:1"`
	Luggage           int        `json:"luggage" gorm:"not null;default:0"`
	Status            string     `json:"status" gorm:"not null;default:'pending'"` // pending, confirmed, cancelled
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	User              *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	ConfirmedDriver   *User      `json:"confirmedDriver,omitempty" gorm:"foreignKey:ConfirmedDriverID"`
}

// TableName specifies the table name
func (RideBooking) TableName() string {
	return "ride_bookings"
}

// BookingStatus constants
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// VehicleType constants
const (
	VehicleTypeBike = "bike"
	VehicleTypeAuto = "auto"
	VehicleTypeCar  = "car"
)

// ValidVehicleType reports whether t is one of the supported classes.
func ValidVehicleType(t string) bool {
	switch t {
	case VehicleTypeBike, VehicleTypeAuto, VehicleTypeCar:
		return true
	}
	return false
}
