package models

import (
	"time"
)

// Shared ride listing rules: riders only see rides leaving far enough out
// and within pickup range.
const (
	SharedRideRadiusKm = 5.0
	SharedRideMinLead  = 5 * time.Minute
)

// SharedRide is a driver-published pooled trip other riders can join for a
// fixed per-seat price. Seats are accounted on the row: available_seats only
// moves through guarded updates.
type SharedRide struct {
	ID                string    `json:"id" gorm:"type:uuid;primaryKey"`
	DriverID          uint      `json:"driverId" gorm:"not null;index"`
	PickupAddress     string    `json:"pickupAddress" gorm:"not null"`
	PickupLat         float64   `json:"pickupLat" gorm:"not null"`
	PickupLng         float64   `json:"pickupLng" gorm:"not null"`
	DropAddress       string    `json:"dropAddress" gorm:"not null"`
	DropLat           float64   `json:"dropLat" gorm:"not null"`
	DropLng           float64   `json:"dropLng" gorm:"not null"`
	VehicleType       string    `json:"vehicleType" gorm:"not null"`
	DistanceKm        float64   `json:"distanceKm" gorm:"not null"`
	EstimatedDuration int       `json:"estimatedDuration"` // minutes
	BasePrice         int       `json:"basePrice" gorm:"not null"` // per seat
	TotalSeats        int       `json:"totalSeats" gorm:"not null"`
	AvailableSeats    int       `json:"availableSeats" gorm:"not null"`
	DepartureTime     time.Time `json:"departureTime" gorm:"not null;index"`
	Status            string    `json:"status" gorm:"not null;default:'open'"` // open, full, departed, cancelled
	CreatedAt         time.Time `json:"createdAt"`
	Driver            *User     `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (SharedRide) TableName() string {
	return "shared_rides"
}

// RideParticipant is one rider's seat booking on a shared ride. The driver
// confirms or rejects each request; rejected requests give their seats back.
type RideParticipant struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	RideID      string     `json:"rideId" gorm:"type:uuid;not null;index"`
	UserID      uint       `json:"userId" gorm:"not null;index"`
	SeatsBooked int        `json:"seatsBooked" gorm:"not null;default:1"`
	FinalPrice  int        `json:"finalPrice" gorm:"not null"`
	Status      string     `json:"status" gorm:"not null;default:'pending'"` // pending, confirmed, rejected
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	User        *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name
func (RideParticipant) TableName() string {
	return "ride_participants"
}

// SharedRide status constants
const (
	SharedStatusOpen      = "open"
	SharedStatusFull      = "full"
	SharedStatusDeparted  = "departed"
	SharedStatusCancelled = "cancelled"
)

// RideParticipant status constants
const (
	ParticipantStatusPending   = "pending"
	ParticipantStatusConfirmed = "confirmed"
	ParticipantStatusRejected  = "rejected"
)

// FilledSeats is how many seats are taken.
func (r *SharedRide) FilledSeats() int {
	return r.TotalSeats - r.AvailableSeats
}

// JoinableAt reports whether the ride can accept a join request at the given
// time: it must be open, have seats left, and not depart within the minimum
// lead window.
func (r *SharedRide) JoinableAt(now time.Time, seats int) bool {
	if r.Status != SharedStatusOpen {
		return false
	}
	if seats < 1 || r.AvailableSeats < seats {
		return false
	}
	return r.DepartureTime.After(now.Add(SharedRideMinLead))
}
