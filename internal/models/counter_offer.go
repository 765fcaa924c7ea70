package models

import (
	"time"
)

// CounterOffer is a proposed price revision against one driver's offer.
// It reaches exactly one terminal state: accepted, rejected, or expired.
type CounterOffer struct {
	ID           string     `json:"id" gorm:"type:uuid;primaryKey"`
	RideID       string     `json:"rideId" gorm:"type:uuid;not null;index"`
	DriverID     uint       `json:"driverId" gorm:"not null;index"`
	UserID       uint       `json:"userId" gorm:"not null"`
	CounterPrice int        `json:"counterPrice" gorm:"not null"`
	OfferedBy    string     `json:"offeredBy" gorm:"not null"` // user, driver
	Status       string     `json:"status" gorm:"not null;default:'pending'"`
	Message      string     `json:"message,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	RespondedAt  *time.Time `json:"respondedAt,omitempty"`
}

// TableName specifies the table name
func (CounterOffer) TableName() string {
	return "counter_offers"
}

// CounterStatus constants
const (
	CounterStatusPending  = "pending"
	CounterStatusAccepted = "accepted"
	CounterStatusRejected = "rejected"
	CounterStatusExpired  = "expired"
)

// OfferedBy constants
const (
	OfferedByUser   = "user"
	OfferedByDriver = "driver"
)

// Terminal reports whether status is final. Terminal counters never mutate again.
func (c *CounterOffer) Terminal() bool {
	return c.Status != CounterStatusPending
}

// MinCounterPrice is the lowest counter a rider may send against offeredPrice.
// The band is [floor(price/2), price-1].
func MinCounterPrice(offeredPrice int) int {
	return offeredPrice / 2
}
