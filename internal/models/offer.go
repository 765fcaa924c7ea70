package models

import (
	"time"
)

// DriverOffer is one driver's priced response to a ride booking.
// The price stays mutable while the rider and driver negotiate; once
// IsConfirmed is set the row is treated as immutable.
type DriverOffer struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	RideID       string    `json:"rideId" gorm:"type:uuid;not null;index"`
	DriverID     uint      `json:"driverId" gorm:"not null;index"`
	OfferedPrice int       `json:"offeredPrice" gorm:"not null"`
	EstimatedEta int       `json:"estimatedEta" gorm:"not null"` // minutes to pickup
	OfferType    string    `json:"offerType" gorm:"not null;default:'bid_accept'"`
	IsOnline     bool      `json:"isOnline" gorm:"not null;default:true"`
	IsConfirmed  bool      `json:"isConfirmed" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Driver       *User     `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (DriverOffer) TableName() string {
	return "driver_ride_responses"
}

// OfferType constants
const (
	OfferTypeBidAccept    = "bid_accept"    // driver accepted the rider's bid as-is
	OfferTypeBestOffer    = "best_offer"    // driver quoted their own price
	OfferTypeCounterOffer = "counter_offer" // price revised by an accepted counter
)

// Savings is the amount the rider keeps relative to their bid. Never negative:
// an offer above the bid simply saves nothing.
func Savings(bid, offeredPrice int) int {
	if offeredPrice >= bid {
		return 0
	}
	return bid - offeredPrice
}
