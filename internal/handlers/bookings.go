package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/bidzi/bidzi-backend/internal/dispatch"
	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/internal/negotiation"
	"github.com/bidzi/bidzi-backend/internal/observability"
	"github.com/bidzi/bidzi-backend/internal/services"
	"github.com/bidzi/bidzi-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateBookingInput struct {
	PickupAddress string  `json:"pickupAddress" binding:"required"`
	PickupLat     float64 `json:"pickupLat" binding:"required"`
	PickupLng     float64 `json:"pickupLng" binding:"required"`
	DropAddress   string  `json:"dropAddress" binding:"required"`
	DropLat       float64 `json:"dropLat" binding:"required"`
	DropLng       float64 `json:"dropLng" binding:"required"`
	VehicleType   string  `json:"vehicleType" binding:"required"`
	Bid           int     `json:"bid" binding:"required,gt=0"`
	Note          string  `json:"note"`
	Passengers    int     `json:"passengers"`
	Luggage       int     `json:"luggage"`
}

// CreateBooking creates a ride booking and fans it out to nearby drivers.
// Fan-out runs synchronously under a 45 s deadline; when it runs out the
// booking still stands and the response degrades to a "taking longer" note.
func CreateBooking(db *gorm.DB, dispatcher *dispatch.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input CreateBookingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if !models.ValidVehicleType(input.VehicleType) {
			c.JSON(400, gin.H{"error": "Vehicle type must be bike, auto or car"})
			return
		}
		if !utils.ValidCoordinates(input.PickupLat, input.PickupLng) ||
			!utils.ValidCoordinates(input.DropLat, input.DropLng) {
			c.JSON(400, gin.H{"error": "Invalid coordinates"})
			return
		}

		passengers := input.Passengers
		if passengers < 1 {
			passengers = 1
		}

		booking := models.RideBooking{
			ID:            uuid.NewString(),
			UserID:        userId,
			PickupAddress: input.PickupAddress,
			PickupLat:     input.PickupLat,
			PickupLng:     input.PickupLng,
			DropAddress:   input.DropAddress,
			DropLat:       input.DropLat,
			DropLng:       input.DropLng,
			VehicleType:   input.VehicleType,
			DistanceKm:    utils.HaversineDistance(input.PickupLat, input.PickupLng, input.DropLat, input.DropLng),
			Bid:           input.Bid,
			Note:          input.Note,
			Passengers:    passengers,
			Luggage:       input.Luggage,
			Status:        models.BookingStatusPending,
		}

		if err := db.Create(&booking).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create booking"})
			return
		}
		observability.BookingsCreated.Inc()

		ctx, cancel := context.WithTimeout(c.Request.Context(), dispatch.Timeout)
		defer cancel()
		contacted, err := dispatcher.FanOut(ctx, &booking)
		if err != nil || ctx.Err() != nil {
			// The booking stands either way; drivers can still find it later.
			log.Printf("fan-out for ride %s: contacted=%d err=%v ctx=%v", booking.ID, contacted, err, ctx.Err())
			c.JSON(201, gin.H{
				"booking": booking,
				"message": "Finding drivers is taking longer than usual",
			})
			return
		}

		c.JSON(201, gin.H{
			"booking":      booking,
			"driversAsked": contacted,
		})
	}
}

// GetBooking returns one booking with its offers, each decorated with the
// rider's savings against their bid.
func GetBooking(db *gorm.DB, engine *negotiation.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rideId := c.Param("id")
		userId := c.GetUint("userId")

		var booking models.RideBooking
		if err := db.Preload("ConfirmedDriver").Where("id = ?", rideId).First(&booking).Error; err != nil {
			c.JSON(404, gin.H{"error": "Booking not found"})
			return
		}
		if booking.UserID != userId {
			c.JSON(403, gin.H{"error": "Unauthorized"})
			return
		}

		var offers []models.DriverOffer
		db.Preload("Driver").Where("ride_id = ?", rideId).
			Order("offered_price ASC").Find(&offers)

		c.JSON(200, gin.H{
			"booking": booking,
			"offers":  decorateOffers(engine, &booking, offers),
		})
	}
}

// ListMyBookings returns the rider's bookings, newest first
func ListMyBookings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var bookings []models.RideBooking
		if err := db.Where("user_id = ?", userId).
			Order("created_at DESC").Limit(50).Find(&bookings).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch bookings"})
			return
		}

		c.JSON(200, bookings)
	}
}

// CancelBooking withdraws a pending booking
func CancelBooking(engine *negotiation.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rideId := c.Param("id")
		userId := c.GetUint("userId")

		booking, err := engine.CancelRide(c.Request.Context(), rideId, userId)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		engine.Release(rideId)

		if err := services.PublishRideUpdate(c.Request.Context(), rideId, services.EventRideCancelled, map[string]interface{}{
			"userId": userId,
		}); err != nil {
			log.Printf("publish cancel for ride %s: %v", rideId, err)
		}

		c.JSON(200, booking)
	}
}

// AcceptOffer confirms one driver's offer for the ride
func AcceptOffer(engine *negotiation.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rideId := c.Param("id")
		userId := c.GetUint("userId")

		var input struct {
			DriverID uint `json:"driverId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		booking, err := engine.AcceptOffer(c.Request.Context(), rideId, userId, input.DriverID)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		engine.Release(rideId)

		if err := services.PublishRideUpdate(c.Request.Context(), rideId, services.EventRideConfirmed, map[string]interface{}{
			"driverId": input.DriverID,
		}); err != nil {
			log.Printf("publish confirm for ride %s: %v", rideId, err)
		}

		savings := 0
		if booking.FinalPrice != nil {
			savings = models.Savings(booking.Bid, *booking.FinalPrice)
		}
		c.JSON(200, gin.H{
			"booking": booking,
			"savings": savings,
			"message": "Ride confirmed",
		})
	}
}

// ListOffers returns current offers for a booking with savings and any
// active counter per driver.
func ListOffers(db *gorm.DB, engine *negotiation.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rideId := c.Param("id")
		userId := c.GetUint("userId")

		var booking models.RideBooking
		if err := db.Where("id = ?", rideId).First(&booking).Error; err != nil {
			c.JSON(404, gin.H{"error": "Booking not found"})
			return
		}
		if booking.UserID != userId {
			c.JSON(403, gin.H{"error": "Unauthorized"})
			return
		}

		var offers []models.DriverOffer
		if err := db.Preload("Driver").Where("ride_id = ?", rideId).
			Order("offered_price ASC").Find(&offers).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch offers"})
			return
		}

		c.JSON(200, decorateOffers(engine, &booking, offers))
	}
}

// SubmitCounterOffer sends the rider's counter price to one driver
func SubmitCounterOffer(engine *negotiation.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rideId := c.Param("id")
		userId := c.GetUint("userId")

		var input struct {
			DriverID     uint `json:"driverId" binding:"required"`
			CounterPrice int  `json:"counterPrice" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		counter, err := engine.SubmitCounterOffer(c.Request.Context(), rideId, input.DriverID, userId, input.CounterPrice)
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(201, counter)
	}
}

func decorateOffers(engine *negotiation.Engine, booking *models.RideBooking, offers []models.DriverOffer) []gin.H {
	out := make([]gin.H, 0, len(offers))
	for i := range offers {
		offer := offers[i]
		entry := gin.H{
			"offer":   offer,
			"savings": models.Savings(booking.Bid, offer.OfferedPrice),
		}
		if counter := engine.ActiveCounter(booking.ID, offer.DriverID); counter != nil {
			entry["activeCounter"] = counter
		}
		out = append(out, entry)
	}
	return out
}

func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, negotiation.ErrNotFound):
		c.JSON(404, gin.H{"error": "Not found"})
	case negotiation.IsValidation(err):
		c.JSON(400, gin.H{"error": err.Error()})
	case negotiation.IsConflict(err):
		c.JSON(409, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": "Something went wrong"})
	}
}
