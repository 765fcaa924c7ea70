package handlers

import (
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/internal/negotiation"
	"github.com/bidzi/bidzi-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListPendingRequests returns dispatch requests still waiting on this driver,
// skipping rides that have since closed.
func ListPendingRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverId := c.GetUint("userId")

		var requests []models.DispatchRequest
		err := db.Joins("JOIN ride_bookings ON ride_bookings.id = ride_requests.ride_id").
			Where("ride_requests.driver_id = ? AND ride_requests.status = ? AND ride_bookings.status = ?",
				driverId, models.DispatchStatusPending, models.BookingStatusPending).
			Order("ride_requests.sent_at DESC").
			Find(&requests).Error
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch ride requests"})
			return
		}

		c.JSON(200, requests)
	}
}

type RespondInput struct {
	Accept       bool `json:"accept"`
	OfferedPrice int  `json:"offeredPrice"`
}

// RespondToRequest is the driver's answer to a dispatch request. Accepting at
// the rider's bid creates a bid_accept offer; quoting a different price
// creates a best_offer. Rejecting just closes the request.
func RespondToRequest(db *gorm.DB, engine *negotiation.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverId := c.GetUint("userId")
		requestId := c.Param("id")

		var input RespondInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var request models.DispatchRequest
		if err := db.Where("id = ? AND driver_id = ?", requestId, driverId).
			First(&request).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride request not found"})
			return
		}
		if request.Status != models.DispatchStatusPending {
			c.JSON(409, gin.H{"error": "Ride request already answered"})
			return
		}

		now := time.Now().UTC()
		newStatus := models.DispatchStatusRejected
		if input.Accept {
			newStatus = models.DispatchStatusAccepted
		}
		res := db.Model(&models.DispatchRequest{}).
			Where("id = ? AND status = ?", request.ID, models.DispatchStatusPending).
			Updates(map[string]interface{}{"status": newStatus, "responded_at": now})
		if res.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update ride request"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(409, gin.H{"error": "Ride request already answered"})
			return
		}

		if !input.Accept {
			c.JSON(200, gin.H{"message": "Ride request declined"})
			return
		}

		var booking models.RideBooking
		if err := db.Where("id = ?", request.RideID).First(&booking).Error; err != nil {
			c.JSON(404, gin.H{"error": "Booking not found"})
			return
		}
		if booking.Status != models.BookingStatusPending {
			c.JSON(409, gin.H{"error": "Ride is no longer open"})
			return
		}

		price := input.OfferedPrice
		offerType := models.OfferTypeBestOffer
		if price <= 0 || price == booking.Bid {
			price = booking.Bid
			offerType = models.OfferTypeBidAccept
		}

		var location models.DriverLocation
		eta := 5
		if err := db.Where("driver_id = ?", driverId).First(&location).Error; err == nil {
			dist := utils.HaversineDistance(location.Latitude, location.Longitude, booking.PickupLat, booking.PickupLng)
			eta = utils.CalculateETA(dist, 30)
		}

		offer := models.DriverOffer{
			ID:           uuid.NewString(),
			RideID:       booking.ID,
			DriverID:     driverId,
			OfferedPrice: price,
			EstimatedEta: eta,
			OfferType:    offerType,
			IsOnline:     true,
		}
		if err := db.Create(&offer).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create offer"})
			return
		}

		engine.RegisterOffer(c.Request.Context(), &offer)

		c.JSON(201, gin.H{
			"offer":   offer,
			"savings": models.Savings(booking.Bid, offer.OfferedPrice),
		})
	}
}

// ListMyOffers returns the driver's offers on still-open rides
func ListMyOffers(db *gorm.DB, engine *negotiation.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverId := c.GetUint("userId")

		var offers []models.DriverOffer
		err := db.Joins("JOIN ride_bookings ON ride_bookings.id = driver_ride_responses.ride_id").
			Where("driver_ride_responses.driver_id = ? AND ride_bookings.status = ?",
				driverId, models.BookingStatusPending).
			Order("driver_ride_responses.created_at DESC").
			Find(&offers).Error
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch offers"})
			return
		}

		out := make([]gin.H, 0, len(offers))
		for i := range offers {
			entry := gin.H{"offer": offers[i]}
			if counter := engine.ActiveCounter(offers[i].RideID, driverId); counter != nil {
				entry["activeCounter"] = counter
			}
			out = append(out, entry)
		}
		c.JSON(200, out)
	}
}

// RespondToCounter is the driver accepting or rejecting a rider's counter
func RespondToCounter(engine *negotiation.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverId := c.GetUint("userId")
		counterId := c.Param("id")

		var input struct {
			Accept *bool `json:"accept" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		counter, err := engine.ResolveCounterOffer(c.Request.Context(), counterId, driverId, *input.Accept)
		if err != nil {
			respondEngineError(c, err)
			return
		}

		c.JSON(200, counter)
	}
}
