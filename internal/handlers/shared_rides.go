package handlers

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/internal/services"
	"github.com/bidzi/bidzi-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	errNoSeats         = errors.New("not enough seats")
	errAlreadyAnswered = errors.New("already answered")
)

type CreateSharedRideInput struct {
	PickupAddress     string    `json:"pickupAddress" binding:"required"`
	PickupLat         float64   `json:"pickupLat" binding:"required"`
	PickupLng         float64   `json:"pickupLng" binding:"required"`
	DropAddress       string    `json:"dropAddress" binding:"required"`
	DropLat           float64   `json:"dropLat" binding:"required"`
	DropLng           float64   `json:"dropLng" binding:"required"`
	BasePrice         int       `json:"basePrice" binding:"required,gt=0"`
	TotalSeats        int       `json:"totalSeats" binding:"required,gt=0,lte=6"`
	EstimatedDuration int       `json:"estimatedDuration"`
	DepartureTime     time.Time `json:"departureTime" binding:"required"`
}

// CreateSharedRide publishes a driver's pooled trip other riders can join
func CreateSharedRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverId := c.GetUint("userId")

		var input CreateSharedRideInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if !utils.ValidCoordinates(input.PickupLat, input.PickupLng) ||
			!utils.ValidCoordinates(input.DropLat, input.DropLng) {
			c.JSON(400, gin.H{"error": "Invalid coordinates"})
			return
		}
		if input.DepartureTime.Before(time.Now().Add(models.SharedRideMinLead)) {
			c.JSON(400, gin.H{"error": "Departure must be at least 5 minutes ahead"})
			return
		}

		var driver models.User
		if err := db.First(&driver, driverId).Error; err != nil {
			c.JSON(404, gin.H{"error": "Driver not found"})
			return
		}
		if driver.UserType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can publish shared rides"})
			return
		}

		ride := models.SharedRide{
			ID:                uuid.NewString(),
			DriverID:          driverId,
			PickupAddress:     input.PickupAddress,
			PickupLat:         input.PickupLat,
			PickupLng:         input.PickupLng,
			DropAddress:       input.DropAddress,
			DropLat:           input.DropLat,
			DropLng:           input.DropLng,
			VehicleType:       driver.VehicleType,
			DistanceKm:        utils.HaversineDistance(input.PickupLat, input.PickupLng, input.DropLat, input.DropLng),
			EstimatedDuration: input.EstimatedDuration,
			BasePrice:         input.BasePrice,
			TotalSeats:        input.TotalSeats,
			AvailableSeats:    input.TotalSeats,
			DepartureTime:     input.DepartureTime.UTC(),
			Status:            models.SharedStatusOpen,
		}
		if err := db.Create(&ride).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create shared ride"})
			return
		}

		c.JSON(201, ride)
	}
}

// ListAvailableSharedRides returns joinable rides near the rider: open, with
// seats, departing at least 5 minutes out, pickup within 5 km, excluding
// rides the rider already asked to join. Nearest pickup first.
func ListAvailableSharedRides(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
		lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
		if latErr != nil || lngErr != nil || !utils.ValidCoordinates(lat, lng) {
			c.JSON(400, gin.H{"error": "lat and lng query parameters required"})
			return
		}

		minDeparture := time.Now().UTC().Add(models.SharedRideMinLead)

		var rides []models.SharedRide
		err := db.Preload("Driver").
			Where("status = ? AND available_seats > 0 AND departure_time >= ?",
				models.SharedStatusOpen, minDeparture).
			Where("id NOT IN (?)", db.Model(&models.RideParticipant{}).
				Select("ride_id").
				Where("user_id = ? AND status <> ?", userId, models.ParticipantStatusRejected)).
			Order("departure_time ASC").
			Find(&rides).Error
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch shared rides"})
			return
		}

		type nearbyRide struct {
			Ride           models.SharedRide `json:"ride"`
			PickupDistance float64           `json:"pickupDistanceKm"`
			FilledSeats    int               `json:"filledSeats"`
		}
		out := make([]nearbyRide, 0, len(rides))
		for i := range rides {
			dist := utils.HaversineDistance(lat, lng, rides[i].PickupLat, rides[i].PickupLng)
			if dist > models.SharedRideRadiusKm {
				continue
			}
			out = append(out, nearbyRide{
				Ride:           rides[i],
				PickupDistance: dist,
				FilledSeats:    rides[i].FilledSeats(),
			})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].PickupDistance < out[j].PickupDistance })

		c.JSON(200, out)
	}
}

// JoinSharedRide books seats on a pooled trip. Seats are reserved up front
// through a guarded decrement so two riders can never take the last seat
// twice; the driver then confirms or rejects the request.
func JoinSharedRide(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		rideId := c.Param("id")

		var input struct {
			Seats int `json:"seats"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		seats := input.Seats
		if seats < 1 {
			seats = 1
		}

		var ride models.SharedRide
		if err := db.Where("id = ?", rideId).First(&ride).Error; err != nil {
			c.JSON(404, gin.H{"error": "Shared ride not found"})
			return
		}
		if ride.DriverID == userId {
			c.JSON(409, gin.H{"error": "Drivers cannot join their own ride"})
			return
		}
		if !ride.JoinableAt(time.Now().UTC(), seats) {
			c.JSON(409, gin.H{"error": "Ride is not joinable"})
			return
		}

		var participant models.RideParticipant
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.SharedRide{}).
				Where("id = ? AND status = ? AND available_seats >= ?",
					rideId, models.SharedStatusOpen, seats).
				Update("available_seats", gorm.Expr("available_seats - ?", seats))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errNoSeats
			}

			// Close the listing once the last seat goes.
			if err := tx.Model(&models.SharedRide{}).
				Where("id = ? AND available_seats = 0", rideId).
				Update("status", models.SharedStatusFull).Error; err != nil {
				return err
			}

			participant = models.RideParticipant{
				RideID:      rideId,
				UserID:      userId,
				SeatsBooked: seats,
				FinalPrice:  ride.BasePrice * seats,
				Status:      models.ParticipantStatusPending,
			}
			return tx.Create(&participant).Error
		})
		if err != nil {
			if errors.Is(err, errNoSeats) {
				c.JSON(409, gin.H{"error": "Not enough seats available"})
				return
			}
			if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "23505") {
				c.JSON(409, gin.H{"error": "You already asked to join this ride"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to join ride"})
			return
		}

		hub.Emit(ride.DriverID, services.EventSharedRideJoin, gin.H{
			"rideId":      rideId,
			"userId":      userId,
			"seatsBooked": seats,
		})

		c.JSON(201, gin.H{
			"participant": participant,
			"message":     "Join request sent, waiting for driver confirmation",
		})
	}
}

// RespondToParticipant is the driver confirming or rejecting a join request.
// Rejection returns the reserved seats to the pool.
func RespondToParticipant(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverId := c.GetUint("userId")
		participantId := c.Param("id")

		var input struct {
			Accept *bool `json:"accept" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var participant models.RideParticipant
		if err := db.Where("id = ?", participantId).First(&participant).Error; err != nil {
			c.JSON(404, gin.H{"error": "Join request not found"})
			return
		}

		var ride models.SharedRide
		if err := db.Where("id = ?", participant.RideID).First(&ride).Error; err != nil {
			c.JSON(404, gin.H{"error": "Shared ride not found"})
			return
		}
		if ride.DriverID != driverId {
			c.JSON(403, gin.H{"error": "Unauthorized"})
			return
		}

		now := time.Now().UTC()
		newStatus := models.ParticipantStatusRejected
		if *input.Accept {
			newStatus = models.ParticipantStatusConfirmed
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.RideParticipant{}).
				Where("id = ? AND status = ?", participant.ID, models.ParticipantStatusPending).
				Updates(map[string]interface{}{"status": newStatus, "responded_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errAlreadyAnswered
			}

			if *input.Accept {
				return nil
			}
			// Give the seats back and reopen a full listing.
			if err := tx.Model(&models.SharedRide{}).
				Where("id = ?", participant.RideID).
				Update("available_seats", gorm.Expr("available_seats + ?", participant.SeatsBooked)).Error; err != nil {
				return err
			}
			return tx.Model(&models.SharedRide{}).
				Where("id = ? AND status = ?", participant.RideID, models.SharedStatusFull).
				Update("status", models.SharedStatusOpen).Error
		})
		if err != nil {
			if errors.Is(err, errAlreadyAnswered) {
				c.JSON(409, gin.H{"error": "Join request already answered"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to respond to join request"})
			return
		}

		hub.Emit(participant.UserID, services.EventSharedRideUpdate, gin.H{
			"rideId": participant.RideID,
			"status": newStatus,
		})

		c.JSON(200, gin.H{"status": newStatus})
	}
}

// ListSharedRideParticipants lets the driver see join requests on their ride
func ListSharedRideParticipants(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverId := c.GetUint("userId")
		rideId := c.Param("id")

		var ride models.SharedRide
		if err := db.Where("id = ?", rideId).First(&ride).Error; err != nil {
			c.JSON(404, gin.H{"error": "Shared ride not found"})
			return
		}
		if ride.DriverID != driverId {
			c.JSON(403, gin.H{"error": "Unauthorized"})
			return
		}

		var participants []models.RideParticipant
		if err := db.Preload("User").Where("ride_id = ?", rideId).
			Order("created_at ASC").Find(&participants).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch participants"})
			return
		}

		c.JSON(200, participants)
	}
}
