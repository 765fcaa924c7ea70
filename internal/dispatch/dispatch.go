package dispatch

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/internal/observability"
	"github.com/bidzi/bidzi-backend/internal/services"
	"github.com/bidzi/bidzi-backend/pkg/utils"
)

const (
	// RadiusKm bounds the driver search around the pickup point.
	RadiusKm = 5.0
	// MaxDrivers caps how many drivers one booking fans out to.
	MaxDrivers = 25
	// Timeout bounds one whole fan-out, Redis lookup and row writes included.
	Timeout = 45 * time.Second
)

// Candidate is one driver eligible for a booking, with their distance to
// the pickup point in kilometers.
type Candidate struct {
	DriverID   uint
	DistanceKm float64
}

// GeoFunc finds online drivers near a point. services.NearbyDrivers (Redis
// GEO) is the production source; the DB fallback kicks in when it errors or
// returns nothing.
type GeoFunc func(ctx context.Context, lat, lng float64, vehicleType string, radiusKm float64, limit int) ([]services.NearbyDriver, error)

// Store persists the per-driver fan-out records and serves the DB fallback
// for candidate lookup.
type Store interface {
	OnlineDrivers(ctx context.Context, vehicleType string) ([]models.DriverLocation, error)
	CreateDispatchRequest(ctx context.Context, req *models.DispatchRequest) error
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Notifier pushes the ride request to connected driver clients.
type Notifier interface {
	Emit(userID uint, eventType string, data interface{})
}

// Dispatcher fans new bookings out to nearby drivers.
type Dispatcher struct {
	geo      GeoFunc
	store    Store
	notifier Notifier
	now      func() time.Time
}

func NewDispatcher(geo GeoFunc, store Store, notifier Notifier) *Dispatcher {
	return &Dispatcher{geo: geo, store: store, notifier: notifier, now: time.Now}
}

// FanOut offers the booking to up to MaxDrivers online drivers within
// RadiusKm of pickup, closest first. Each reached driver gets a ride_requests
// row, a notification row, and a live push. A driver that fails to persist is
// skipped, never aborting the rest. Zero reachable drivers is a valid
// outcome, not an error.
func (d *Dispatcher) FanOut(ctx context.Context, booking *models.RideBooking) (int, error) {
	candidates := d.findCandidates(ctx, booking)
	observability.DispatchDrivers.Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		log.Printf("dispatch: no drivers within %.0f km for ride %s", RadiusKm, booking.ID)
		return 0, nil
	}

	sentAt := d.now().UTC()
	dispatched := 0
	for _, cand := range candidates {
		req := &models.DispatchRequest{
			RideID:      booking.ID,
			DriverID:    cand.DriverID,
			PickupLat:   booking.PickupLat,
			PickupLng:   booking.PickupLng,
			VehicleType: booking.VehicleType,
			BidPrice:    booking.Bid,
			DistanceKm:  cand.DistanceKm,
			Status:      models.DispatchStatusPending,
			SentAt:      sentAt,
		}
		if err := d.store.CreateDispatchRequest(ctx, req); err != nil {
			log.Printf("dispatch: ride %s driver %d: %v", booking.ID, cand.DriverID, err)
			observability.DispatchFailures.Inc()
			continue
		}

		note := &models.Notification{
			UserID:     cand.DriverID,
			RideID:     booking.ID,
			Type:       models.NotificationTypeRideRequest,
			Title:      "New ride request",
			Message:    "A rider near you is looking for a " + booking.VehicleType,
			DistanceKm: cand.DistanceKm,
		}
		if err := d.store.CreateNotification(ctx, note); err != nil {
			// The request row is in; the driver still sees it on next poll.
			log.Printf("dispatch: notification for driver %d: %v", cand.DriverID, err)
		}

		d.notifier.Emit(cand.DriverID, services.EventDispatchRequest, map[string]interface{}{
			"request":  req,
			"pickup":   booking.PickupAddress,
			"drop":     booking.DropAddress,
			"bidPrice": booking.Bid,
		})
		dispatched++
	}
	return dispatched, nil
}

// findCandidates tries Redis GEO first and falls back to scanning
// driver_locations when Redis is down or empty. Both paths return drivers
// sorted nearest first and capped at MaxDrivers.
func (d *Dispatcher) findCandidates(ctx context.Context, booking *models.RideBooking) []Candidate {
	if d.geo != nil {
		nearby, err := d.geo(ctx, booking.PickupLat, booking.PickupLng, booking.VehicleType, RadiusKm, MaxDrivers)
		if err != nil {
			log.Printf("dispatch: redis geo lookup: %v, falling back to db", err)
		} else if len(nearby) > 0 {
			out := make([]Candidate, 0, len(nearby))
			for _, n := range nearby {
				out = append(out, Candidate{DriverID: n.DriverID, DistanceKm: n.DistanceKm})
			}
			return out
		}
	}
	return d.candidatesFromDB(ctx, booking)
}

func (d *Dispatcher) candidatesFromDB(ctx context.Context, booking *models.RideBooking) []Candidate {
	locations, err := d.store.OnlineDrivers(ctx, booking.VehicleType)
	if err != nil {
		log.Printf("dispatch: db driver lookup: %v", err)
		return nil
	}

	out := make([]Candidate, 0, len(locations))
	for _, loc := range locations {
		dist := utils.HaversineDistance(booking.PickupLat, booking.PickupLng, loc.Latitude, loc.Longitude)
		if dist > RadiusKm {
			continue
		}
		out = append(out, Candidate{DriverID: loc.DriverID, DistanceKm: dist})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if len(out) > MaxDrivers {
		out = out[:MaxDrivers]
	}
	return out
}
