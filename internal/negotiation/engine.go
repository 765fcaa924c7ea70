package negotiation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/internal/observability"
	"github.com/bidzi/bidzi-backend/internal/services"
	"github.com/google/uuid"
)

// Negotiation timing. Fixed by product, not configurable per call.
const (
	// CounterTTL is how long a counter offer stays open before it expires.
	CounterTTL = 5 * time.Minute
	// SweepInterval is how often the expiry sweep runs.
	SweepInterval = 30 * time.Second
	// RejectedDisplayDelay is how long a rejected counter stays visible in the
	// projection before the driver's row drops back to normal. Display-only.
	RejectedDisplayDelay = 3 * time.Second
)

// Engine owns the bid/counter-offer lifecycle for every open ride. All
// mutating operations on one ride are serialized through a per-ride lock, so
// a driver accepting a counter and the rider accepting the offer can never
// interleave into a lost update.
type Engine struct {
	store    Store
	notifier Notifier

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) stopper

	mu    sync.Mutex
	rides map[string]*rideState
}

type stopper interface{ Stop() bool }

// rideState is the in-memory projection for one ride: the currently active
// counter per driver, plus the timers clearing rejected counters from view.
type rideState struct {
	mu       sync.Mutex
	counters map[uint]*models.CounterOffer
	timers   map[uint]stopper
}

// NewEngine creates a negotiation engine over the given store and notifier.
func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		rides: make(map[string]*rideState),
	}
}

func (e *Engine) ride(rideID string) *rideState {
	e.mu.Lock()
	defer e.mu.Unlock()
	rs, ok := e.rides[rideID]
	if !ok {
		rs = &rideState{
			counters: make(map[uint]*models.CounterOffer),
			timers:   make(map[uint]stopper),
		}
		e.rides[rideID] = rs
	}
	return rs
}

// Release drops the in-memory projection for a ride. Called once the ride is
// confirmed or cancelled; the store keeps the history.
func (e *Engine) Release(rideID string) {
	e.mu.Lock()
	rs, ok := e.rides[rideID]
	if ok {
		delete(e.rides, rideID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	rs.mu.Lock()
	for _, t := range rs.timers {
		t.Stop()
	}
	rs.mu.Unlock()
}

// ActiveCounter returns the projected active counter for one driver on one
// ride, or nil. Used to decorate offer listings.
func (e *Engine) ActiveCounter(rideID string, driverID uint) *models.CounterOffer {
	rs := e.ride(rideID)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if c, ok := rs.counters[driverID]; ok {
		cp := *c
		return &cp
	}
	return nil
}

// SubmitCounterOffer records the rider's counter against one driver's offer.
// The price must sit in [floor(price/2), price-1] and no other counter from
// the rider may be pending against the same driver.
func (e *Engine) SubmitCounterOffer(ctx context.Context, rideID string, driverID, userID uint, price int) (*models.CounterOffer, error) {
	rs := e.ride(rideID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	booking, err := e.store.GetBooking(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, conflictf("ride is no longer open for offers")
	}

	offer, err := e.store.GetOffer(ctx, rideID, driverID)
	if err != nil {
		return nil, err
	}

	minPrice := models.MinCounterPrice(offer.OfferedPrice)
	if price >= offer.OfferedPrice {
		return nil, validationf(fmt.Sprintf("counter must be less than the offered price of %d", offer.OfferedPrice))
	}
	if price < minPrice {
		return nil, validationf(fmt.Sprintf("minimum counter price is %d", minPrice))
	}

	if c, ok := rs.counters[driverID]; ok && c.Status == models.CounterStatusPending {
		return nil, conflictf("a counter offer is already pending with this driver")
	}
	// The projection can lag a fresh process; ask the store as well.
	if existing, err := e.store.PendingCounter(ctx, rideID, driverID, models.OfferedByUser); err != nil {
		return nil, err
	} else if existing != nil {
		rs.counters[driverID] = existing
		return nil, conflictf("a counter offer is already pending with this driver")
	}

	counter := &models.CounterOffer{
		ID:           uuid.NewString(),
		RideID:       rideID,
		DriverID:     driverID,
		UserID:       userID,
		CounterPrice: price,
		OfferedBy:    models.OfferedByUser,
		Status:       models.CounterStatusPending,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.store.InsertCounter(ctx, counter); err != nil {
		if errors.Is(err, ErrDuplicatePending) {
			return nil, conflictf("a counter offer is already pending with this driver")
		}
		return nil, err
	}

	e.setCounterLocked(rs, counter)
	observability.CountersSubmitted.Inc()

	e.notifier.Emit(driverID, services.EventCounterOffer, counter)
	e.record(ctx, driverID, rideID, models.NotificationTypeCounterOffer,
		"Counter offer received", fmt.Sprintf("Rider countered at %d", price))
	return counter, nil
}

// ResolveCounterOffer applies a driver's accept or reject to a pending
// counter. Accepting revises the driver's offer to the counter price in the
// same transaction; either way the counter reaches a terminal state exactly
// once.
func (e *Engine) ResolveCounterOffer(ctx context.Context, counterID string, driverID uint, accept bool) (*models.CounterOffer, error) {
	counter, err := e.store.GetCounter(ctx, counterID)
	if err != nil {
		return nil, err
	}
	if counter.DriverID != driverID {
		return nil, conflictf("counter offer belongs to another driver")
	}

	rs := e.ride(counter.RideID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if counter.Terminal() {
		return nil, conflictf("counter offer is already " + counter.Status)
	}

	status := models.CounterStatusRejected
	if accept {
		status = models.CounterStatusAccepted
	}
	respondedAt := e.now().UTC()

	ok, err := e.store.ResolveCounter(ctx, counterID, status, respondedAt, accept)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conflictf("counter offer was already resolved")
	}

	counter.Status = status
	counter.RespondedAt = &respondedAt
	observability.CountersResolved.WithLabelValues(status).Inc()

	if accept {
		e.setCounterLocked(rs, counter)
		e.notifyCounterResolved(ctx, counter)
		return counter, nil
	}

	// Rejected counters stay visible briefly, then the driver's row returns
	// to normal. The row store already holds the terminal state.
	e.setCounterLocked(rs, counter)
	e.notifyCounterResolved(ctx, counter)
	id := counter.ID
	drv := counter.DriverID
	rs.timers[drv] = e.afterFunc(RejectedDisplayDelay, func() {
		rs.mu.Lock()
		defer rs.mu.Unlock()
		if c, exists := rs.counters[drv]; exists && c.ID == id {
			delete(rs.counters, drv)
			delete(rs.timers, drv)
		}
	})
	return counter, nil
}

// AcceptOffer confirms one driver for the ride. Booking and offer move
// together in a single store transaction, so two racing accepts cannot leave
// two confirmed drivers. Accepting the same driver again is a no-op success.
func (e *Engine) AcceptOffer(ctx context.Context, rideID string, userID, driverID uint) (*models.RideBooking, error) {
	rs := e.ride(rideID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	booking, err := e.store.GetBooking(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, conflictf("ride belongs to another rider")
	}

	switch booking.Status {
	case models.BookingStatusConfirmed:
		if booking.ConfirmedDriverID != nil && *booking.ConfirmedDriverID == driverID {
			return booking, nil // retry of a completed accept
		}
		return nil, conflictf("ride is already confirmed with another driver")
	case models.BookingStatusCancelled:
		return nil, conflictf("ride has been cancelled")
	}

	offer, err := e.store.GetOffer(ctx, rideID, driverID)
	if err != nil {
		return nil, err
	}

	ok, err := e.store.ConfirmBooking(ctx, rideID, driverID, offer.OfferedPrice)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with a concurrent accept or cancel.
		fresh, ferr := e.store.GetBooking(ctx, rideID)
		if ferr == nil && fresh.Status == models.BookingStatusConfirmed &&
			fresh.ConfirmedDriverID != nil && *fresh.ConfirmedDriverID == driverID {
			return fresh, nil
		}
		return nil, conflictf("ride is no longer open")
	}

	booking.Status = models.BookingStatusConfirmed
	booking.ConfirmedDriverID = &driverID
	booking.FinalPrice = &offer.OfferedPrice
	observability.RidesConfirmed.Inc()

	e.notifyConfirmed(ctx, booking, driverID, offer.OfferedPrice)
	return booking, nil
}

// CancelRide lets the rider withdraw a booking before confirmation.
func (e *Engine) CancelRide(ctx context.Context, rideID string, userID uint) (*models.RideBooking, error) {
	rs := e.ride(rideID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	booking, err := e.store.GetBooking(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, conflictf("ride belongs to another rider")
	}
	if booking.Status != models.BookingStatusPending {
		return nil, conflictf("ride cannot be cancelled in status " + booking.Status)
	}

	ok, err := e.store.CancelBooking(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conflictf("ride is no longer open")
	}

	booking.Status = models.BookingStatusCancelled

	offers, err := e.store.ListOffers(ctx, rideID)
	if err == nil {
		for _, o := range offers {
			e.notifier.Emit(o.DriverID, services.EventRideCancelled, map[string]interface{}{
				"rideId": rideID,
				"reason": "Cancelled by rider",
			})
			e.record(ctx, o.DriverID, rideID, models.NotificationTypeRideCancelled,
				"Ride cancelled", "The rider cancelled this ride")
		}
	}
	return booking, nil
}

// ExpireSweep transitions every pending counter older than CounterTTL to
// expired and clears it from view. It is the authoritative expiry path: it
// runs server-side on a timer and needs no client to stay connected.
func (e *Engine) ExpireSweep(ctx context.Context) (int, error) {
	cutoff := e.now().UTC().Add(-CounterTTL)
	stale, err := e.store.PendingCountersBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		counter := stale[i]
		rs := e.ride(counter.RideID)
		rs.mu.Lock()

		respondedAt := e.now().UTC()
		ok, err := e.store.ResolveCounter(ctx, counter.ID, models.CounterStatusExpired, respondedAt, false)
		if err != nil {
			rs.mu.Unlock()
			log.Printf("expiry sweep: counter %s: %v", counter.ID, err)
			continue
		}
		if !ok {
			rs.mu.Unlock()
			continue // resolved while we were sweeping
		}

		if c, exists := rs.counters[counter.DriverID]; exists && c.ID == counter.ID {
			delete(rs.counters, counter.DriverID)
		}
		rs.mu.Unlock()

		expired++
		observability.CountersExpired.Inc()

		counter.Status = models.CounterStatusExpired
		counter.RespondedAt = &respondedAt
		e.notifier.Emit(counter.UserID, services.EventCounterResolved, &counter)
		e.notifier.Emit(counter.DriverID, services.EventCounterResolved, &counter)
		e.record(ctx, counter.UserID, counter.RideID, models.NotificationTypeCounterResolved,
			"Counter offer expired", fmt.Sprintf("Your counter of %d expired unanswered", counter.CounterPrice))
	}
	return expired, nil
}

// RegisterOffer lets handlers route a fresh driver offer through the engine
// so the rider hears about it with savings precomputed.
func (e *Engine) RegisterOffer(ctx context.Context, offer *models.DriverOffer) {
	booking, err := e.store.GetBooking(ctx, offer.RideID)
	if err != nil {
		log.Printf("register offer: booking %s: %v", offer.RideID, err)
		return
	}
	e.notifier.Emit(booking.UserID, services.EventNewOffer, map[string]interface{}{
		"offer":   offer,
		"savings": models.Savings(booking.Bid, offer.OfferedPrice),
	})
}

// record persists an in-app notification row alongside the live push. The
// row store is what clients see after reconnecting; a failed insert only
// costs that history, so it is logged and swallowed.
func (e *Engine) record(ctx context.Context, userID uint, rideID, ntype, title, message string) {
	n := &models.Notification{
		UserID:  userID,
		RideID:  rideID,
		Type:    ntype,
		Title:   title,
		Message: message,
	}
	if err := e.store.InsertNotification(ctx, n); err != nil {
		log.Printf("notification %s for user %d: %v", ntype, userID, err)
	}
}

func (e *Engine) setCounterLocked(rs *rideState, counter *models.CounterOffer) {
	if t, ok := rs.timers[counter.DriverID]; ok {
		t.Stop()
		delete(rs.timers, counter.DriverID)
	}
	cp := *counter
	rs.counters[counter.DriverID] = &cp
}

func (e *Engine) notifyCounterResolved(ctx context.Context, counter *models.CounterOffer) {
	payload := map[string]interface{}{"counter": counter}
	if counter.Status == models.CounterStatusAccepted {
		if booking, err := e.store.GetBooking(ctx, counter.RideID); err == nil {
			payload["newPrice"] = counter.CounterPrice
			payload["savings"] = models.Savings(booking.Bid, counter.CounterPrice)
		}
		// The driver's offer row changed price; tell the rider's offer list.
		if offer, err := e.store.GetOffer(ctx, counter.RideID, counter.DriverID); err == nil {
			e.notifier.Emit(counter.UserID, services.EventOfferUpdated, offer)
		}
	}
	e.notifier.Emit(counter.UserID, services.EventCounterResolved, payload)
	e.notifier.Emit(counter.DriverID, services.EventCounterResolved, payload)
	e.record(ctx, counter.UserID, counter.RideID, models.NotificationTypeCounterResolved,
		"Counter offer "+counter.Status, fmt.Sprintf("Your counter of %d was %s", counter.CounterPrice, counter.Status))
}

func (e *Engine) notifyConfirmed(ctx context.Context, booking *models.RideBooking, driverID uint, finalPrice int) {
	data := map[string]interface{}{
		"rideId":   booking.ID,
		"driverId": driverID,
		"price":    finalPrice,
		"savings":  models.Savings(booking.Bid, finalPrice),
	}
	e.notifier.Emit(booking.UserID, services.EventRideConfirmed, data)
	e.record(ctx, booking.UserID, booking.ID, models.NotificationTypeRideConfirmed,
		"Ride confirmed", fmt.Sprintf("Your ride is confirmed at %d", finalPrice))

	// Every driver who offered hears the outcome; their clients key
	// disabled state on confirmedDriverId, no sibling rows are mutated.
	offers, err := e.store.ListOffers(ctx, booking.ID)
	if err != nil {
		log.Printf("confirm notify: list offers for %s: %v", booking.ID, err)
		return
	}
	for _, o := range offers {
		e.notifier.Emit(o.DriverID, services.EventRideConfirmed, data)
		if o.DriverID == driverID {
			e.record(ctx, o.DriverID, booking.ID, models.NotificationTypeRideConfirmed,
				"Ride confirmed", fmt.Sprintf("You got the ride at %d", finalPrice))
		}
	}
}
