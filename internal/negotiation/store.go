package negotiation

import (
	"context"
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
)

// Store is the persistence surface the engine needs. The production
// implementation is GormStore; tests use an in-memory fake.
type Store interface {
	GetBooking(ctx context.Context, rideID string) (*models.RideBooking, error)
	GetOffer(ctx context.Context, rideID string, driverID uint) (*models.DriverOffer, error)
	ListOffers(ctx context.Context, rideID string) ([]models.DriverOffer, error)

	GetCounter(ctx context.Context, counterID string) (*models.CounterOffer, error)
	PendingCounter(ctx context.Context, rideID string, driverID uint, offeredBy string) (*models.CounterOffer, error)
	// InsertCounter persists a new pending counter. Returns ErrDuplicatePending
	// when one already exists for the same (ride, driver, side).
	InsertCounter(ctx context.Context, counter *models.CounterOffer) error
	// ResolveCounter transitions a pending counter to the given terminal
	// status. When applyPrice is true the target offer's price is revised to
	// the counter price in the same transaction. Returns false when the
	// counter was no longer pending, which makes terminal states final.
	ResolveCounter(ctx context.Context, counterID, status string, respondedAt time.Time, applyPrice bool) (bool, error)
	// PendingCountersBefore lists pending counters created before the cutoff.
	PendingCountersBefore(ctx context.Context, cutoff time.Time) ([]models.CounterOffer, error)

	// ConfirmBooking atomically moves the booking pending->confirmed, records
	// the winning driver and final price, and marks that driver's offer
	// confirmed. Returns false when the booking was not pending.
	ConfirmBooking(ctx context.Context, rideID string, driverID uint, finalPrice int) (bool, error)
	// CancelBooking moves the booking pending->cancelled. Returns false when
	// the booking was not pending.
	CancelBooking(ctx context.Context, rideID string) (bool, error)

	// InsertNotification persists an in-app notification row. Best-effort
	// from the engine's point of view: a failed insert never fails the
	// operation that produced it.
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// Notifier delivers negotiation events to connected parties. The WebSocket
// hub satisfies this; tests record emissions.
type Notifier interface {
	Emit(userID uint, eventType string, data interface{})
}
