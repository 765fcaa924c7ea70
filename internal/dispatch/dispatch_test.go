package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/bidzi/bidzi-backend/internal/services"
)

type fakeStore struct {
	mu            sync.Mutex
	locations     []models.DriverLocation
	requests      []models.DispatchRequest
	notifications []models.Notification
	failDrivers   map[uint]bool
	locErr        error
}

func (s *fakeStore) OnlineDrivers(_ context.Context, vehicleType string) ([]models.DriverLocation, error) {
	if s.locErr != nil {
		return nil, s.locErr
	}
	var out []models.DriverLocation
	for _, l := range s.locations {
		if l.VehicleType == vehicleType && l.IsOnline && l.IsAvailable {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateDispatchRequest(_ context.Context, req *models.DispatchRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDrivers[req.DriverID] {
		return errors.New("insert failed")
	}
	s.requests = append(s.requests, *req)
	return nil
}

func (s *fakeStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []uint
}

func (n *fakeNotifier) Emit(userID uint, _ string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, userID)
}

// driverAt puts an online, available car driver roughly distKm north of the
// origin. One degree of latitude is ~111 km.
func driverAt(id uint, distKm float64) models.DriverLocation {
	return models.DriverLocation{
		DriverID:    id,
		Latitude:    distKm / 111.0,
		Longitude:   0,
		VehicleType: models.VehicleTypeCar,
		IsOnline:    true,
		IsAvailable: true,
		LastSeen:    time.Now(),
	}
}

func testBooking() *models.RideBooking {
	return &models.RideBooking{
		ID:          "ride-1",
		UserID:      1,
		PickupLat:   0,
		PickupLng:   0,
		VehicleType: models.VehicleTypeCar,
		Bid:         100,
		Status:      models.BookingStatusPending,
	}
}

func TestFanOutDBFallbackRadiusAndOrder(t *testing.T) {
	store := &fakeStore{
		locations: []models.DriverLocation{
			driverAt(3, 4.5),
			driverAt(1, 0.5),
			driverAt(4, 6.0), // outside 5 km
			driverAt(2, 2.0),
		},
	}
	notifier := &fakeNotifier{}
	d := NewDispatcher(nil, store, notifier)

	n, err := d.FanOut(context.Background(), testBooking())
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	if n != 3 {
		t.Fatalf("dispatched %d drivers, want 3", n)
	}

	wantOrder := []uint{1, 2, 3}
	for i, want := range wantOrder {
		if store.requests[i].DriverID != want {
			t.Errorf("request[%d].DriverID = %d, want %d (nearest first)", i, store.requests[i].DriverID, want)
		}
	}
	for _, req := range store.requests {
		if req.DriverID == 4 {
			t.Error("driver outside radius was dispatched")
		}
		if req.Status != models.DispatchStatusPending {
			t.Errorf("request status = %q, want pending", req.Status)
		}
		if req.BidPrice != 100 {
			t.Errorf("request bid = %d, want 100", req.BidPrice)
		}
	}
	if len(store.notifications) != 3 {
		t.Errorf("notifications = %d, want 3", len(store.notifications))
	}
	if len(notifier.sends) != 3 {
		t.Errorf("live pushes = %d, want 3", len(notifier.sends))
	}
}

func TestFanOutCapsAtMaxDrivers(t *testing.T) {
	store := &fakeStore{}
	for i := 1; i <= MaxDrivers+10; i++ {
		store.locations = append(store.locations, driverAt(uint(i), float64(i)*0.1))
	}
	d := NewDispatcher(nil, store, &fakeNotifier{})

	n, err := d.FanOut(context.Background(), testBooking())
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	if n != MaxDrivers {
		t.Fatalf("dispatched %d drivers, want cap of %d", n, MaxDrivers)
	}
}

func TestFanOutNoDriversIsNotAnError(t *testing.T) {
	d := NewDispatcher(nil, &fakeStore{}, &fakeNotifier{})
	n, err := d.FanOut(context.Background(), testBooking())
	if err != nil {
		t.Fatalf("FanOut with no drivers: %v", err)
	}
	if n != 0 {
		t.Fatalf("dispatched %d, want 0", n)
	}
}

func TestFanOutSkipsFailedDriver(t *testing.T) {
	store := &fakeStore{
		locations: []models.DriverLocation{
			driverAt(1, 1.0),
			driverAt(2, 2.0),
			driverAt(3, 3.0),
		},
		failDrivers: map[uint]bool{2: true},
	}
	notifier := &fakeNotifier{}
	d := NewDispatcher(nil, store, notifier)

	n, err := d.FanOut(context.Background(), testBooking())
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	if n != 2 {
		t.Fatalf("dispatched %d, want 2 (one skipped)", n)
	}
	for _, id := range notifier.sends {
		if id == 2 {
			t.Error("failed driver still got a live push")
		}
	}
}

func TestFanOutPrefersGeoSource(t *testing.T) {
	store := &fakeStore{
		locations: []models.DriverLocation{driverAt(99, 1.0)}, // fallback only
	}
	geo := func(_ context.Context, _, _ float64, vehicleType string, _ float64, _ int) ([]services.NearbyDriver, error) {
		if vehicleType != models.VehicleTypeCar {
			return nil, fmt.Errorf("unexpected vehicle type %q", vehicleType)
		}
		return []services.NearbyDriver{
			{DriverID: 5, DistanceKm: 0.4},
			{DriverID: 6, DistanceKm: 1.2},
		}, nil
	}
	d := NewDispatcher(geo, store, &fakeNotifier{})

	n, err := d.FanOut(context.Background(), testBooking())
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	if n != 2 {
		t.Fatalf("dispatched %d, want 2 from geo source", n)
	}
	if store.requests[0].DriverID != 5 || store.requests[1].DriverID != 6 {
		t.Errorf("geo candidates not used: %+v", store.requests)
	}
}

func TestFanOutFallsBackWhenGeoFails(t *testing.T) {
	store := &fakeStore{
		locations: []models.DriverLocation{driverAt(7, 1.0)},
	}
	geo := func(_ context.Context, _, _ float64, _ string, _ float64, _ int) ([]services.NearbyDriver, error) {
		return nil, errors.New("redis down")
	}
	d := NewDispatcher(geo, store, &fakeNotifier{})

	n, err := d.FanOut(context.Background(), testBooking())
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	if n != 1 || store.requests[0].DriverID != 7 {
		t.Fatalf("fallback not used: n=%d requests=%+v", n, store.requests)
	}
}
