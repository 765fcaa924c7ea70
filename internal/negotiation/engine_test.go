package negotiation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
)

type fakeStore struct {
	mu            sync.Mutex
	bookings      map[string]*models.RideBooking
	offers        map[string]*models.DriverOffer
	counters      map[string]*models.CounterOffer
	notifications []models.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings: make(map[string]*models.RideBooking),
		offers:   make(map[string]*models.DriverOffer),
		counters: make(map[string]*models.CounterOffer),
	}
}

func offerKey(rideID string, driverID uint) string {
	return fmt.Sprintf("%s/%d", rideID, driverID)
}

func (s *fakeStore) addBooking(b models.RideBooking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = &b
}

func (s *fakeStore) addOffer(o models.DriverOffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[offerKey(o.RideID, o.DriverID)] = &o
}

func (s *fakeStore) GetBooking(_ context.Context, rideID string) (*models.RideBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[rideID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) GetOffer(_ context.Context, rideID string, driverID uint) (*models.DriverOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[offerKey(rideID, driverID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) ListOffers(_ context.Context, rideID string) ([]models.DriverOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DriverOffer
	for _, o := range s.offers {
		if o.RideID == rideID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeStore) GetCounter(_ context.Context, counterID string) (*models.CounterOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[counterID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) PendingCounter(_ context.Context, rideID string, driverID uint, offeredBy string) (*models.CounterOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.counters {
		if c.RideID == rideID && c.DriverID == driverID && c.OfferedBy == offeredBy && c.Status == models.CounterStatusPending {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) InsertCounter(_ context.Context, counter *models.CounterOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.counters {
		if c.RideID == counter.RideID && c.DriverID == counter.DriverID &&
			c.OfferedBy == counter.OfferedBy && c.Status == models.CounterStatusPending {
			return ErrDuplicatePending
		}
	}
	cp := *counter
	s.counters[counter.ID] = &cp
	return nil
}

func (s *fakeStore) ResolveCounter(_ context.Context, counterID, status string, respondedAt time.Time, applyPrice bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[counterID]
	if !ok || c.Status != models.CounterStatusPending {
		return false, nil
	}
	c.Status = status
	c.RespondedAt = &respondedAt
	if applyPrice {
		if o, exists := s.offers[offerKey(c.RideID, c.DriverID)]; exists {
			o.OfferedPrice = c.CounterPrice
			o.OfferType = models.OfferTypeCounterOffer
		}
	}
	return true, nil
}

func (s *fakeStore) PendingCountersBefore(_ context.Context, cutoff time.Time) ([]models.CounterOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CounterOffer
	for _, c := range s.counters {
		if c.Status == models.CounterStatusPending && c.CreatedAt.Before(cutoff) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) ConfirmBooking(_ context.Context, rideID string, driverID uint, finalPrice int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[rideID]
	if !ok || b.Status != models.BookingStatusPending {
		return false, nil
	}
	b.Status = models.BookingStatusConfirmed
	b.ConfirmedDriverID = &driverID
	b.FinalPrice = &finalPrice
	if o, exists := s.offers[offerKey(rideID, driverID)]; exists {
		o.IsConfirmed = true
	}
	return true, nil
}

func (s *fakeStore) CancelBooking(_ context.Context, rideID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[rideID]
	if !ok || b.Status != models.BookingStatusPending {
		return false, nil
	}
	b.Status = models.BookingStatusCancelled
	return true, nil
}

func (s *fakeStore) InsertNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *fakeStore) notificationCount(userID uint, ntype string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := 0
	for _, n := range s.notifications {
		if n.UserID == userID && n.Type == ntype {
			c++
		}
	}
	return c
}

type emission struct {
	userID    uint
	eventType string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []emission
}

func (n *fakeNotifier) Emit(userID uint, eventType string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emission{userID: userID, eventType: eventType})
}

func (n *fakeNotifier) count(userID uint, eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.userID == userID && e.eventType == eventType {
			c++
		}
	}
	return c
}

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

func (t *fakeTimer) fire() {
	if !t.stopped {
		t.stopped = true
		t.f()
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(store Store, notifier Notifier) (*Engine, *testClock, *[]*fakeTimer) {
	clock := &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	timers := &[]*fakeTimer{}
	e := NewEngine(store, notifier)
	e.now = clock.Now
	e.afterFunc = func(_ time.Duration, f func()) stopper {
		t := &fakeTimer{f: f}
		*timers = append(*timers, t)
		return t
	}
	return e, clock, timers
}

func seedRide(store *fakeStore, rideID string, riderID uint, bid int) {
	store.addBooking(models.RideBooking{
		ID:          rideID,
		UserID:      riderID,
		Bid:         bid,
		VehicleType: models.VehicleTypeCar,
		Status:      models.BookingStatusPending,
	})
}

func seedOffer(store *fakeStore, rideID string, driverID uint, price int) {
	store.addOffer(models.DriverOffer{
		ID:           fmt.Sprintf("offer-%d", driverID),
		RideID:       rideID,
		DriverID:     driverID,
		OfferedPrice: price,
		OfferType:    models.OfferTypeBestOffer,
		IsOnline:     true,
	})
}

func TestSubmitCounterOfferBand(t *testing.T) {
	tests := []struct {
		name       string
		offered    int
		counter    int
		wantErr    bool
		wantReason string
	}{
		{name: "at floor", offered: 90, counter: 45},
		{name: "just below offer", offered: 90, counter: 89},
		{name: "below floor", offered: 90, counter: 44, wantErr: true, wantReason: "minimum counter price is 45"},
		{name: "far below floor", offered: 90, counter: 40, wantErr: true, wantReason: "minimum counter price is 45"},
		{name: "equal to offer", offered: 90, counter: 90, wantErr: true, wantReason: "counter must be less than the offered price of 90"},
		{name: "above offer", offered: 90, counter: 100, wantErr: true, wantReason: "counter must be less than the offered price of 90"},
		{name: "odd price floor", offered: 75, counter: 37},
		{name: "odd price below floor", offered: 75, counter: 36, wantErr: true, wantReason: "minimum counter price is 37"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			seedRide(store, "ride-1", 1, 100)
			seedOffer(store, "ride-1", 7, tt.offered)
			engine, _, _ := newTestEngine(store, &fakeNotifier{})

			counter, err := engine.SubmitCounterOffer(context.Background(), "ride-1", 7, 1, tt.counter)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected validation error, got counter %+v", counter)
				}
				if !IsValidation(err) {
					t.Fatalf("expected ValidationError, got %T: %v", err, err)
				}
				if err.Error() != tt.wantReason {
					t.Errorf("reason = %q, want %q", err.Error(), tt.wantReason)
				}
				return
			}
			if err != nil {
				t.Fatalf("SubmitCounterOffer: %v", err)
			}
			if counter.Status != models.CounterStatusPending {
				t.Errorf("status = %q, want pending", counter.Status)
			}
			if counter.CounterPrice != tt.counter {
				t.Errorf("price = %d, want %d", counter.CounterPrice, tt.counter)
			}
		})
	}
}

func TestSubmitCounterOfferDuplicatePending(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	notifier := &fakeNotifier{}
	engine, _, _ := newTestEngine(store, notifier)

	if _, err := engine.SubmitCounterOffer(context.Background(), "ride-1", 7, 1, 70); err != nil {
		t.Fatalf("first counter: %v", err)
	}
	_, err := engine.SubmitCounterOffer(context.Background(), "ride-1", 7, 1, 60)
	if !IsConflict(err) {
		t.Fatalf("expected ConflictError for duplicate pending, got %v", err)
	}
	if n := notifier.count(7, "counter_offer"); n != 1 {
		t.Errorf("driver notified %d times, want 1", n)
	}
	if n := store.notificationCount(7, models.NotificationTypeCounterOffer); n != 1 {
		t.Errorf("driver counter_offer rows = %d, want 1", n)
	}
}

func TestResolveCounterAcceptRevisesOffer(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	notifier := &fakeNotifier{}
	engine, _, _ := newTestEngine(store, notifier)
	ctx := context.Background()

	counter, err := engine.SubmitCounterOffer(ctx, "ride-1", 7, 1, 70)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	resolved, err := engine.ResolveCounterOffer(ctx, counter.ID, 7, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != models.CounterStatusAccepted {
		t.Errorf("status = %q, want accepted", resolved.Status)
	}
	if resolved.RespondedAt == nil {
		t.Error("RespondedAt not set")
	}

	offer, err := store.GetOffer(ctx, "ride-1", 7)
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	if offer.OfferedPrice != 70 {
		t.Errorf("offer price = %d, want revised to 70", offer.OfferedPrice)
	}
	if offer.OfferType != models.OfferTypeCounterOffer {
		t.Errorf("offer type = %q, want %q", offer.OfferType, models.OfferTypeCounterOffer)
	}
	if got := models.Savings(100, offer.OfferedPrice); got != 30 {
		t.Errorf("savings = %d, want 30", got)
	}
	if n := notifier.count(1, "counter_resolved"); n != 1 {
		t.Errorf("rider resolved notifications = %d, want 1", n)
	}
	if n := notifier.count(1, "driver_offer_updated"); n != 1 {
		t.Errorf("rider offer-updated events = %d, want 1", n)
	}
	if n := store.notificationCount(1, models.NotificationTypeCounterResolved); n != 1 {
		t.Errorf("rider counter_resolved rows = %d, want 1", n)
	}
}

func TestResolveCounterTerminalFinality(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	engine, _, _ := newTestEngine(store, &fakeNotifier{})
	ctx := context.Background()

	counter, err := engine.SubmitCounterOffer(ctx, "ride-1", 7, 1, 70)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.ResolveCounterOffer(ctx, counter.ID, 7, false); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// A second resolution of any kind must fail and leave the row alone.
	if _, err := engine.ResolveCounterOffer(ctx, counter.ID, 7, true); !IsConflict(err) {
		t.Fatalf("expected ConflictError on re-resolve, got %v", err)
	}
	got, err := store.GetCounter(ctx, counter.ID)
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if got.Status != models.CounterStatusRejected {
		t.Errorf("status = %q, want rejected to stick", got.Status)
	}

	offer, _ := store.GetOffer(ctx, "ride-1", 7)
	if offer.OfferedPrice != 90 {
		t.Errorf("offer price = %d, want unchanged 90 after reject", offer.OfferedPrice)
	}
}

func TestResolveCounterWrongDriver(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	engine, _, _ := newTestEngine(store, &fakeNotifier{})
	ctx := context.Background()

	counter, err := engine.SubmitCounterOffer(ctx, "ride-1", 7, 1, 70)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.ResolveCounterOffer(ctx, counter.ID, 8, true); !IsConflict(err) {
		t.Fatalf("expected ConflictError for another driver, got %v", err)
	}
}

func TestRejectedCounterClearsAfterDelay(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	engine, _, timers := newTestEngine(store, &fakeNotifier{})
	ctx := context.Background()

	counter, err := engine.SubmitCounterOffer(ctx, "ride-1", 7, 1, 70)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.ResolveCounterOffer(ctx, counter.ID, 7, false); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// Still visible as rejected until the display timer fires.
	active := engine.ActiveCounter("ride-1", 7)
	if active == nil || active.Status != models.CounterStatusRejected {
		t.Fatalf("active counter = %+v, want visible rejected", active)
	}

	if len(*timers) != 1 {
		t.Fatalf("timers = %d, want 1", len(*timers))
	}
	(*timers)[0].fire()

	if got := engine.ActiveCounter("ride-1", 7); got != nil {
		t.Errorf("active counter after delay = %+v, want nil", got)
	}

	// The stored row stays rejected; only the projection clears.
	row, _ := store.GetCounter(ctx, counter.ID)
	if row.Status != models.CounterStatusRejected {
		t.Errorf("stored status = %q, want rejected", row.Status)
	}
}

func TestExpireSweepCutoff(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	seedOffer(store, "ride-1", 8, 85)
	notifier := &fakeNotifier{}
	engine, clock, _ := newTestEngine(store, notifier)
	ctx := context.Background()

	older, err := engine.SubmitCounterOffer(ctx, "ride-1", 7, 1, 70)
	if err != nil {
		t.Fatalf("submit first: %v", err)
	}
	clock.Advance(2 * time.Second)
	younger, err := engine.SubmitCounterOffer(ctx, "ride-1", 8, 1, 60)
	if err != nil {
		t.Fatalf("submit second: %v", err)
	}

	// 4:59 after the second counter: the first is 5:01 old, the second 4:59.
	clock.Advance(CounterTTL - time.Second)

	n, err := engine.ExpireSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d, want exactly 1", n)
	}

	first, _ := store.GetCounter(ctx, older.ID)
	if first.Status != models.CounterStatusExpired {
		t.Errorf("older counter status = %q, want expired", first.Status)
	}
	second, _ := store.GetCounter(ctx, younger.ID)
	if second.Status != models.CounterStatusPending {
		t.Errorf("younger counter status = %q, want still pending", second.Status)
	}

	// Next tick past its TTL picks up the remaining one.
	clock.Advance(3 * time.Second)
	n, err = engine.ExpireSweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("second sweep expired %d, want 1", n)
	}
	if c := notifier.count(1, "counter_resolved"); c != 2 {
		t.Errorf("rider expiry notifications = %d, want 2", c)
	}
}

func TestExpiredCounterCannotBeResolved(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	engine, clock, _ := newTestEngine(store, &fakeNotifier{})
	ctx := context.Background()

	counter, err := engine.SubmitCounterOffer(ctx, "ride-1", 7, 1, 70)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	clock.Advance(CounterTTL + time.Second)
	if _, err := engine.ExpireSweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, err := engine.ResolveCounterOffer(ctx, counter.ID, 7, true); !IsConflict(err) {
		t.Fatalf("expected ConflictError resolving expired counter, got %v", err)
	}
	row, _ := store.GetCounter(ctx, counter.ID)
	if row.Status != models.CounterStatusExpired {
		t.Errorf("status = %q, want expired to stick", row.Status)
	}
}

func TestAcceptOfferSingleWinner(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	seedOffer(store, "ride-1", 8, 80)
	notifier := &fakeNotifier{}
	engine, _, _ := newTestEngine(store, notifier)
	ctx := context.Background()

	booking, err := engine.AcceptOffer(ctx, "ride-1", 1, 8)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if booking.Status != models.BookingStatusConfirmed {
		t.Errorf("status = %q, want confirmed", booking.Status)
	}
	if booking.ConfirmedDriverID == nil || *booking.ConfirmedDriverID != 8 {
		t.Errorf("confirmed driver = %v, want 8", booking.ConfirmedDriverID)
	}
	if booking.FinalPrice == nil || *booking.FinalPrice != 80 {
		t.Errorf("final price = %v, want 80", booking.FinalPrice)
	}
	if booking.Bid != 100 {
		t.Errorf("original bid = %d, want untouched 100", booking.Bid)
	}

	// Accepting the other driver afterwards must fail...
	if _, err := engine.AcceptOffer(ctx, "ride-1", 1, 7); !IsConflict(err) {
		t.Fatalf("expected ConflictError accepting second driver, got %v", err)
	}
	// ...while re-accepting the winner is an idempotent success.
	again, err := engine.AcceptOffer(ctx, "ride-1", 1, 8)
	if err != nil {
		t.Fatalf("idempotent accept: %v", err)
	}
	if again.ConfirmedDriverID == nil || *again.ConfirmedDriverID != 8 {
		t.Errorf("idempotent accept driver = %v, want 8", again.ConfirmedDriverID)
	}

	winner, _ := store.GetOffer(ctx, "ride-1", 8)
	if !winner.IsConfirmed {
		t.Error("winning offer not marked confirmed")
	}
	loser, _ := store.GetOffer(ctx, "ride-1", 7)
	if loser.IsConfirmed {
		t.Error("losing offer must not be marked confirmed")
	}
}

func TestAcceptOfferConcurrent(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	for d := uint(2); d < 12; d++ {
		seedOffer(store, "ride-1", d, 80+int(d))
	}
	engine, _, _ := newTestEngine(store, &fakeNotifier{})

	var wg sync.WaitGroup
	successes := make([]uint, 0, 1)
	var mu sync.Mutex
	for d := uint(2); d < 12; d++ {
		wg.Add(1)
		go func(driverID uint) {
			defer wg.Done()
			if _, err := engine.AcceptOffer(context.Background(), "ride-1", 1, driverID); err == nil {
				mu.Lock()
				successes = append(successes, driverID)
				mu.Unlock()
			}
		}(d)
	}
	wg.Wait()

	if len(successes) != 1 {
		t.Fatalf("%d accepts succeeded, want exactly 1", len(successes))
	}
	booking, _ := store.GetBooking(context.Background(), "ride-1")
	if booking.ConfirmedDriverID == nil || *booking.ConfirmedDriverID != successes[0] {
		t.Errorf("confirmed driver = %v, want %d", booking.ConfirmedDriverID, successes[0])
	}
}

func TestCancelRide(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	notifier := &fakeNotifier{}
	engine, _, _ := newTestEngine(store, notifier)
	ctx := context.Background()

	if _, err := engine.CancelRide(ctx, "ride-1", 2); !IsConflict(err) {
		t.Fatalf("expected ConflictError for wrong rider, got %v", err)
	}

	booking, err := engine.CancelRide(ctx, "ride-1", 1)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if booking.Status != models.BookingStatusCancelled {
		t.Errorf("status = %q, want cancelled", booking.Status)
	}
	if n := notifier.count(7, "ride_cancelled"); n != 1 {
		t.Errorf("driver cancel notifications = %d, want 1", n)
	}
	if n := store.notificationCount(7, models.NotificationTypeRideCancelled); n != 1 {
		t.Errorf("driver ride_cancelled rows = %d, want 1", n)
	}

	if _, err := engine.AcceptOffer(ctx, "ride-1", 1, 7); !IsConflict(err) {
		t.Fatalf("expected ConflictError accepting on cancelled ride, got %v", err)
	}
}

// Full walk through a negotiation: rider bids 100, a driver offers 90, the
// rider counters at 80, the driver accepts, the rider confirms.
func TestNegotiationEndToEnd(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	notifier := &fakeNotifier{}
	engine, _, _ := newTestEngine(store, notifier)
	ctx := context.Background()

	counter, err := engine.SubmitCounterOffer(ctx, "ride-1", 7, 1, 80)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if _, err := engine.ResolveCounterOffer(ctx, counter.ID, 7, true); err != nil {
		t.Fatalf("driver accept: %v", err)
	}

	offer, _ := store.GetOffer(ctx, "ride-1", 7)
	if offer.OfferedPrice != 80 {
		t.Fatalf("revised price = %d, want 80", offer.OfferedPrice)
	}

	booking, err := engine.AcceptOffer(ctx, "ride-1", 1, 7)
	if err != nil {
		t.Fatalf("rider accept: %v", err)
	}
	if booking.FinalPrice == nil || *booking.FinalPrice != 80 {
		t.Fatalf("final price = %v, want negotiated 80", booking.FinalPrice)
	}
	if got := models.Savings(booking.Bid, *booking.FinalPrice); got != 20 {
		t.Errorf("savings = %d, want 20", got)
	}
	if n := notifier.count(1, "ride_confirmed"); n != 1 {
		t.Errorf("rider confirmations = %d, want 1", n)
	}
	if n := notifier.count(7, "ride_confirmed"); n != 1 {
		t.Errorf("driver confirmations = %d, want 1", n)
	}
	if n := store.notificationCount(1, models.NotificationTypeRideConfirmed); n != 1 {
		t.Errorf("rider ride_confirmed rows = %d, want 1", n)
	}
	if n := store.notificationCount(7, models.NotificationTypeRideConfirmed); n != 1 {
		t.Errorf("winning driver ride_confirmed rows = %d, want 1", n)
	}
}

func TestSubmitCounterOnClosedRide(t *testing.T) {
	store := newFakeStore()
	seedRide(store, "ride-1", 1, 100)
	seedOffer(store, "ride-1", 7, 90)
	engine, _, _ := newTestEngine(store, &fakeNotifier{})
	ctx := context.Background()

	if _, err := engine.AcceptOffer(ctx, "ride-1", 1, 7); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := engine.SubmitCounterOffer(ctx, "ride-1", 7, 1, 70); !IsConflict(err) {
		t.Fatalf("expected ConflictError countering a confirmed ride, got %v", err)
	}
}
