package models

import "testing"

func TestSavings(t *testing.T) {
	tests := []struct {
		bid, offered, want int
	}{
		{100, 80, 20},
		{100, 100, 0},
		{100, 120, 0}, // offer above bid never reports negative savings
		{90, 89, 1},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Savings(tt.bid, tt.offered); got != tt.want {
			t.Errorf("Savings(%d, %d) = %d, want %d", tt.bid, tt.offered, got, tt.want)
		}
	}
}

func TestMinCounterPrice(t *testing.T) {
	tests := []struct {
		offered, want int
	}{
		{90, 45},
		{75, 37}, // floor, not rounding
		{1, 0},
		{100, 50},
	}
	for _, tt := range tests {
		if got := MinCounterPrice(tt.offered); got != tt.want {
			t.Errorf("MinCounterPrice(%d) = %d, want %d", tt.offered, got, tt.want)
		}
	}
}

func TestCounterTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		CounterStatusPending:  false,
		CounterStatusAccepted: true,
		CounterStatusRejected: true,
		CounterStatusExpired:  true,
	} {
		c := CounterOffer{Status: status}
		if c.Terminal() != terminal {
			t.Errorf("Terminal() for %q = %v, want %v", status, c.Terminal(), terminal)
		}
	}
}

func TestValidVehicleType(t *testing.T) {
	for _, valid := range []string{VehicleTypeBike, VehicleTypeAuto, VehicleTypeCar} {
		if !ValidVehicleType(valid) {
			t.Errorf("ValidVehicleType(%q) = false, want true", valid)
		}
	}
	for _, invalid := range []string{"", "truck", "CAR"} {
		if ValidVehicleType(invalid) {
			t.Errorf("ValidVehicleType(%q) = true, want false", invalid)
		}
	}
}
