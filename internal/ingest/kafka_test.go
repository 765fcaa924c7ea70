package ingest

import (
	"testing"
)

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"driverId":7,"lat":12.97,"lng":77.59,"vehicleType":"car","isOnline":true,"isAvailable":true,"ts":1717243200}`,
		},
		{
			name:    "missing driver id",
			payload: `{"lat":12.97,"lng":77.59,"vehicleType":"car"}`,
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			payload: `{"driverId":7,"lat":91.0,"lng":77.59,"vehicleType":"car"}`,
			wantErr: true,
		},
		{
			name:    "missing vehicle type",
			payload: `{"driverId":7,"lat":12.97,"lng":77.59}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `driver 7 at 12.97,77.59`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseUpdate([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", u)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUpdate: %v", err)
			}
			if u.DriverID != 7 {
				t.Errorf("DriverID = %d, want 7", u.DriverID)
			}
			if u.VehicleType != "car" {
				t.Errorf("VehicleType = %q, want car", u.VehicleType)
			}
		})
	}
}

func TestNilProducerDropsPings(t *testing.T) {
	var p *Producer
	if err := p.PublishLocation(LocationUpdate{DriverID: 1}); err != nil {
		t.Fatalf("nil producer must drop silently, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("nil producer close: %v", err)
	}
}
