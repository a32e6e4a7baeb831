package geoproj

import (
	"math"
	"testing"
)

func TestLocalGeodeticRoundTrip(t *testing.T) {
	o := NewOrigin(45.0, -93.0)
	tests := []struct{ lat, lon float64 }{
		{45.0, -93.0},
		{45.001, -93.001},
		{44.998, -92.997},
	}
	for _, tt := range tests {
		e, n := o.Local(tt.lat, tt.lon)
		lat2, lon2 := o.Geodetic(e, n)
		if math.Abs(lat2-tt.lat) > 1e-9 || math.Abs(lon2-tt.lon) > 1e-9 {
			t.Errorf("round trip mismatch: started (%v,%v) got (%v,%v)", tt.lat, tt.lon, lat2, lon2)
		}
	}
}

func TestOriginMapsToZero(t *testing.T) {
	o := NewOrigin(10, 20)
	e, n := o.Local(10, 20)
	if e != 0 || n != 0 {
		t.Errorf("origin should map to (0,0), got (%v,%v)", e, n)
	}
}
