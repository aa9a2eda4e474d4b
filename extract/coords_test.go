package extract

import "testing"

func TestCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		lat     float64
		lng     float64
		wantOK  bool
	}{
		{
			name:   "budapest listing",
			url:    "https://www.google.com/maps/place/Foo/@47.4,19.0,17z/data=!3m1!4b1!4m6!3m5!1s0x0:0x0!8m2!3d47.497912!4d19.040235!16s",
			lat:    47.497912,
			lng:    19.040235,
			wantOK: true,
		},
		{
			name:   "negative longitude",
			url:    "https://www.google.com/maps/place/Bar/data=!3d40.7128!4d-74.006",
			lat:    40.7128,
			lng:    -74.006,
			wantOK: true,
		},
		{
			name:   "no coordinate segment",
			url:    "https://www.google.com/maps/place/Baz",
			wantOK: false,
		},
		{
			name:   "malformed numbers",
			url:    "https://maps.google.com/?x=!3d4.7.9!4d19.0.2",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng, ok := Coordinates(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if lat != tt.lat || lng != tt.lng {
				t.Fatalf("got (%v, %v), want (%v, %v)", lat, lng, tt.lat, tt.lng)
			}
		})
	}
}

func TestFormatCoordinate(t *testing.T) {
	if got := FormatCoordinate(47.497912); got != "47.497912" {
		t.Fatalf("FormatCoordinate = %q", got)
	}
}
