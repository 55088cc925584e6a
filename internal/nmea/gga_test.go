package nmea

import (
	"math"
	"strings"
	"testing"
	"time"

	gonmea "github.com/adrianmo/go-nmea"
)

func TestChecksum_KnownSentence(t *testing.T) {
	payload := "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"
	if ck := Checksum(payload); ck != 0x47 {
		t.Fatalf("checksum: got %02X want 47", ck)
	}
}

func TestValid(t *testing.T) {
	good := "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n"
	if !Valid(good) {
		t.Fatalf("expected valid sentence")
	}
	bad := strings.Replace(good, "*47", "*48", 1)
	if Valid(bad) {
		t.Fatalf("expected checksum mismatch to be rejected")
	}
	if Valid("no dollar sign") {
		t.Fatalf("expected non-NMEA line to be rejected")
	}
}

func TestGGA_FormatAndRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 12, 0, time.UTC)
	p := Position{LatDeg: 48.1173, LonDeg: 11.5167, AltM: 545.4}

	s := GGA(p, at)
	if !strings.HasSuffix(s, "\r\n") {
		t.Fatalf("sentence not CRLF-terminated: %q", s)
	}
	if !strings.HasPrefix(s, "$GPGGA,120012.00,") {
		t.Fatalf("unexpected prefix: %q", s)
	}
	if !Valid(s) {
		t.Fatalf("generated sentence fails its own checksum: %q", s)
	}

	parsed, err := gonmea.Parse(strings.TrimSpace(s))
	if err != nil {
		t.Fatalf("go-nmea rejects generated sentence %q: %v", s, err)
	}
	gga, ok := parsed.(gonmea.GGA)
	if !ok {
		t.Fatalf("parsed as %T, want GGA", parsed)
	}
	if math.Abs(gga.Latitude-p.LatDeg) > 1e-6 {
		t.Fatalf("lat round trip: got %v want %v", gga.Latitude, p.LatDeg)
	}
	if math.Abs(gga.Longitude-p.LonDeg) > 1e-6 {
		t.Fatalf("lon round trip: got %v want %v", gga.Longitude, p.LonDeg)
	}
	if math.Abs(gga.Altitude-p.AltM) > 1e-3 {
		t.Fatalf("alt round trip: got %v want %v", gga.Altitude, p.AltM)
	}
}

func TestGGA_SouthernWesternHemispheres(t *testing.T) {
	at := time.Date(2026, 3, 14, 1, 2, 3, 0, time.UTC)
	s := GGA(Position{LatDeg: -33.8688, LonDeg: -151.2093, AltM: 20}, at)

	parsed, err := gonmea.Parse(strings.TrimSpace(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	gga := parsed.(gonmea.GGA)
	if gga.Latitude >= 0 || gga.Longitude >= 0 {
		t.Fatalf("expected negative lat/lon, got %v %v", gga.Latitude, gga.Longitude)
	}
	if !strings.Contains(s, ",S,") || !strings.Contains(s, ",W,") {
		t.Fatalf("expected S/W hemisphere markers: %q", s)
	}
}
