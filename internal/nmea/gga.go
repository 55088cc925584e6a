// Package nmea builds the GGA position reports an NTRIP caster expects
// in exchange for geographically relevant corrections.
package nmea

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Position is a geodetic position in decimal degrees and meters.
type Position struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// GGA renders a checksum-terminated $GPGGA sentence for the position at
// the given instant. The time is taken in UTC. The fix quality, satellite
// count and dilution fields are fixed plausible values; casters only use
// the sentence for coarse geolocation of the client.
func GGA(p Position, at time.Time) string {
	at = at.UTC()

	payload := fmt.Sprintf(
		"GPGGA,%02d%02d%05.2f,%012.7f,%s,%013.7f,%s,1,30,1.2,%.4f,M,-2.860,M,,0000",
		at.Hour(), at.Minute(), float64(at.Second()),
		math.Abs(toDDMM(p.LatDeg)), hemisphere(p.LatDeg, "N", "S"),
		math.Abs(toDDMM(p.LonDeg)), hemisphere(p.LonDeg, "E", "W"),
		p.AltM,
	)
	return fmt.Sprintf("$%s*%02X\r\n", payload, Checksum(payload))
}

// Checksum XORs the sentence payload (the characters between '$' and '*').
func Checksum(payload string) byte {
	var ck byte
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

// Valid reports whether line is a checksum-correct NMEA sentence.
func Valid(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return false
	}
	star := strings.LastIndexByte(line, '*')
	if star == -1 || star+3 > len(line) {
		return false
	}
	var want byte
	if _, err := fmt.Sscanf(line[star+1:star+3], "%02X", &want); err != nil {
		return false
	}
	return Checksum(line[1:star]) == want
}

// toDDMM converts decimal degrees into the NMEA ddmm.mmmm representation.
func toDDMM(deg float64) float64 {
	d := math.Trunc(math.Abs(deg))
	m := (math.Abs(deg) - d) * 60.0
	v := d*100.0 + m
	if deg < 0 {
		return -v
	}
	return v
}

func hemisphere(deg float64, pos, neg string) string {
	if deg < 0 {
		return neg
	}
	return pos
}
