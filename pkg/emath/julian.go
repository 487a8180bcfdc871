package emath

import "time"

// unixEpochJD is the Julian date of 1970-01-01T00:00:00Z.
const unixEpochJD = 2440587.5

// JulianDate turns a timestamp into a continuous day count, the same
// representation pandas' to_julian_date uses. Naive timestamps (as read
// from EXIF) are treated as UTC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	return float64(t.Unix())/86400.0 + float64(t.Nanosecond())/86400e9 + unixEpochJD
}
