// Package extract maps raw page text and rendered DOM to typed record
// fields. Every function is pure and total: absence is an empty result,
// never an error.
package extract

import (
	"regexp"
	"strconv"
)

var coordPattern = regexp.MustCompile(`!3d(-?[0-9][0-9.]*)!4d(-?[0-9][0-9.]*)`)

// Coordinates parses the positional !3d<lat>!4d<lng> pattern embedded in
// Maps URLs. Malformed numbers yield ok=false.
func Coordinates(url string) (lat, lng float64, ok bool) {
	m := coordPattern.FindStringSubmatch(url)
	if m == nil {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lng, errLng := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLng != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// FormatCoordinate renders a coordinate for CSV output.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
