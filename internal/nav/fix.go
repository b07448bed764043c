package nav

// Fix is the vessel position and movement at the moment a measurement is
// taken, published alongside results as provenance. Shaped for JSON and
// MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "2026-08-29"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void)
}

// Underway reports whether the vessel is moving fast enough that deck
// motion is expected to dominate scale noise.
func (f Fix) Underway() bool {
	return f.Validity == "A" && f.SpeedKnots > 0.5
}
