// Package geo validates reported device locations against the configured
// building geofence.
package geo

import (
	"math"

	"room-status-backend/config"
)

// Rejection reasons reported to the client.
const (
	ReasonBadLocation = "bad_location"
	ReasonLowAccuracy = "low_accuracy"
	ReasonTooFar      = "too_far"
)

// earthRadiusM is the mean Earth radius. The haversine distance below is a
// spherical approximation; at a radius of tens of meters the error versus a
// geodesic-exact calculation is negligible.
const earthRadiusM = 6371000.0

// RejectedError describes why a location reading was not accepted. DistanceM
// and AccuracyM carry the measured values where applicable so the client can
// show "you are 83m away".
type RejectedError struct {
	Reason    string
	DistanceM float64
	AccuracyM float64
}

func (e *RejectedError) Error() string {
	return "location rejected: " + e.Reason
}

// Validator checks a reported location/accuracy against a configured point
// and radius. It is a pure function of its inputs and safe for concurrent use.
type Validator struct {
	cfg config.GeofenceConfig
}

// NewValidator creates a validator for the configured geofence.
func NewValidator(cfg config.GeofenceConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate gates a lease claim on the reported location. It returns the
// great-circle distance to the building point in meters, and a *RejectedError
// when the reading is non-finite, too imprecise (accuracy_m > max, a large
// accuracy radius means a less certain fix), or outside the fence
// (distance > radius; a reading exactly on the boundary is accepted).
func (v *Validator) Validate(lat, lon, accuracyM float64) (float64, error) {
	if !isFinite(lat) || !isFinite(lon) || !isFinite(accuracyM) {
		return 0, &RejectedError{Reason: ReasonBadLocation}
	}
	if accuracyM > v.cfg.MaxAccuracyM {
		return 0, &RejectedError{Reason: ReasonLowAccuracy, AccuracyM: accuracyM}
	}

	distance := haversineM(lat, lon, v.cfg.Latitude, v.cfg.Longitude)
	if distance > v.cfg.RadiusM {
		return distance, &RejectedError{Reason: ReasonTooFar, DistanceM: distance, AccuracyM: accuracyM}
	}
	return distance, nil
}

// haversineM returns the great-circle distance in meters between two
// coordinates on a spherical Earth.
func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
