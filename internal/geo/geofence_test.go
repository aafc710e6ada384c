package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-status-backend/config"
)

var testFence = config.GeofenceConfig{
	Latitude:     52.2297,
	Longitude:    21.0122,
	RadiusM:      50,
	MaxAccuracyM: 40,
}

func TestValidateAccepted(t *testing.T) {
	v := NewValidator(testFence)

	distance, err := v.Validate(testFence.Latitude, testFence.Longitude, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.0, distance)
}

func TestValidateTooFar(t *testing.T) {
	v := NewValidator(testFence)

	// Roughly 111m north of the building point.
	distance, err := v.Validate(testFence.Latitude+0.001, testFence.Longitude, 10)
	require.Error(t, err)

	rej, ok := err.(*RejectedError)
	require.True(t, ok)
	assert.Equal(t, ReasonTooFar, rej.Reason)
	assert.InDelta(t, 111.0, rej.DistanceM, 2.0)
	assert.Equal(t, distance, rej.DistanceM)
}

func TestValidateLowAccuracy(t *testing.T) {
	v := NewValidator(testFence)

	_, err := v.Validate(testFence.Latitude, testFence.Longitude, 40.5)
	require.Error(t, err)

	rej, ok := err.(*RejectedError)
	require.True(t, ok)
	assert.Equal(t, ReasonLowAccuracy, rej.Reason)
	assert.Equal(t, 40.5, rej.AccuracyM)
}

// Accuracy exactly at the configured maximum is accepted; the rejection
// applies strictly above it.
func TestValidateAccuracyBoundary(t *testing.T) {
	v := NewValidator(testFence)

	_, err := v.Validate(testFence.Latitude, testFence.Longitude, testFence.MaxAccuracyM)
	assert.NoError(t, err)
}

// A reading exactly on the fence radius is accepted; too_far applies strictly
// beyond it.
func TestValidateRadiusBoundary(t *testing.T) {
	v := NewValidator(config.GeofenceConfig{
		Latitude:     testFence.Latitude,
		Longitude:    testFence.Longitude,
		RadiusM:      haversineM(testFence.Latitude, testFence.Longitude, testFence.Latitude+0.0004, testFence.Longitude),
		MaxAccuracyM: 40,
	})

	_, err := v.Validate(testFence.Latitude+0.0004, testFence.Longitude, 10)
	assert.NoError(t, err)

	_, err = v.Validate(testFence.Latitude+0.00041, testFence.Longitude, 10)
	require.Error(t, err)
	assert.Equal(t, ReasonTooFar, err.(*RejectedError).Reason)
}

func TestValidateNonFinite(t *testing.T) {
	v := NewValidator(testFence)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := v.Validate(bad, testFence.Longitude, 10)
		require.Error(t, err)
		assert.Equal(t, ReasonBadLocation, err.(*RejectedError).Reason)

		_, err = v.Validate(testFence.Latitude, bad, 10)
		require.Error(t, err)
		assert.Equal(t, ReasonBadLocation, err.(*RejectedError).Reason)

		_, err = v.Validate(testFence.Latitude, testFence.Longitude, bad)
		require.Error(t, err)
		assert.Equal(t, ReasonBadLocation, err.(*RejectedError).Reason)
	}
}

// Sanity-check the haversine against a known city pair: Warsaw to Krakow is
// about 252km.
func TestHaversineKnownDistance(t *testing.T) {
	d := haversineM(52.2297, 21.0122, 50.0647, 19.9450)
	assert.InDelta(t, 252000, d, 2000)
}
