package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	// Taipei Main Station to Taipei 101 is roughly 4 km.
	d := DistanceMeters(25.0478, 121.5170, 25.0339, 121.5645)

	assert.InDelta(t, 5000, d, 1500)
}

func TestDistanceMeters_SamePoint(t *testing.T) {
	assert.InDelta(t, 0, DistanceMeters(25.0, 121.5, 25.0, 121.5), 0.001)
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{meters: 0, want: "0 m"},
		{meters: 850, want: "850 m"},
		{meters: 999, want: "999 m"},
		{meters: 1200, want: "1.2 km"},
		{meters: 15500, want: "15.5 km"},
		{meters: -5, want: "0 m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDistance(tt.meters))
	}
}
