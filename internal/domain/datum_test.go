package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatum(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	got, err := ParseDatum(strPtr("2024-01-10 08:00:00"), berlin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC), got.UTC())
}

func TestParseDatum_NilLocationIsLocal(t *testing.T) {
	got, err := ParseDatum(strPtr("2024-01-10 08:00:00"), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Local, got.Location())
}

func TestParseDatum_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		datum *string
	}{
		{"missing", nil},
		{"empty", strPtr("")},
		{"iso", strPtr("2024-01-10T08:00:00Z")},
		{"date only", strPtr("2024-01-10")},
		{"short time", strPtr("2024-01-10 8:00")},
		{"trailing zone", strPtr("2024-01-10 08:00:00 +01:00")},
		{"out of range", strPtr("2024-13-10 08:00:00")},
		{"fractional seconds", strPtr("2024-01-10 11:00:00.123")},
		{"unpadded hour", strPtr("2024-01-10 8:00:00")},
		{"trailing space", strPtr("2024-01-10 08:00:00 ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDatum(tt.datum, time.UTC)
			require.Error(t, err)
		})
	}

	_, err := ParseDatum(nil, time.UTC)
	require.ErrorIs(t, err, ErrMissingDatum)

	_, err = ParseDatum(strPtr("2024-01-10 11:00:00.123"), time.UTC)
	require.ErrorIs(t, err, ErrDatumLayout)
}
