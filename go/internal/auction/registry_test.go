package auction

import (
	"strings"
	"testing"
	"time"

	"github.com/mcdev12/bidtable/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySeatsInArrivalOrder(t *testing.T) {
	r := NewRegistry(4)
	now := time.Now()

	want := []models.Position{models.PositionNorth, models.PositionEast, models.PositionSouth, models.PositionWest}
	for i, name := range []string{"Ann", "Bea", "Cal", "Dee"} {
		p, err := r.Register(name, &recorder{}, now)
		require.NoError(t, err)
		assert.Equal(t, want[i], p.Position)
		assert.Equal(t, name, p.Identity)
	}
	assert.True(t, r.IsFull())

	_, err := r.Register("Eve", &recorder{}, now)
	require.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, 4, r.Len())
}

func TestRegistryRejectsTakenName(t *testing.T) {
	r := NewRegistry(2)
	_, err := r.Register("Ann", &recorder{}, time.Now())
	require.NoError(t, err)

	_, err = r.Register("Ann", &recorder{}, time.Now())
	require.ErrorIs(t, err, ErrNameTaken)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryTakenNameCheckedBeforeCapacity(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Register("Ann", &recorder{}, time.Now())
	require.NoError(t, err)

	_, err = r.Register("Ann", &recorder{}, time.Now())
	require.ErrorIs(t, err, ErrNameTaken)
}

func TestRegistryInvalidNames(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"padded", " Ann "},
		{"control", "An\x07n"},
		{"too long", strings.Repeat("x", MaxNameLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(4)
			_, err := r.Register(tt.in, &recorder{}, time.Now())
			require.ErrorIs(t, err, ErrInvalidName)
			assert.Zero(t, r.Len())
		})
	}
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry(2)
	_, err := r.Register("Ann", &recorder{}, time.Now())
	require.NoError(t, err)

	p, ok := r.Unregister("Ann")
	require.True(t, ok)
	assert.Equal(t, models.PositionNorth, p.Position)

	_, ok = r.Unregister("Ann")
	assert.False(t, ok)
	_, ok = r.Unregister("Nobody")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegistryReusesFreedSeat(t *testing.T) {
	r := NewRegistry(4)
	for _, name := range []string{"Ann", "Bea", "Cal"} {
		_, err := r.Register(name, &recorder{}, time.Now())
		require.NoError(t, err)
	}
	r.Unregister("Bea")

	p, err := r.Register("Dee", &recorder{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.PositionEast, p.Position)

	var order []string
	for _, pl := range r.Players() {
		order = append(order, pl.Identity)
	}
	assert.Equal(t, []string{"Ann", "Cal", "Dee"}, order)
}
