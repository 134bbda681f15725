package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	for _, p := range Positions {
		got, err := ParsePosition(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePosition("north")
	require.Error(t, err)
}

func TestPlayerJSON(t *testing.T) {
	var p Player
	require.NoError(t, json.Unmarshal([]byte(`{"identity":"alice","position":"WEST"}`), &p))
	assert.Equal(t, PositionWest, p.Position)

	err := json.Unmarshal([]byte(`{"identity":"alice","position":"CENTER"}`), &p)
	require.Error(t, err)
}
