package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf(t *testing.T) {
	// The time-of-day component never influences date comparisons.
	morning := DateOf(time.Date(2025, time.March, 10, 0, 30, 0, 0, time.UTC))
	evening := DateOf(time.Date(2025, time.March, 10, 23, 59, 0, 0, time.UTC))
	assert.True(t, morning.Equal(evening))
	assert.False(t, morning.After(evening))
	assert.False(t, morning.Before(evening))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", d.String())

	_, err = ParseDate("10-03-2025")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	t.Run("null round-trips to the zero date", func(t *testing.T) {
		var d Date
		require.NoError(t, json.Unmarshal([]byte("null"), &d))
		assert.True(t, d.IsZero())

		raw, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Equal(t, "null", string(raw))
	})

	t.Run("invalid wire format is rejected", func(t *testing.T) {
		var d Date
		assert.Error(t, json.Unmarshal([]byte(`"2025/03/10"`), &d))
	})
}

func TestDateAddDays(t *testing.T) {
	d := NewDate(2025, time.February, 27)
	assert.Equal(t, "2025-03-01", d.AddDays(2).String())
	assert.Equal(t, "2025-02-26", d.AddDays(-1).String())
}
