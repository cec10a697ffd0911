package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextBusinessDaySkipsWeekend(t *testing.T) {
	fri := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), NextBusinessDay(fri))

	sat := fri.AddDate(0, 0, 1)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), NextBusinessDay(sat))

	mon := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), NextBusinessDay(mon))
}

func TestBusinessDays(t *testing.T) {
	start := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC) // Wednesday
	days := BusinessDays(start, 252)
	require.Len(t, days, 252)

	assert.Equal(t, time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC), days[0])
	for i, d := range days {
		assert.True(t, IsBusinessDay(d), "day %d (%s) is a weekend", i, d)
		if i > 0 {
			assert.True(t, d.After(days[i-1]))
		}
	}
	assert.Nil(t, BusinessDays(start, 0))
}
