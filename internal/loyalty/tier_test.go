package loyalty

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLevelForBoundaries(t *testing.T) {
	cases := []struct {
		points   int
		tier     Tier
		discount string
	}{
		{-5, Bronze, "0"},
		{0, Bronze, "0"},
		{9999, Bronze, "0"},
		{10000, Silver, "3"},
		{19999, Silver, "3"},
		{20000, Gold, "7"},
		{29999, Gold, "7"},
		{30000, Platinum, "11"},
		{39999, Platinum, "11"},
		{40000, Diamond, "15"},
		{1_000_000, Diamond, "15"},
	}

	for _, tc := range cases {
		level := LevelFor(tc.points)
		assert.Equal(t, tc.tier, level.Tier, "points=%d", tc.points)
		assert.True(t, level.Discount.Equal(decimal.RequireFromString(tc.discount)), "points=%d discount=%s", tc.points, level.Discount)
	}
}

func TestLevelForMatchesThresholds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		points := rapid.IntRange(0, 100_000).Draw(t, "points")
		level := LevelFor(points)

		if points < level.MinPoints {
			t.Fatalf("points %d below %s threshold %d", points, level.Tier, level.MinPoints)
		}
		for _, l := range Levels() {
			if l.MinPoints > level.MinPoints && points >= l.MinPoints {
				t.Fatalf("points %d qualify for %s but got %s", points, l.Tier, level.Tier)
			}
		}
	})
}

func TestLevelsAscending(t *testing.T) {
	all := Levels()
	require.Len(t, all, 5)
	assert.Equal(t, Bronze, all[0].Tier)
	assert.Equal(t, Diamond, all[4].Tier)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].MinPoints, all[i-1].MinPoints)
	}
}

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier("gold")
	assert.True(t, ok)
	assert.Equal(t, Gold, tier)

	_, ok = ParseTier("copper")
	assert.False(t, ok)
}
