package payout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/stone-rolling/internal/game/stone"
)

var testConfig = Config{SpecialMultiplier: 2, SuperMultiplier: 3, CommissionBps: 500}

func TestCompute_SpecialSingleWinner(t *testing.T) {
	t.Parallel()

	res, err := Compute(testConfig, 1000, []Roll{{"alice", 500}, {"bob", 40}})
	require.NoError(t, err)

	// pot 2000, special x2 => 4000 gross, 5% commission => 200
	assert.Equal(t, 500, res.WinningValue)
	assert.Equal(t, stone.TierSpecial, res.Tier)
	assert.Equal(t, int64(2000), res.Pot)
	assert.Equal(t, int64(4000), res.Gross)
	assert.Equal(t, int64(200), res.Commission)
	assert.Equal(t, []string{"alice"}, res.WinnerIDs())
	assert.Equal(t, int64(2*1000*2-200), res.ShareOf("alice"))
	assert.Zero(t, res.ShareOf("bob"))
}

func TestCompute_Tiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		top      int
		wantMult int64
	}{
		{"normal", 300, 1},
		{"special", 1000, 2},
		{"super", 3355, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compute(testConfig, 100, []Roll{{"a", tt.top}, {"b", 3}})
			require.NoError(t, err)
			assert.Equal(t, tt.wantMult, res.Multiplier)
			assert.Equal(t, 200*tt.wantMult, res.Gross)
		})
	}
}

func TestCompute_TieSplitsEvenly(t *testing.T) {
	t.Parallel()

	res, err := Compute(testConfig, 1000, []Roll{{"a", 200}, {"b", 200}, {"c", 40}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, res.WinnerIDs())
	assert.Equal(t, res.ShareOf("a"), res.ShareOf("b"))

	var sum int64
	for _, s := range res.Shares {
		sum += s.Amount
	}
	assert.Equal(t, res.Pot*res.Multiplier-res.Commission, sum+res.Remainder)
	assert.Less(t, res.Remainder, int64(len(res.Shares)))
}

func TestCompute_RemainderGoesToHouse(t *testing.T) {
	t.Parallel()
	cfg := Config{SpecialMultiplier: 2, SuperMultiplier: 3, CommissionBps: 0}

	res, err := Compute(cfg, 1, []Roll{{"a", 6}, {"b", 6}, {"c", 6}, {"d", 3}})
	require.NoError(t, err)

	// net 4 split three ways
	assert.Equal(t, int64(4), res.Net)
	assert.Equal(t, int64(1), res.ShareOf("a"))
	assert.Equal(t, int64(1), res.Remainder)
}

func TestCompute_CommissionFloors(t *testing.T) {
	t.Parallel()
	cfg := Config{SpecialMultiplier: 1, SuperMultiplier: 1, CommissionBps: 333}

	res, err := Compute(cfg, 7, []Roll{{"a", 10}, {"b", 3}})
	require.NoError(t, err)
	// 14 * 333 / 10000 = 0.4662
	assert.Zero(t, res.Commission)
	assert.Equal(t, int64(14), res.ShareOf("a"))
}

func TestCompute_Errors(t *testing.T) {
	t.Parallel()

	_, err := Compute(testConfig, 100, nil)
	assert.ErrorIs(t, err, ErrNoRolls)

	_, err = Compute(testConfig, math.MaxInt64/2, []Roll{{"a", 6624}, {"b", 3}})
	assert.ErrorIs(t, err, ErrOverflow)
}
