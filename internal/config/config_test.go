// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("MIN_BET", "")
	t.Setenv("MAX_BET", "")
	t.Setenv("HOUSE_FEE_PERCENT", "")
	t.Setenv("STARTING_BALANCE", "")
	t.Setenv("ADMIN_IDS", "")

	cfg := FromEnv()
	assert.Equal(t, 1.0, cfg.MinBet)
	assert.Equal(t, 1000.0, cfg.MaxBet)
	assert.Equal(t, 5.0, cfg.HouseFeePercent)
	assert.Equal(t, 100.0, cfg.StartingBalance)
	assert.Empty(t, cfg.AdminIDs)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MIN_BET", "5")
	t.Setenv("MAX_BET", "250")
	t.Setenv("HOUSE_FEE_PERCENT", "2.5")
	t.Setenv("STARTING_BALANCE", "0")
	t.Setenv("ADMIN_IDS", "777, 888,bogus,999")

	cfg := FromEnv()
	assert.Equal(t, 5.0, cfg.MinBet)
	assert.Equal(t, 250.0, cfg.MaxBet)
	assert.Equal(t, 2.5, cfg.HouseFeePercent)
	assert.Equal(t, []int64{777, 888, 999}, cfg.AdminIDs)

	assert.True(t, cfg.IsAdmin(888))
	assert.False(t, cfg.IsAdmin(1))
}

func TestStakeInBounds(t *testing.T) {
	cfg := Config{MinBet: 1, MaxBet: 1000}
	assert.True(t, cfg.StakeInBounds(1))
	assert.True(t, cfg.StakeInBounds(1000))
	assert.False(t, cfg.StakeInBounds(0.99))
	assert.False(t, cfg.StakeInBounds(1000.01))
}
