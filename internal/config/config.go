// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the wagering settings the service reads from the environment.
// Mains load a .env first via godotenv autoload.
type Config struct {
	// MinBet and MaxBet bound the stake a room can be created with.
	MinBet float64
	// MaxBet is inclusive.
	MaxBet float64
	// HouseFeePercent is the cut taken from the full pot on a win,
	// e.g. 5.0 means the winner receives stake*2*0.95.
	HouseFeePercent float64
	// StartingBalance is credited to every new account.
	StartingBalance float64
	// AdminIDs may use the admin endpoints.
	AdminIDs []int64
}

// FromEnv reads settings with the same fallbacks the service has always used.
func FromEnv() Config {
	return Config{
		MinBet:          getEnvFloat("MIN_BET", 1.0),
		MaxBet:          getEnvFloat("MAX_BET", 1000.0),
		HouseFeePercent: getEnvFloat("HOUSE_FEE_PERCENT", 5.0),
		StartingBalance: getEnvFloat("STARTING_BALANCE", 100.0),
		AdminIDs:        getEnvInt64List("ADMIN_IDS"),
	}
}

// IsAdmin reports whether userID is in the admin list.
func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// StakeInBounds reports whether a stake is inside [MinBet, MaxBet].
func (c Config) StakeInBounds(stake float64) bool {
	return stake >= c.MinBet && stake <= c.MaxBet
}

func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func getEnvInt64List(key string) []int64 {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
