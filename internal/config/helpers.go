package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vshulcz/rtcobserver/internal/misc"
)

// FromEnvOrFlag returns the environment value when present, otherwise falls back to a CLI flag then default.
func FromEnvOrFlag(envKey, flagVal, def string) string {
	if v := strings.TrimSpace(misc.Getenv(envKey, "")); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// FromEnvOrFlagBool merges boolean values from ENV and flags (defaulting to def).
func FromEnvOrFlagBool(envKey string, flagVal, def bool) bool {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		return misc.GetBool(envKey, def)
	}
	return flagVal || def
}

// FromEnvOrFlagInt resolves integer values with minimum validation.
func FromEnvOrFlagInt(envKey string, flagVal, def, minVal int) int {
	if n := misc.GetInt(envKey, minVal-1); n >= minVal {
		return n
	}
	if flagVal != 0 && flagVal >= minVal {
		return flagVal
	}
	return def
}

// FromEnvOrFlagPeriod resolves a cadence from ENV, then the flag, then def.
// Values are integer milliseconds or Go durations; zero disables the cadence.
func FromEnvOrFlagPeriod(envKey, flagVal string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		v = strings.TrimSpace(flagVal)
	}
	if v == "" {
		return def, nil
	}
	d, err := misc.ParsePeriod(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	return d, nil
}
