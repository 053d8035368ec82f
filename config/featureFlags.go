package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SimulatorDisabled turns off the accrual simulator entirely (records can still
// be started/stopped; quantities just don't accrue). Useful for ops tooling and
// migrations that replay production data.
//
// Set via env:
// - SIMULATOR_DISABLED=true
func SimulatorDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SIMULATOR_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SimulatorTickInterval is the accrual period per active production line.
//
// Set via env:
// - SIMULATOR_TICK_SECONDS=5 (default 5)
func SimulatorTickInterval() time.Duration {
	raw := strings.TrimSpace(os.Getenv("SIMULATOR_TICK_SECONDS"))
	if raw == "" {
		return 5 * time.Second
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 5 * time.Second
	}
	return time.Duration(n) * time.Second
}
