package config

import (
	"os"
	"strconv"
)

// DebugEnv switches on debug logging before any config file is loaded.
const DebugEnv = "TUSK_DEBUG"

// IsDebug reports whether DebugEnv holds a true value ("1", "true", "yes").
// It is read directly from the process environment so early startup logs
// honour it.
func IsDebug() bool {
	v := os.Getenv(DebugEnv)
	if v == "yes" {
		return true
	}
	on, err := strconv.ParseBool(v)
	return err == nil && on
}
