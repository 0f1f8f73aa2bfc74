package internal

import (
	"strconv"
	"sync/atomic"
)

// Effective output modes for the daemon.
//
// Seeded from the raw linker flags at startup; the CLI overrides them once
// command-line flags are parsed, so both the global logger and any later
// readers observe the same final values.
var (
	quietMode   atomic.Bool
	debugMode   atomic.Bool
	verboseMode atomic.Bool
)

func init() {
	SetModes(parseRawFlag(rawQuiet), parseRawFlag(rawDebug), parseRawFlag(rawVerbose))
}

// Records the effective output modes.
func SetModes(quiet, debug, verbose bool) {
	quietMode.Store(quiet)
	debugMode.Store(debug)
	verboseMode.Store(verbose)
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool {
	return quietMode.Load()
}

// Returns true if debug mode is enabled.
func IsDebug() bool {
	return debugMode.Load()
}

// Returns true if verbose logging is enabled.
func IsVerbose() bool {
	return verboseMode.Load()
}

// Interprets a boolean linker-flag value. Unset or unparseable means off.
func parseRawFlag(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}
