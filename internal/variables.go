package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Daemon name, used for binary naming, socket paths, and log grouping.
const Name = "kilnd"

// Build identity and default output modes, injected through -ldflags by the
// release pipeline. A binary built without them reports itself as a local
// build.
var (
	version   = "" // Release version, e.g. "1.2.3" or "v1.2.3"
	stage     = "" // Git branch the release was cut from
	gitCommit = "" // Commit hash of the release

	rawQuiet   = "false" // Default for quiet mode
	rawDebug   = "false" // Default for debug mode
	rawVerbose = "false" // Default for verbose logging
)

// Returns the human-readable build identity.
//
// Local builds (any of version, stage, or commit unset) report "(local)".
// Release builds report "<version>+<stage> <commit> [<arch>]", with any
// leading "v" stripped from the version and the "+<stage>" suffix omitted
// for releases cut from main.
func VersionString() string {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(version)), "v")
	s := strings.ToLower(strings.TrimSpace(stage))
	c := strings.TrimSpace(gitCommit)

	if v == "" || s == "" || c == "" {
		return "(local)"
	}

	suffix := ""
	if s != "main" {
		suffix = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s]", v, suffix, c, runtime.GOARCH)
}
