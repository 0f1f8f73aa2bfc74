package protocol

// Asks the daemon to execute a build plan.
type BuildRequest struct {
	Plan     string `json:"plan"`               // Plan file path. Empty means kiln.toml in the context.
	Context  string `json:"context"`            // Build context directory.
	Output   string `json:"output"`             // Output directory for the image archive.
	Platform string `json:"platform,omitempty"` // Target platform override.
}

// Reports a completed build.
type BuildResult struct {
	Output    string `json:"output"`     // Path of the exported image archive.
	BuildID   string `json:"build_id"`   // Identifier assigned to the build.
	Key       string `json:"key"`        // Content key of the final stage.
	CacheHits int    `json:"cache_hits"` // Stages satisfied from the cache.
}

// Reports daemon state.
type StatusResult struct {
	Running bool   `json:"running"`
	Version string `json:"version"`
	Pid     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Builds  int    `json:"builds"`
}

// Reports the effect of a cache prune.
type PruneResult struct {
	Entries int   `json:"entries"` // Stage archives removed.
	Bytes   int64 `json:"bytes"`   // Bytes freed.
}

// Carries a failure message back to the client.
type ErrorResult struct {
	Message string `json:"message"`
}
