// Parses flags and configures logging for the kilnd daemon.
//
// The daemon accepts the following flags:
//
//	-q, --quiet        Suppress informational output.
//	-v, --verbose      Enable verbose output.
//	-d, --debug        Enable debug output.
//	-s, --socket       Unix socket path.
//	    --containerd   Containerd socket address.
//	    --namespace    Containerd namespace.
//	    --cache-dir    Stage cache directory.
//
// Flags override build-time defaults set via linker flags; a .env file in
// the working directory can seed the env-backed flags. After parsing, the
// global logger is reconfigured to reflect the final level and verbosity
// before the selected command runs.
package cli
