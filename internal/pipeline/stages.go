package pipeline

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilnbuild/kilnd/internal/manifest"
)

// Directory inside the image holding the manifest and entrypoint.
const appDir = "/app"

// OS packages installed by each variant before any plan extras.
var (
	heavyPackages = []string{"build-essential", "gfortran", "libopenblas-dev"}
	leanPackages  = []string{"ca-certificates"}
)

// A copy of one host file into the stage's filesystem.
type fileCopy struct {
	src  string // Path relative to the build context.
	dest string // Absolute path inside the image.
}

// One stage of the build pipeline.
//
// A stage declares everything that shapes its filesystem diff: the files it
// copies, the commands it runs, and the environment overlay its commands see.
// Those declarations double as the stage's cache key inputs. The base stage
// runs nothing; it contributes the pinned image reference and the flag
// environment to the key chain.
type stage struct {
	name     string
	inputs   []string          // Extra cache key inputs (e.g. the base reference).
	copies   []fileCopy
	commands []string
	env      map[string]string // Overlay on the build's flag environment.
	export   exportConfig      // OCI config mutations applied on export.
	failure  error             // Sentinel wrapped around stage failures.
}

// OCI config mutations a stage applies when it is exported.
type exportConfig struct {
	entrypoint []string
	workingDir string
}

// Returns true when the stage has no filesystem effect to execute.
func (s *stage) empty() bool {
	return len(s.copies) == 0 && len(s.commands) == 0
}

// Returns the stage's cache key inputs, excluding copied file contents.
//
// File contents are digested separately at execution time because they
// require build-context access.
func (s *stage) keyInputs(flagEnviron []string) []string {
	inputs := []string{s.name}
	inputs = append(inputs, s.inputs...)
	inputs = append(inputs, flagEnviron...)
	inputs = append(inputs, sortedEnv(s.env)...)
	for _, c := range s.copies {
		inputs = append(inputs, c.src+" => "+c.dest)
	}
	inputs = append(inputs, s.commands...)
	inputs = append(inputs, strings.Join(s.export.entrypoint, "\x00"), s.export.workingDir)
	return inputs
}

// Synthesizes the four pipeline stages for a plan.
//
// The base stage pins the starting image and establishes the flag
// environment. The system stage installs OS packages and prunes the package
// index in the same command, so the deleted files never persist in a layer.
// The deps stage copies only the dependency manifest and installs from it,
// keeping its cache key independent of the entrypoint. The payload stage
// copies the entrypoint last and declares the image's process invocation.
func synthesize(p *manifest.Plan) []stage {
	return []stage{
		baseStage(p),
		systemStage(p),
		depsStage(p),
		payloadStage(p),
	}
}

// The base stage carries no commands; its key inputs are the image reference
// itself (via the pipeline seeding) and the shared flag environment.
func baseStage(p *manifest.Plan) stage {
	return stage{
		name:    "base",
		inputs:  []string{p.Base.Ref},
		failure: ErrBaseImage,
	}
}

// Installs the variant's OS packages.
//
// Installation and index cleanup share one command line: splitting them into
// separate commands would persist the index files in this stage's layer and
// only mask them in a later one.
func systemStage(p *manifest.Plan) stage {
	packages := leanPackages
	if p.Variant == manifest.Heavy {
		packages = heavyPackages
	}
	packages = append(append([]string{}, packages...), p.System.ExtraPackages...)

	install := fmt.Sprintf(
		"apt-get update && apt-get install -y --no-install-recommends %s && rm -rf /var/lib/apt/lists/*",
		strings.Join(packages, " "),
	)

	return stage{
		name:     "system",
		commands: []string{install},
		env:      map[string]string{"DEBIAN_FRONTEND": "noninteractive"},
		failure:  ErrSystemPackages,
	}
}

// Copies the dependency manifest and installs the declared dependencies.
//
// The lean variant upgrades the installer toolchain first, biasing
// resolution toward prebuilt wheels, and then forbids source distributions
// outright: with no compiler in the image a source build cannot succeed, so
// failing at resolution is strictly better than failing mid-compile.
func depsStage(p *manifest.Plan) stage {
	dest := path.Join(appDir, filepath.Base(p.Payload.Manifest))

	var commands []string
	if p.Variant == manifest.Lean {
		commands = append(commands,
			fmt.Sprintf("%s -m pip install --upgrade pip setuptools wheel", p.Interpreter),
			fmt.Sprintf("%s -m pip install --only-binary=:all: -r %s", p.Interpreter, dest),
		)
	} else {
		commands = append(commands,
			fmt.Sprintf("%s -m pip install -r %s", p.Interpreter, dest),
		)
	}

	return stage{
		name:     "deps",
		copies:   []fileCopy{{src: p.Payload.Manifest, dest: dest}},
		commands: commands,
		failure:  ErrDependencyResolution,
	}
}

// Copies the entrypoint script and declares the process invocation.
//
// The lean variant passes -u to the interpreter even though the flag
// environment already disables buffering; the invocation stays correct if an
// intermediate tool strips the environment.
func payloadStage(p *manifest.Plan) stage {
	dest := path.Join(appDir, filepath.Base(p.Payload.Entrypoint))

	entrypoint := []string{p.Interpreter}
	if p.Variant == manifest.Lean {
		entrypoint = append(entrypoint, "-u")
	}
	entrypoint = append(entrypoint, dest)

	return stage{
		name:   "payload",
		copies: []fileCopy{{src: p.Payload.Entrypoint, dest: dest}},
		export: exportConfig{
			entrypoint: entrypoint,
			workingDir: appDir,
		},
		failure: ErrPayload,
	}
}

// Renders an env overlay as sorted "key=value" entries.
func sortedEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	entries := make([]string, 0, len(env))
	for k, v := range env {
		entries = append(entries, k+"="+v)
	}
	sort.Strings(entries)
	return entries
}
