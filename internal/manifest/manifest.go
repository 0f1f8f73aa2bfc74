package manifest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Default plan filename looked up in the build context.
const DefaultFilename = "kiln.toml"

const (
	defaultInterpreter = "python"
	defaultManifest    = "requirements.txt"
	defaultEntrypoint  = "main.py"
)

// Selects the pipeline configuration.
//
// Heavy installs a compiler toolchain and numeric-library headers so
// dependency installation can fall back to source builds. Lean installs only
// certificate authorities and restricts installation to prebuilt wheels.
type Variant string

const (
	Heavy Variant = "heavy"
	Lean  Variant = "lean"
)

// References the image the pipeline starts from.
type Base struct {
	Ref string `toml:"ref"` // Image reference, e.g. "docker.io/library/python:3.11-slim".
}

// Names the two files consumed from the build context.
type Payload struct {
	Manifest   string `toml:"manifest"`   // Dependency manifest, copied before any other source.
	Entrypoint string `toml:"entrypoint"` // Entrypoint script, copied last.
}

// Declares additional OS packages beyond the variant's defaults.
type System struct {
	ExtraPackages []string `toml:"extra-packages"`
}

// The interpreter behaviors configurable on the produced image.
//
// Every flag defaults to off. A disabled behavior is expressed as an
// environment variable on both build-stage processes and the final image;
// an enabled behavior simply omits the variable, restoring the interpreter
// default.
type Flags struct {
	BytecodeCache   bool `toml:"bytecode-cache"`   // Write compiled bytecode to the image filesystem.
	OutputBuffering bool `toml:"output-buffering"` // Buffer stdout/stderr instead of flushing per write.
	VersionCheck    bool `toml:"version-check"`    // Let the package installer phone home for updates.
	DownloadCache   bool `toml:"download-cache"`   // Persist downloaded package archives.
}

// Returns the environment entries expressing the disabled behaviors.
//
// The order is fixed so the result can feed directly into a cache key.
func (f Flags) Environ() []string {
	var env []string
	if !f.BytecodeCache {
		env = append(env, "PYTHONDONTWRITEBYTECODE=1")
	}
	if !f.OutputBuffering {
		env = append(env, "PYTHONUNBUFFERED=1")
	}
	if !f.VersionCheck {
		env = append(env, "PIP_DISABLE_PIP_VERSION_CHECK=1")
	}
	if !f.DownloadCache {
		env = append(env, "PIP_NO_CACHE_DIR=1")
	}
	return env
}

// A build plan: everything the pipeline needs to assemble an image.
type Plan struct {
	Name        string  `toml:"name"`        // Image name, used in container IDs and log fields.
	Variant     Variant `toml:"variant"`     // Pipeline configuration. Defaults to heavy.
	Interpreter string  `toml:"interpreter"` // Interpreter binary inside the image. Defaults to "python".
	Base        Base    `toml:"base"`
	Payload     Payload `toml:"payload"`
	System      System  `toml:"system"`
	Flags       Flags   `toml:"flags"`
}

// Reads and validates a plan from a TOML file.
//
// Unknown keys are rejected so a typo cannot silently drop configuration.
// Missing optional fields are filled with defaults before validation.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlanNotFound, err)
	}
	return Parse(data)
}

// Parses and validates a plan from TOML bytes.
func Parse(data []byte) (*Plan, error) {
	var p Plan

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Fills unset optional fields with their defaults.
func (p *Plan) applyDefaults() {
	if p.Variant == "" {
		p.Variant = Heavy
	}
	if p.Interpreter == "" {
		p.Interpreter = defaultInterpreter
	}
	if p.Payload.Manifest == "" {
		p.Payload.Manifest = defaultManifest
	}
	if p.Payload.Entrypoint == "" {
		p.Payload.Entrypoint = defaultEntrypoint
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(p.Payload.Entrypoint, ".py")
	}
}

// Checks plan invariants.
//
// The base reference must carry an explicit tag and must not float on
// "latest": a build keyed on a moving tag is not reproducible.
func (p *Plan) Validate() error {
	if p.Variant != Heavy && p.Variant != Lean {
		return fmt.Errorf("%w: unknown variant %q", ErrInvalidPlan, p.Variant)
	}

	if p.Base.Ref == "" {
		return fmt.Errorf("%w: base.ref is required", ErrInvalidPlan)
	}

	tag, ok := refTag(p.Base.Ref)
	if !ok {
		return fmt.Errorf("%w: base.ref %q has no tag; pin an exact version", ErrUnpinnedBase, p.Base.Ref)
	}
	if tag == "latest" {
		return fmt.Errorf("%w: base.ref %q floats on latest", ErrUnpinnedBase, p.Base.Ref)
	}

	for _, pkg := range p.System.ExtraPackages {
		if strings.TrimSpace(pkg) == "" {
			return fmt.Errorf("%w: empty system package name", ErrInvalidPlan)
		}
	}

	return nil
}

// Extracts the tag from an image reference.
//
// A colon only counts as a tag separator when it appears after the last
// path segment, so registry ports (e.g. "localhost:5000/python") are not
// mistaken for tags.
func refTag(ref string) (string, bool) {
	slash := strings.LastIndexByte(ref, '/')
	colon := strings.LastIndexByte(ref, ':')
	if colon <= slash || colon == len(ref)-1 {
		return "", false
	}
	return ref[colon+1:], true
}
