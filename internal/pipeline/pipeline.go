package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/opencontainers/go-digest"

	"github.com/kilnbuild/kilnd/internal/cache"
	"github.com/kilnbuild/kilnd/internal/manifest"
	"github.com/kilnbuild/kilnd/internal/paths"
	"github.com/kilnbuild/kilnd/internal/runtime"
)

// Filename of the OCI archive produced in the output directory.
const exportFilename = "image.tar"

// Controls pipeline execution.
type Options struct {
	Plan     *manifest.Plan // Build plan to execute.
	Context  string         // Build context directory holding the payload files.
	Output   string         // Directory for the final image archive.
	Platform string         // Target platform (e.g. "linux/amd64"). Defaults to host.
	BuildID  string         // Unique build identifier. Generated when empty.
}

// Returned after successful pipeline execution.
type Result struct {
	Output    string        // Path of the exported image archive.
	BuildID   string        // Identifier assigned to this build.
	Key       digest.Digest // Content key of the final stage.
	CacheHits int           // Stages satisfied from the cache without execution.
}

// Executes a build plan against the container runtime.
//
// Stages run in declaration order. Each stage's cache key chains its parent's
// key with the stage's declared inputs; a hit skips execution entirely and
// seeds the next stage from the stored archive. The payload stage's archive
// is copied into the output directory as the final image. All stage
// containers are destroyed when the build completes.
func Run(ctx context.Context, rt *runtime.Runtime, store *cache.Store, opts Options) (*Result, error) {
	if opts.Platform == "" {
		opts.Platform = runtime.DefaultPlatform()
	}
	if opts.BuildID == "" {
		opts.BuildID = ulid.Make().String()
	}

	slog.Info("executing pipeline",
		"plan", opts.Plan.Name,
		"variant", opts.Plan.Variant,
		"build", opts.BuildID,
		"platform", opts.Platform,
	)

	if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	b := newBuild(rt, store, opts)
	defer b.destroyContainers(ctx)

	return b.run(ctx)
}

// Identifies where the next stage's container starts from: a cached or
// freshly exported archive, or the pulled base reference when no archive
// exists yet.
type parentRef struct {
	ref     string // Base image reference, used until the first archive exists.
	archive string // Exported stage archive path.
}

// Holds shared state for building all stages of a plan.
type build struct {
	rt         *runtime.Runtime     // Container runtime for image and container operations.
	store      *cache.Store         // Content-addressed stage cache.
	plan       *manifest.Plan       // Plan being built.
	context    string               // Build context, root for resolving copy sources.
	output     string               // Output directory for the final image archive.
	platform   string               // Target platform.
	id         string               // Build identifier, used as a container ID component.
	flagEnv    []string             // Flag environment shared by all stages.
	state      *envState            // Effective environment resolver for stage commands.
	containers []*runtime.Container // Stage containers, destroyed after the build completes.
	cacheHits  int
}

// Creates a new [build] from the given options.
func newBuild(rt *runtime.Runtime, store *cache.Store, opts Options) *build {
	flagEnv := opts.Plan.Flags.Environ()
	return &build{
		rt:       rt,
		store:    store,
		plan:     opts.Plan,
		context:  opts.Context,
		output:   opts.Output,
		platform: opts.Platform,
		id:       strings.ToLower(opts.BuildID),
		flagEnv:  flagEnv,
		state:    newEnvState(flagEnv),
	}
}

// Builds all stages in order and publishes the final archive.
func (b *build) run(ctx context.Context) (*Result, error) {
	key := digest.Digest("")
	parent := parentRef{ref: b.plan.Base.Ref}

	for _, st := range b.stages() {
		next, err := b.stageKey(key, st)
		if err != nil {
			return nil, fmt.Errorf("%w: stage %q: %w", st.failure, st.name, err)
		}
		key = next

		if st.empty() {
			continue
		}

		if path, ok := b.store.Get(key); ok {
			slog.Info("stage cache hit", "stage", st.name, "key", key.String())
			b.cacheHits++
			parent = parentRef{archive: path}
			continue
		}

		archive, err := b.executeStage(ctx, st, parent, key)
		if err != nil {
			return nil, b.classify(st, err)
		}
		parent = parentRef{archive: archive}
	}

	output := filepath.Join(b.output, exportFilename)
	if err := copyFile(output, parent.archive); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	slog.Info("image built", "path", output, "key", key.String(), "cache_hits", b.cacheHits)

	return &Result{
		Output:    output,
		BuildID:   b.id,
		Key:       key,
		CacheHits: b.cacheHits,
	}, nil
}

// Returns the plan's stages.
//
// The platform is seeded into the base stage's inputs so every downstream
// key is platform-specific: installed wheels and OS packages differ per
// architecture even for identical plans.
func (b *build) stages() []stage {
	stages := synthesize(b.plan)
	stages[0].inputs = append(stages[0].inputs, b.platform)
	return stages
}

// Computes a stage's cache key from its parent key and declared inputs.
//
// Copied files contribute their content digest, not their path or metadata,
// so a rename or touch does not invalidate the stage but an edit does.
func (b *build) stageKey(parent digest.Digest, st stage) (digest.Digest, error) {
	inputs := st.keyInputs(b.flagEnv)

	for _, cp := range st.copies {
		d, err := cache.FileDigest(filepath.Join(b.context, cp.src))
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrFileSystemOperation, cp.src, err)
		}
		inputs = append(inputs, d.String())
	}

	return cache.Chain(parent, inputs...), nil
}

// Executes a single stage and commits its exported archive to the cache.
//
// The stage's container starts from the parent archive (or the pulled base
// reference for the first executing stage), receives the stage's file
// copies, runs its commands with the resolved environment, and is then
// stopped and exported.
func (b *build) executeStage(ctx context.Context, st stage, parent parentRef, key digest.Digest) (string, error) {
	slog.Info("building stage", "stage", st.name, "build", b.id)

	tag, err := b.parentTag(ctx, parent)
	if err != nil {
		return "", err
	}

	ctr, err := b.rt.StartContainer(ctx, tag, b.containerID(st.name), b.platform)
	if err != nil {
		return "", err
	}
	b.containers = append(b.containers, ctr)

	for _, cp := range st.copies {
		if err := b.copyIn(ctx, ctr, cp); err != nil {
			return "", err
		}
	}

	env := b.state.resolve(st.env)
	for _, cmd := range st.commands {
		slog.Debug("run", "command", cmd)
		result, err := ctr.Exec(ctx, defaultShell, cmd, env, "")
		if err != nil {
			return "", err
		}
		if result.ExitCode != 0 {
			return "", fmt.Errorf("%w: exit code %d: %s", ErrCommandFailed, result.ExitCode, result.Stderr)
		}
	}

	if err := ctr.Stop(ctx); err != nil {
		return "", err
	}

	return b.exportStage(ctx, ctr, st, key)
}

// Exports a stopped stage container and commits the archive under its key.
//
// The flag environment is written into every stage's image config so a
// process started from any stage archive observes it; the payload stage
// additionally sets the entrypoint and working directory.
func (b *build) exportStage(ctx context.Context, ctr *runtime.Container, st stage, key digest.Digest) (string, error) {
	tmp, err := os.CreateTemp("", "kilnd-stage-*.tar")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	spec := runtime.ExportSpec{
		Env:        b.flagEnv,
		Entrypoint: st.export.entrypoint,
		WorkingDir: st.export.workingDir,
	}
	if err := ctr.Export(ctx, tmp.Name(), spec); err != nil {
		return "", err
	}

	return b.store.Commit(key, tmp.Name())
}

// Classifies a stage failure under its sentinel.
//
// A base-image fetch failure keeps its own class: the pull happens lazily
// inside the first executing stage, but the failure belongs to the base
// image, not to that stage's work.
func (b *build) classify(st stage, err error) error {
	if errors.Is(err, ErrBaseImage) {
		return fmt.Errorf("stage %q: %w", st.name, err)
	}
	return fmt.Errorf("%w: stage %q: %w", st.failure, st.name, err)
}

// Resolves the containerd tag the next stage container starts from.
//
// The base image is only pulled when a stage actually has to execute, so a
// fully cached build never touches the network. A failed pull is a
// base-image failure regardless of which stage triggered it.
func (b *build) parentTag(ctx context.Context, parent parentRef) (string, error) {
	if parent.archive != "" {
		return b.rt.Import(ctx, parent.archive, b.platform)
	}
	tag, err := b.rt.Pull(ctx, parent.ref, b.platform)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBaseImage, err)
	}
	return tag, nil
}

// Destroys all stage containers.
func (b *build) destroyContainers(ctx context.Context) {
	for _, ctr := range b.containers {
		ctr.Destroy(ctx)
	}
}

// Returns a unique container ID for a stage, scoped to this build.
func (b *build) containerID(stageName string) string {
	return fmt.Sprintf("%s-%s-%s", b.plan.Name, b.id, stageName)
}
