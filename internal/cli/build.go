package cli

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/kilnbuild/kilnd/internal/cache"
	"github.com/kilnbuild/kilnd/internal/manifest"
	"github.com/kilnbuild/kilnd/internal/pipeline"
	"github.com/kilnbuild/kilnd/internal/runtime"
	"github.com/kilnbuild/kilnd/internal/server"
)

// Represents the 'kilnd build' command.
type BuildCmd struct {
	Plan     string `short:"f" help:"Path to the plan file. Defaults to kiln.toml in the context." placeholder:"PATH"`
	Context  string `short:"C" default:"." help:"Build context directory."`
	Output   string `short:"o" default:"dist" help:"Output directory for the image archive."`
	Platform string `help:"Target platform (e.g. linux/amd64). Defaults to the host."`
}

// Executes the build command.
//
// Runs the pipeline in-process without a daemon: connects to containerd,
// opens the stage cache, and executes the plan.
func (c *BuildCmd) Run(ctx context.Context) error {
	planPath := c.Plan
	if planPath == "" {
		planPath = filepath.Join(c.Context, manifest.DefaultFilename)
	}

	plan, err := manifest.Load(planPath)
	if err != nil {
		return err
	}

	address := RootCmd.Containerd
	if address == "" {
		address = server.DefaultContainerdAddress
	}
	namespace := RootCmd.Namespace
	if namespace == "" {
		namespace = server.DefaultContainerdNamespace
	}

	rt, err := runtime.New(address, namespace)
	if err != nil {
		return err
	}
	defer rt.Close()

	store, err := cache.Open(RootCmd.CacheDir)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, rt, store, pipeline.Options{
		Plan:     plan,
		Context:  c.Context,
		Output:   c.Output,
		Platform: c.Platform,
	})
	if err != nil {
		return err
	}

	slog.Info("build complete",
		"output", result.Output,
		"build", result.BuildID,
		"cache_hits", result.CacheHits,
	)
	return nil
}
