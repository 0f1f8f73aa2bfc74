// Package pipeline assembles container images for single-script Python
// payloads.
//
// A build plan is synthesized into four stages: base (pinned image and
// interpreter flag environment), system (OS packages, with the package index
// pruned in the same layer), deps (dependency manifest copied alone, then
// installed), and payload (entrypoint copied last, process invocation
// declared). The heavy variant carries a compiler toolchain so dependency
// installation can compile from source; the lean variant carries only
// certificate authorities and restricts installation to prebuilt wheels.
//
// Stages execute strictly in order, each in a container created from the
// previous stage's exported archive. Every stage has a content-addressed
// cache key chained from its parent's key; a hit reuses the stored archive
// without starting a container, so editing the entrypoint script rebuilds
// only the payload stage while editing the dependency manifest rebuilds
// everything from the deps stage down.
//
// Example usage:
//
//	result, err := pipeline.Run(ctx, rt, store, pipeline.Options{
//	    Plan:    plan,
//	    Context: ".",
//	    Output:  "dist",
//	})
//	if err != nil {
//	    return err
//	}
package pipeline
