// Package manifest defines the build plan consumed by the pipeline.
//
// A plan is a small TOML file (kiln.toml by default) declaring the pinned
// base image, the pipeline variant, the payload files, interpreter flags,
// and any extra OS packages. The dependency manifest named by the plan is
// opaque to this package; the pipeline treats its content purely as a cache
// key for the dependency-installation stage.
//
// Example plan:
//
//	name    = "screener"
//	variant = "lean"
//
//	[base]
//	ref = "docker.io/library/python:3.11-slim"
//
//	[payload]
//	manifest   = "requirements.txt"
//	entrypoint = "main.py"
package manifest
