// Package runtime manages containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon and provides image pull,
// archive import, and container creation. Base images are pulled from
// their registry; cached stage archives are imported, tagged with a
// deterministic content hash, unpacked for the target platform, and used
// to create containers with overlayfs snapshots.
//
// Each [Container] wraps a running containerd task. Commands can be
// executed inside the container, files can be streamed in as tar, and the
// final filesystem state can be committed and exported as a new OCI
// archive with its config mutated (environment, entrypoint, working
// directory). When the container is no longer needed it should be
// destroyed to release its snapshot and task resources.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "kilnd")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	tag, err := rt.Pull(ctx, "docker.io/library/python:3.11-slim", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//
//	ctr, err := rt.StartContainer(ctx, tag, "build-1", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	result, err := ctr.Exec(ctx, "/bin/sh", "echo hello", nil, "")
//	if err != nil {
//	    return err
//	}
//
//	if err := ctr.Export(ctx, "stage.tar", runtime.ExportSpec{}); err != nil {
//	    return err
//	}
package runtime
